// Package desk wires the schedule, price feed, session engine and ledger
// together and serialises every timer callback and operator command.
package desk

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"DailyInvestTrade/internal/calculator"
	"DailyInvestTrade/internal/ledger"
	"DailyInvestTrade/internal/model"
	"DailyInvestTrade/internal/notifier"
	"DailyInvestTrade/internal/pricefeed"
	"DailyInvestTrade/internal/recorder"
	"DailyInvestTrade/internal/schedule"
	"DailyInvestTrade/internal/session"
	"DailyInvestTrade/internal/timer"
)

// Presenter shows market state and messages to the operator.
type Presenter interface {
	MarketStatus(m model.MarketState)
	Countdown(remaining time.Duration)
	Notify(msg string)
}

// Encoder turns a committed withdrawal into a receipt file.
type Encoder interface {
	WriteFile(r *model.Receipt) (string, error)
}

// SpecScheduler registers cron-spec jobs.
type SpecScheduler interface {
	AddSpec(spec string, fn func()) (timer.Handle, error)
}

// priceSeries is implemented by charts that keep their samples.
type priceSeries interface {
	PriceValues() []decimal.Decimal
}

const (
	DefaultCountdownInterval = time.Second
	smaPeriod                = 20
	rsiPeriod                = 14
)

// Deps holds everything a Desk needs. Chart, Recorder and Encoder may be nil.
type Deps struct {
	Timers            timer.Scheduler
	Schedule          *schedule.Schedule
	Ledger            *ledger.Ledger
	Session           session.Config
	SessionOpts       []session.Option
	Price             pricefeed.Config
	PriceOpts         []pricefeed.Option
	Presenter         Presenter
	Chart             notifier.Chart
	Recorder          recorder.Recorder
	Encoder           Encoder
	CountdownInterval time.Duration
	Clock             func() time.Time
}

// Desk is the single owner of the market's mutable state.
type Desk struct {
	mu        sync.Mutex
	clock     func() time.Time
	sched     *schedule.Schedule
	ledger    *ledger.Ledger
	engine    *session.Engine
	feed      *pricefeed.Simulator
	presenter Presenter
	chart     notifier.Chart
	recorder  recorder.Recorder
	encoder   Encoder
	maxTrades int

	countdown         *timer.Slot
	countdownInterval time.Duration

	known bool // a market status has been presented
	open  bool
}

// New builds a desk. Nothing is armed until Start.
func New(d Deps) (*Desk, error) {
	if d.Timers == nil || d.Schedule == nil || d.Ledger == nil || d.Presenter == nil {
		return nil, errors.New("desk: timers, schedule, ledger and presenter are required")
	}
	dk := &Desk{
		clock:             d.Clock,
		sched:             d.Schedule,
		ledger:            d.Ledger,
		presenter:         d.Presenter,
		chart:             d.Chart,
		recorder:          d.Recorder,
		encoder:           d.Encoder,
		maxTrades:         d.Session.MaxTrades,
		countdown:         timer.NewSlot(d.Timers),
		countdownInterval: d.CountdownInterval,
	}
	if dk.clock == nil {
		dk.clock = time.Now
	}
	if dk.countdownInterval <= 0 {
		dk.countdownInterval = DefaultCountdownInterval
	}
	if dk.recorder == nil {
		dk.recorder = recorder.NewNoopRecorder()
	}

	engine, err := session.NewEngine(d.Ledger, d.Session, d.SessionOpts...)
	if err != nil {
		return nil, fmt.Errorf("init session engine: %w", err)
	}
	dk.engine = engine

	priceOpts := append([]pricefeed.Option{}, d.PriceOpts...)
	priceOpts = append(priceOpts, pricefeed.WithGate(
		func() bool { return dk.sched.IsOpen(dk.clock()) },
		func() { dk.Refresh(dk.clock()) },
	))
	dk.feed = pricefeed.NewSimulator(d.Timers, d.Price, priceOpts...)
	return dk, nil
}

// Start evaluates the market once, arming whichever timer applies.
func (d *Desk) Start() {
	d.Refresh(d.clock())
	log.Info().Msg("desk started")
}

// Stop cancels both timers. It does not take the desk lock so a callback
// waiting on it cannot hold up shutdown.
func (d *Desk) Stop() {
	d.feed.Stop()
	d.countdown.Cancel()
	log.Info().Msg("desk stopped")
}

// RegisterJobs adds the weekly withdrawal quota reset when resetSpec is set.
func (d *Desk) RegisterJobs(jobs SpecScheduler, resetSpec string) error {
	if resetSpec == "" {
		return nil
	}
	if _, err := jobs.AddSpec(resetSpec, d.resetWeeklyQuota); err != nil {
		return fmt.Errorf("register withdrawal reset: %w", err)
	}
	log.Info().Str("spec", resetSpec).Msg("weekly withdrawal reset registered")
	return nil
}

func (d *Desk) resetWeeklyQuota() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ledger.ResetWeeklyQuota()
	d.presenter.Notify("Weekly withdrawal quota has been reset.")
}

// Refresh re-evaluates the schedule at now and moves the timers to match.
func (d *Desk) Refresh(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshLocked(now)
}

func (d *Desk) refreshLocked(now time.Time) {
	open := d.sched.IsOpen(now)
	changed := !d.known || open != d.open
	wasClosed := d.known && !d.open

	if open {
		d.countdown.Cancel()
		if !d.feed.Running() {
			d.feed.Start(d.onPrice)
		}
	} else {
		d.feed.Stop()
		if !d.countdown.Armed() {
			d.countdown.Arm(d.countdownInterval, d.onCountdown)
		}
	}
	d.known = true
	d.open = open

	if !changed {
		return
	}
	log.Info().Bool("open", open).Time("at", now).Msg("market status changed")
	d.presenter.MarketStatus(d.marketLocked(now))
	if open && wasClosed {
		d.presenter.Notify(notifier.FormatMarketOpened())
	}
	if !open {
		d.presenter.Countdown(d.sched.Until(now))
	}
}

func (d *Desk) onCountdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock()
	if d.sched.IsOpen(now) {
		d.countdown.Cancel()
		d.refreshLocked(now)
		return
	}
	d.presenter.Countdown(d.sched.Until(now))
}

func (d *Desk) onPrice(p decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock()
	if d.chart != nil {
		d.chart.AppendPrice(d.label(now), p)
		d.chart.Redraw()
	}
	if err := d.recorder.RecordPrice(model.PricePoint{Time: now, Price: p}); err != nil {
		log.Warn().Err(err).Msg("record price tick")
	}
	d.presenter.MarketStatus(model.MarketState{IsOpen: true, CurrentPrice: p})
}

func (d *Desk) marketLocked(now time.Time) model.MarketState {
	return model.MarketState{IsOpen: d.sched.IsOpen(now), CurrentPrice: d.feed.Current()}
}

// Market returns the market state as of the desk clock.
func (d *Desk) Market() model.MarketState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.marketLocked(d.clock())
}

func (d *Desk) label(t time.Time) string {
	return notifier.Label(t.In(d.sched.Location()))
}

// Engine exposes the session engine for inspection.
func (d *Desk) Engine() *session.Engine { return d.engine }

func (d *Desk) statsLocked(current decimal.Decimal) *notifier.Stats {
	series, ok := d.chart.(priceSeries)
	if !ok {
		return nil
	}
	prices := series.PriceValues()
	if len(prices) == 0 {
		return nil
	}
	st := &notifier.Stats{Ticks: len(prices)}
	period := smaPeriod
	if len(prices) < period {
		period = len(prices)
	}
	st.SMA, _ = calculator.SMA(prices, period)
	st.High, st.Low, _ = calculator.Range(prices, 0)
	st.Position = calculator.Position(current, st.High, st.Low)
	st.RSI, _ = calculator.RSI(prices, rsiPeriod)
	return st
}
