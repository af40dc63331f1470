package desk

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyInvestTrade/internal/ledger"
	"DailyInvestTrade/internal/model"
	"DailyInvestTrade/internal/notifier"
	"DailyInvestTrade/internal/pricefeed"
	"DailyInvestTrade/internal/receipt"
	"DailyInvestTrade/internal/recorder"
	"DailyInvestTrade/internal/schedule"
	"DailyInvestTrade/internal/session"
	"DailyInvestTrade/internal/store"
	"DailyInvestTrade/internal/timer"
)

const tickInterval = 90 * time.Second

// 2024-01-01 is a Monday.
func at(day, h, m, s int) time.Time {
	return time.Date(2024, 1, day, h, m, s, 0, time.UTC)
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type presenter struct {
	statuses   []model.MarketState
	countdowns []time.Duration
	notes      []string
}

func (p *presenter) MarketStatus(m model.MarketState) { p.statuses = append(p.statuses, m) }
func (p *presenter) Countdown(d time.Duration)        { p.countdowns = append(p.countdowns, d) }
func (p *presenter) Notify(msg string)                { p.notes = append(p.notes, msg) }

func (p *presenter) last() model.MarketState { return p.statuses[len(p.statuses)-1] }

type encoder struct {
	err   error
	calls int
}

func (e *encoder) WriteFile(r *model.Receipt) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return fmt.Sprintf("out/withdrawal_qr_code_%d.png", r.Timestamp.Unix()), nil
}

type countingRecorder struct {
	recorder.NoopRecorder
	trades, activities, withdrawals, prices int
}

func (r *countingRecorder) RecordTrade(model.Trade) error         { r.trades++; return nil }
func (r *countingRecorder) RecordActivity(model.Activity) error   { r.activities++; return nil }
func (r *countingRecorder) RecordWithdrawal(*model.Receipt) error { r.withdrawals++; return nil }
func (r *countingRecorder) RecordPrice(model.PricePoint) error    { r.prices++; return nil }

type specs struct{ jobs map[string]func() }

func (s *specs) AddSpec(spec string, fn func()) (timer.Handle, error) {
	if spec == "bad" {
		return 0, errors.New("bad spec")
	}
	s.jobs[spec] = fn
	return timer.Handle(len(s.jobs)), nil
}

type fixture struct {
	desk   *Desk
	timers *timer.Manual
	clock  *clock
	pres   *presenter
	chart  *notifier.SeriesChart
	rec    *countingRecorder
	enc    *encoder
	ledger *ledger.Ledger
}

func newFixture(t *testing.T, now time.Time, balance int64) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(map[string]string{store.KeyBalance: decimal.NewFromInt(balance).String()}))
	l, err := ledger.New(st, ledger.DefaultConfig())
	require.NoError(t, err)

	f := &fixture{
		timers: timer.NewManual(),
		clock:  &clock{now: now},
		pres:   &presenter{},
		chart:  notifier.NewSeriesChart(0),
		rec:    &countingRecorder{},
		enc:    &encoder{},
		ledger: l,
	}
	sched := schedule.New(
		[]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		[]schedule.Interval{{Start: 9 * 60, End: 17 * 60}},
		time.UTC,
	)
	d, err := New(Deps{
		Timers:    f.timers,
		Schedule:  sched,
		Ledger:    l,
		Session:   session.DefaultConfig(),
		Price:     pricefeed.Config{Interval: tickInterval, Min: decimal.Zero, Max: decimal.NewFromInt(100), MaxStep: decimal.Zero},
		PriceOpts: []pricefeed.Option{pricefeed.WithStartPrice(decimal.NewFromInt(10))},
		Presenter: f.pres,
		Chart:     f.chart,
		Recorder:  f.rec,
		Encoder:   f.enc,
		Clock:     f.clock.Now,
	})
	require.NoError(t, err)
	f.desk = d
	return f
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestStart_Open(t *testing.T) {
	f := newFixture(t, at(1, 10, 0, 0), 0)
	f.desk.Start()

	assert.Equal(t, 1, f.timers.LiveWith(tickInterval))
	assert.Equal(t, 0, f.timers.LiveWith(time.Second))
	require.Len(t, f.pres.statuses, 1)
	assert.True(t, f.pres.last().IsOpen)
	assert.Empty(t, f.pres.countdowns)

	// A second refresh in the same state changes nothing.
	f.desk.Refresh(f.clock.now)
	assert.Equal(t, 1, f.timers.Live())
	assert.Len(t, f.pres.statuses, 1)
}

func TestStart_ClosedArmsCountdown(t *testing.T) {
	f := newFixture(t, at(6, 12, 0, 0), 0) // Saturday
	f.desk.Start()

	assert.Equal(t, 0, f.timers.LiveWith(tickInterval))
	assert.Equal(t, 1, f.timers.LiveWith(time.Second))
	assert.False(t, f.pres.last().IsOpen)
	require.Len(t, f.pres.countdowns, 1)
	assert.Equal(t, 45*time.Hour, f.pres.countdowns[0])

	f.clock.now = f.clock.now.Add(time.Second)
	assert.Equal(t, 1, f.timers.Fire(time.Second))
	require.Len(t, f.pres.countdowns, 2)
	assert.Equal(t, 45*time.Hour-time.Second, f.pres.countdowns[1])
}

func TestCountdown_OpensMarket(t *testing.T) {
	f := newFixture(t, at(1, 8, 59, 59), 0)
	f.desk.Start()
	require.Equal(t, 1, f.timers.LiveWith(time.Second))

	f.clock.now = at(1, 9, 0, 0)
	f.timers.Fire(time.Second)

	assert.Equal(t, 0, f.timers.LiveWith(time.Second))
	assert.Equal(t, 1, f.timers.LiveWith(tickInterval))
	assert.True(t, f.pres.last().IsOpen)
	assert.Contains(t, f.pres.notes, "Market is now open!")
}

func TestPriceTick_ChartsAndCloses(t *testing.T) {
	f := newFixture(t, at(1, 16, 58, 0), 0)
	f.desk.Start()

	f.clock.now = at(1, 16, 59, 30)
	f.timers.Fire(tickInterval)
	require.Len(t, f.chart.Prices(), 1)
	assert.Equal(t, "16:59:30", f.chart.Prices()[0].Label)
	assert.Equal(t, 1, f.chart.Redraws())
	assert.Equal(t, 1, f.rec.prices)
	assert.True(t, f.pres.last().IsOpen)

	// 17:00 is still inside the inclusive interval; 17:01 is not.
	f.clock.now = at(1, 17, 1, 0)
	f.timers.Fire(tickInterval)
	assert.Len(t, f.chart.Prices(), 1, "no price once closed")
	assert.Equal(t, 0, f.timers.LiveWith(tickInterval))
	assert.Equal(t, 1, f.timers.LiveWith(time.Second))
	assert.False(t, f.pres.last().IsOpen)
	assert.NotEmpty(t, f.pres.countdowns)
}

func TestStop_CancelsEverything(t *testing.T) {
	f := newFixture(t, at(6, 12, 0, 0), 0)
	f.desk.Start()
	f.desk.Stop()
	assert.Equal(t, 0, f.timers.Live())
}

func TestHandleCommand_BuySell(t *testing.T) {
	f := newFixture(t, at(1, 10, 0, 0), 0)
	f.desk.Start()

	assert.Equal(t, "Deposit successful! NLE 20 added to your account.\nBalance: NLE 20.00",
		f.desk.HandleCommand("deposit DPT001"))
	assert.Equal(t, "Invalid or already used deposit code.", f.desk.HandleCommand("deposit DPT001"))
	assert.Equal(t, "Usage: deposit <code>", f.desk.HandleCommand("deposit"))

	assert.Equal(t, "Bought at NLE 10.00. Your current balance is NLE 10.00.", f.desk.HandleCommand("buy"))
	assert.Equal(t, "Sold at NLE 10.00. Your current balance is NLE 20.00.\nTotal Profit: NLE 0.00\nTotal Loss: NLE 0.00",
		f.desk.HandleCommand("SELL"))
	assert.Equal(t, "No available buy trades to sell!", f.desk.HandleCommand("sell"))

	assert.Len(t, f.chart.Buys(), 1)
	assert.Len(t, f.chart.Sells(), 1)
	assert.Equal(t, 2, f.rec.trades)
	assert.Equal(t, 3, f.rec.activities)

	trades := f.desk.HandleCommand("trades")
	assert.Contains(t, trades, "1. 10:00:00 buy @ NLE 10.00 [loss] closed @ NLE 10.00")

	history := f.desk.HandleCommand("history")
	assert.Equal(t, 4, strings.Count(history, "\n")+1)
}

func TestHandleCommand_ClosedMarket(t *testing.T) {
	f := newFixture(t, at(6, 12, 0, 0), 100)
	f.desk.Start()
	assert.Equal(t, "Market is closed. Please try again during trading hours.", f.desk.HandleCommand("buy"))
	assert.Zero(t, f.rec.trades)
}

func TestHandleCommand_SessionTimeoutRecordsLiquidation(t *testing.T) {
	f := newFixture(t, at(1, 10, 0, 0), 100)
	f.desk.Start()
	f.desk.HandleCommand("buy")
	f.desk.HandleCommand("buy")

	f.clock.now = f.clock.now.Add(16 * time.Minute)
	assert.Equal(t, "Trade session has timed out. All active buy trades are now marked as losses.",
		f.desk.HandleCommand("buy"))
	assert.Equal(t, 4, f.rec.trades)
	assert.True(t, f.ledger.Totals().Loss.Equal(decimal.NewFromInt(20)))
	assert.False(t, f.desk.Engine().State().Active())
}

func TestHandleCommand_Withdraw(t *testing.T) {
	f := newFixture(t, at(1, 10, 0, 0), 100)

	reply := f.desk.HandleCommand("withdraw alice|1 Main St|+23212345678|50")
	assert.Contains(t, reply, "Withdrawal of NLE 50.00 processed successfully.")
	assert.Contains(t, reply, "Saved to: out/withdrawal_qr_code_")
	assert.Equal(t, 1, f.enc.calls)
	assert.Equal(t, 1, f.rec.withdrawals)
	assert.True(t, f.ledger.Balance().Equal(decimal.NewFromInt(50)))

	f.enc.err = fmt.Errorf("%w: disk", receipt.ErrEncoderFailure)
	reply = f.desk.HandleCommand("withdraw alice|1 Main St|+23212345678|40")
	assert.Equal(t, "Withdrawal of NLE 40.00 processed successfully.\nAn error occurred while generating the QR code.", reply)
	assert.True(t, f.ledger.Balance().Equal(decimal.NewFromInt(10)), "encoder failure keeps the withdrawal")

	assert.Equal(t, "You have reached the maximum number of withdrawals for this week.",
		f.desk.HandleCommand("withdraw alice|1 Main St|+23212345678|40"))
}

func TestHandleCommand_WithdrawInput(t *testing.T) {
	f := newFixture(t, at(1, 10, 0, 0), 100)
	tests := []struct {
		line string
		want string
	}{
		{"withdraw alice|addr|+23212345678", "Usage: withdraw <username>|<address>|<telephone>|<amount>"},
		{"withdraw alice|addr|+23212345678|lots", "All fields are required."},
		{"withdraw |addr|+23212345678|50", "All fields are required."},
		{"withdraw alice|addr|+23212345678|39", "Minimum withdrawal amount is NLE 40."},
		{"withdraw alice|addr|+23212345678|201", "Maximum withdrawal amount is NLE 200."},
		{"withdraw alice|addr|0761234567|50", "Invalid telephone number format. Please use +232XXXXXXXX."},
		{"withdraw alice|addr|+23212345678|150", "Insufficient balance for withdrawal."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.desk.HandleCommand(tt.line), tt.line)
	}
	assert.Zero(t, f.enc.calls)
}

func TestHandleCommand_StatusAndMisc(t *testing.T) {
	f := newFixture(t, at(1, 10, 0, 0), 30)
	f.desk.Start()
	f.clock.now = at(1, 10, 1, 30)
	f.timers.Fire(tickInterval)

	status := f.desk.HandleCommand("status")
	assert.Contains(t, status, "Market Status: Open | Current Price: NLE 10.00")
	assert.Contains(t, status, "Balance: NLE 30.00")
	assert.Contains(t, status, "Session: not started")
	assert.Contains(t, status, "Price (1 ticks): SMA 10.00 | High 10.00 | Low 10.00")

	f.desk.HandleCommand("buy")
	assert.Contains(t, f.desk.HandleCommand("status"), "Session: 1/6 trades")
	assert.Equal(t, "Trade session reset.", f.desk.HandleCommand("reset"))
	assert.False(t, f.desk.Engine().State().Active())

	assert.Equal(t, "Balance: NLE 20.00\nTotal Profit: NLE 0.00\nTotal Loss: NLE 0.00", f.desk.HandleCommand("balance"))
	assert.Contains(t, f.desk.HandleCommand("codes"), "Available deposit codes (100):")
	assert.Equal(t, helpText, f.desk.HandleCommand("help"))
	assert.Equal(t, helpText, f.desk.HandleCommand("dance"))
}

func TestRegisterJobs_WeeklyReset(t *testing.T) {
	f := newFixture(t, at(1, 10, 0, 0), 500)
	s := &specs{jobs: map[string]func(){}}

	require.NoError(t, f.desk.RegisterJobs(s, ""))
	assert.Empty(t, s.jobs)
	assert.Error(t, f.desk.RegisterJobs(s, "bad"))

	require.NoError(t, f.desk.RegisterJobs(s, "0 0 0 * * 1"))
	reset := s.jobs["0 0 0 * * 1"]
	require.NotNil(t, reset)

	line := "withdraw bob|addr|+23212345678|40"
	f.desk.HandleCommand(line)
	f.desk.HandleCommand(line)
	assert.Contains(t, f.desk.HandleCommand(line), "maximum number of withdrawals")

	reset()
	assert.Contains(t, f.pres.notes, "Weekly withdrawal quota has been reset.")
	assert.Contains(t, f.desk.HandleCommand(line), "processed successfully")
}
