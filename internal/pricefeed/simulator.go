// Package pricefeed produces a cosmetic random-walk price while the market is open.
package pricefeed

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"DailyInvestTrade/internal/timer"
)

// Config bounds the random walk.
type Config struct {
	Interval time.Duration
	Min      decimal.Decimal
	Max      decimal.Decimal
	MaxStep  decimal.Decimal
}

// DefaultConfig returns a 90s tick walking within [0, 100] by at most 2 per step.
func DefaultConfig() Config {
	return Config{
		Interval: 90 * time.Second,
		Min:      decimal.Zero,
		Max:      decimal.NewFromInt(100),
		MaxStep:  decimal.NewFromInt(2),
	}
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithRand replaces the default random source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// WithGate makes each tick ask open() first. When it reports false the
// simulator stops itself without producing a price and calls halted.
func WithGate(open func() bool, halted func()) Option {
	return func(s *Simulator) {
		s.gate = open
		s.halted = halted
	}
}

// WithStartPrice overrides the random initial price.
func WithStartPrice(p decimal.Decimal) Option {
	return func(s *Simulator) {
		s.price = p
		s.seeded = true
	}
}

// Simulator is a clamped random walk ticking on a timer slot.
type Simulator struct {
	mu     sync.Mutex
	cfg    Config
	rng    *rand.Rand
	price  decimal.Decimal
	slot   *timer.Slot
	gate   func() bool
	halted func()
	seeded bool
}

// NewSimulator creates a stopped simulator with a random price in [Min, Max).
func NewSimulator(timers timer.Scheduler, cfg Config, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:  cfg,
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		slot: timer.NewSlot(timers),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.seeded {
		s.price = s.randomPrice()
	} else {
		s.price = s.clamp(s.price)
	}
	return s
}

func (s *Simulator) randomPrice() decimal.Decimal {
	span := s.cfg.Max.Sub(s.cfg.Min).InexactFloat64()
	p := decimal.NewFromFloat(s.rng.Float64() * span).Round(2)
	return s.clamp(s.cfg.Min.Add(p))
}

func (s *Simulator) clamp(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(s.cfg.Min) {
		return s.cfg.Min
	}
	if p.GreaterThan(s.cfg.Max) {
		return s.cfg.Max
	}
	return p
}

// Current returns the latest price.
func (s *Simulator) Current() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.price
}

// Step advances the walk once and returns the new price.
func (s *Simulator) Step() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := int64(1)
	if s.rng.IntN(2) == 0 {
		dir = -1
	}
	magnitude := decimal.NewFromFloat(s.rng.Float64() * s.cfg.MaxStep.InexactFloat64()).Round(2)
	s.price = s.clamp(s.price.Add(magnitude.Mul(decimal.NewFromInt(dir))))
	return s.price
}

// Start arms the tick timer; onTick receives every new price. Starting a
// running simulator replaces its previous timer.
func (s *Simulator) Start(onTick func(decimal.Decimal)) {
	s.slot.Arm(s.cfg.Interval, func() { s.tick(onTick) })
	log.Debug().Dur("interval", s.cfg.Interval).Msg("price feed started")
}

// Stop cancels the tick timer immediately.
func (s *Simulator) Stop() {
	if !s.slot.Armed() {
		return
	}
	s.slot.Cancel()
	log.Debug().Msg("price feed stopped")
}

// Running reports whether the tick timer is armed.
func (s *Simulator) Running() bool {
	return s.slot.Armed()
}

func (s *Simulator) tick(onTick func(decimal.Decimal)) {
	if s.gate != nil && !s.gate() {
		s.Stop()
		if s.halted != nil {
			s.halted()
		}
		return
	}
	p := s.Step()
	if onTick != nil {
		onTick(p)
	}
}
