// Package timer provides repeating timers behind a small port so that market
// logic never touches timer setup directly.
package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Handle identifies an armed timer.
type Handle int

// Scheduler arms and cancels repeating callbacks.
type Scheduler interface {
	ArmRepeating(interval time.Duration, fn func()) Handle
	Cancel(h Handle)
}

// Cron implements Scheduler on top of robfig/cron.
type Cron struct {
	c *cron.Cron
}

// NewCron creates a cron-backed scheduler with second-level specs enabled.
func NewCron() *Cron {
	return &Cron{
		c: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DefaultLogger)),
		),
	}
}

// ArmRepeating runs fn every interval. Intervals below one second are rounded up by cron.
func (t *Cron) ArmRepeating(interval time.Duration, fn func()) Handle {
	id := t.c.Schedule(cron.Every(interval), cron.FuncJob(fn))
	return Handle(id)
}

// Cancel removes the timer. Unknown handles are ignored.
func (t *Cron) Cancel(h Handle) {
	t.c.Remove(cron.EntryID(h))
}

// AddSpec registers fn on a cron spec (seconds field first).
func (t *Cron) AddSpec(spec string, fn func()) (Handle, error) {
	id, err := t.c.AddFunc(spec, fn)
	if err != nil {
		return 0, fmt.Errorf("add cron spec %q: %w", spec, err)
	}
	return Handle(id), nil
}

// Start starts the underlying cron loop.
func (t *Cron) Start() {
	t.c.Start()
	log.Info().Msg("timer loop started")
}

// Stop stops the cron loop and waits for running callbacks to finish.
func (t *Cron) Stop() {
	<-t.c.Stop().Done()
	log.Info().Msg("timer loop stopped")
}

// Slot holds at most one live timer. Arming a slot cancels whatever it held before.
type Slot struct {
	mu     sync.Mutex
	timers Scheduler
	handle Handle
	armed  bool
}

// NewSlot returns an empty slot bound to timers.
func NewSlot(timers Scheduler) *Slot {
	return &Slot{timers: timers}
}

// Arm cancels any existing timer in the slot, then arms a new one.
func (s *Slot) Arm(interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		s.timers.Cancel(s.handle)
	}
	s.handle = s.timers.ArmRepeating(interval, fn)
	s.armed = true
}

// Cancel stops the timer held by the slot, if any.
func (s *Slot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return
	}
	s.timers.Cancel(s.handle)
	s.armed = false
}

// Armed reports whether the slot currently holds a live timer.
func (s *Slot) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}
