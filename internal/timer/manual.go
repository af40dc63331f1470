package timer

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by hand, for development and testing.
type Manual struct {
	mu      sync.Mutex
	next    Handle
	entries map[Handle]*manualEntry
}

type manualEntry struct {
	interval time.Duration
	fn       func()
}

// NewManual returns an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{entries: make(map[Handle]*manualEntry)}
}

func (m *Manual) ArmRepeating(interval time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.entries[m.next] = &manualEntry{interval: interval, fn: fn}
	return m.next
}

func (m *Manual) Cancel(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, h)
}

// Live returns the number of armed timers.
func (m *Manual) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// LiveWith returns the number of armed timers with the given interval.
func (m *Manual) LiveWith(interval time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.interval == interval {
			n++
		}
	}
	return n
}

// Fire runs, in arming order, every timer armed with interval. Timers cancelled
// by an earlier callback in the same round are skipped.
func (m *Manual) Fire(interval time.Duration) int {
	m.mu.Lock()
	var handles []Handle
	for h, e := range m.entries {
		if e.interval == interval {
			handles = append(handles, h)
		}
	}
	m.mu.Unlock()
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	fired := 0
	for _, h := range handles {
		m.mu.Lock()
		e, ok := m.entries[h]
		m.mu.Unlock()
		if !ok {
			continue
		}
		e.fn()
		fired++
	}
	return fired
}
