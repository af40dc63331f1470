package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_ArmCancelsPrevious(t *testing.T) {
	m := NewManual()
	s := NewSlot(m)

	var first, second int
	s.Arm(time.Second, func() { first++ })
	s.Arm(time.Second, func() { second++ })

	assert.Equal(t, 1, m.Live())
	m.Fire(time.Second)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestSlot_CancelIsIdempotent(t *testing.T) {
	m := NewManual()
	s := NewSlot(m)

	s.Cancel()
	assert.False(t, s.Armed())

	s.Arm(time.Minute, func() {})
	assert.True(t, s.Armed())
	s.Cancel()
	s.Cancel()
	assert.False(t, s.Armed())
	assert.Equal(t, 0, m.Live())
}

func TestManual_CancelDuringFire(t *testing.T) {
	m := NewManual()
	a := NewSlot(m)
	b := NewSlot(m)

	var bFired bool
	a.Arm(time.Second, func() { b.Cancel() })
	b.Arm(time.Second, func() { bFired = true })

	assert.Equal(t, 1, m.Fire(time.Second))
	assert.False(t, bFired)
}

func TestCron_ArmAndCancel(t *testing.T) {
	c := NewCron()
	c.Start()
	defer c.Stop()

	var n atomic.Int32
	h := c.ArmRepeating(time.Second, func() { n.Add(1) })

	require.Eventually(t, func() bool { return n.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	c.Cancel(h)
	seen := n.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.LessOrEqual(t, n.Load(), seen+1)
}

func TestCron_AddSpecRejectsGarbage(t *testing.T) {
	c := NewCron()
	_, err := c.AddSpec("not a spec", func() {})
	assert.Error(t, err)

	_, err = c.AddSpec("0 0 0 * * 1", func() {})
	assert.NoError(t, err)
}
