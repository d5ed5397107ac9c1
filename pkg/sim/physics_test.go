package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerticalSpeedBuffer(t *testing.T) {
	buf := NewVerticalSpeedBuffer(5 * time.Second)
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	_, ok := buf.Update(start, 1000)
	assert.False(t, ok, "first sample")
	vs, ok := buf.Update(start.Add(time.Second), 1000)
	assert.True(t, ok)
	assert.Zero(t, vs, "level")

	buf.Reset()
	_, ok = buf.Update(start.Add(2*time.Second), 1000)
	assert.False(t, ok, "reset buffer starts over")

	buf.Reset()
	buf.Update(start, 1000)
	// 100 ft in 6 s
	vs, _ = buf.Update(start.Add(6*time.Second), 1100)
	assert.InDelta(t, 1000, vs, 1)

	// The sample at t=0 is still the baseline: 90 ft in 7 s.
	vs, _ = buf.Update(start.Add(7*time.Second), 1090)
	assert.InDelta(t, 771.4, vs, 0.1)
}

func TestTouchdownLatch(t *testing.T) {
	var l TouchdownLatch
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	_, ok := l.Last()
	assert.False(t, ok)

	// On the ground from the start: no touchdown.
	assert.False(t, l.Observe(true, Touchdown{At: t0}))

	assert.False(t, l.Observe(false, Touchdown{At: t0.Add(time.Second), VerticalSpeed: -180, Pitch: 4.5, Bank: 1}))
	assert.True(t, l.Observe(true, Touchdown{At: t0.Add(2 * time.Second), VerticalSpeed: -2, GForce: 1.2, GroundSpeed: 130}))
	// Load peaks just after contact.
	assert.False(t, l.Observe(true, Touchdown{At: t0.Add(2500 * time.Millisecond), GForce: 1.4}))
	// Taxi bumps later are ignored.
	assert.False(t, l.Observe(true, Touchdown{At: t0.Add(30 * time.Second), GForce: 1.8}))

	td, ok := l.Last()
	assert.True(t, ok)
	assert.Equal(t, -180.0, td.VerticalSpeed)
	assert.Equal(t, 4.5, td.Pitch)
	assert.Equal(t, 1.4, td.GForce)
	assert.Equal(t, 130.0, td.GroundSpeed)
	assert.Equal(t, t0.Add(2*time.Second), td.At)
}
