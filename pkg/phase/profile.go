package phase

import (
	"sync"
	"time"

	"simtrack/pkg/model"
	"simtrack/pkg/sim"
)

// Vertical speed thresholds in ft/min. The gap between them is hysteresis.
const (
	climbThreshold   = 300.0
	descentThreshold = -300.0
	levelBand        = 200.0
)

// ProfileTracker derives the Level/Climbing/Descending profile from primary
// samples. A change needs two consecutive confirmations.
type ProfileTracker struct {
	mu            sync.Mutex
	buf           *sim.VerticalSpeedBuffer
	current       model.VerticalProfile
	candidate     model.VerticalProfile
	confirmations int
}

// NewProfileTracker creates a tracker smoothing over window.
func NewProfileTracker(window time.Duration) *ProfileTracker {
	return &ProfileTracker{buf: sim.NewVerticalSpeedBuffer(window)}
}

// Update feeds one primary sample and returns the current profile.
func (t *ProfileTracker) Update(p model.PrimarySample) model.VerticalProfile {
	t.mu.Lock()
	defer t.mu.Unlock()

	vs, ok := t.buf.Update(p.Timestamp, p.AltitudeTrue)
	if !ok {
		vs = p.VerticalSpeed
	}

	candidate := t.current
	switch {
	case p.OnGround:
		candidate = model.ProfileLevel
	case vs > climbThreshold:
		candidate = model.ProfileClimbing
	case vs < descentThreshold:
		candidate = model.ProfileDescending
	case vs > -levelBand && vs < levelBand:
		candidate = model.ProfileLevel
	}

	switch {
	case candidate == t.current:
		t.candidate = t.current
		t.confirmations = 0
	case candidate == t.candidate:
		t.confirmations++
		if t.confirmations >= 1 {
			t.current = candidate
			t.confirmations = 0
		}
	default:
		t.candidate = candidate
		t.confirmations = 0
	}
	return t.current
}

// Current returns the last computed profile.
func (t *ProfileTracker) Current() model.VerticalProfile {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Reset forgets history, e.g. after a simulator reconnect.
func (t *ProfileTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Reset()
	t.current = model.ProfileLevel
	t.candidate = model.ProfileLevel
	t.confirmations = 0
}
