package sim

import (
	"sync"
	"time"
)

// VerticalSpeedBuffer smooths vertical speed over a rolling window of altitude samples.
type VerticalSpeedBuffer struct {
	mu      sync.Mutex
	samples []altSample
	window  time.Duration
}

type altSample struct {
	time time.Time
	alt  float64
}

// NewVerticalSpeedBuffer creates a buffer with the specified time window (e.g. 2s).
func NewVerticalSpeedBuffer(window time.Duration) *VerticalSpeedBuffer {
	return &VerticalSpeedBuffer{window: window}
}

// Update adds an altitude sample (ft) and returns the vertical speed in ft/min.
// ok is false until two samples span a positive interval.
func (b *VerticalSpeedBuffer) Update(now time.Time, alt float64) (fpm float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, altSample{time: now, alt: alt})

	// keep one sample older than the window as the baseline
	cutoff := now.Add(-b.window)
	for len(b.samples) > 2 && b.samples[1].time.Before(cutoff) {
		b.samples = b.samples[1:]
	}
	if len(b.samples) < 2 {
		return 0, false
	}

	first, last := b.samples[0], b.samples[len(b.samples)-1]
	dt := last.time.Sub(first.time).Seconds()
	if dt <= 0 {
		return 0, false
	}
	return (last.alt - first.alt) / dt * 60.0, true
}

// Reset clears the buffer.
func (b *VerticalSpeedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = nil
}

// Touchdown holds the values latched at the last air-to-ground transition.
type Touchdown struct {
	At            time.Time
	VerticalSpeed float64 // fpm, negative when descending
	GForce        float64
	Pitch         float64
	Bank          float64
	GroundSpeed   float64
	Latitude      float64
	Longitude     float64
}

// TouchdownLatch records the aircraft state in the frame the gear first touches.
// Simulators report the rate after ground contact, which is always near zero,
// so the value from the last airborne frame is kept instead.
type TouchdownLatch struct {
	mu        sync.Mutex
	airborne  bool
	lastAir   Touchdown
	touchdown *Touchdown
}

// Observe feeds one frame. It returns true on the frame that touched down.
func (l *TouchdownLatch) Observe(onGround bool, frame Touchdown) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !onGround {
		l.airborne = true
		l.lastAir = frame
		return false
	}
	if !l.airborne {
		// rollout: track the peak load after contact
		if l.touchdown != nil && frame.GForce > l.touchdown.GForce && frame.At.Sub(l.touchdown.At) < 2*time.Second {
			l.touchdown.GForce = frame.GForce
		}
		return false
	}

	l.airborne = false
	td := frame
	td.VerticalSpeed = l.lastAir.VerticalSpeed
	td.Pitch = l.lastAir.Pitch
	td.Bank = l.lastAir.Bank
	l.touchdown = &td
	return true
}

// Last returns the most recent touchdown, if any.
func (l *TouchdownLatch) Last() (Touchdown, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.touchdown == nil {
		return Touchdown{}, false
	}
	return *l.touchdown, true
}
