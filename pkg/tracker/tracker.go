package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker counts outcomes per source (simulator sample categories, remote
// services).
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*SourceStats
}

// SourceStats holds the counters for one source.
// Fields are accessed atomically.
type SourceStats struct {
	Success  int64 `json:"success"`
	Failures int64 `json:"failures"`
	Retries  int64 `json:"retries"`
	Skipped  int64 `json:"skipped"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*SourceStats),
	}
}

// getStats returns the stats object for a source, creating it if needed.
func (t *Tracker) getStats(source string) *SourceStats {
	t.mu.RLock()
	s, ok := t.stats[source]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[source]; ok {
		return s
	}
	s = &SourceStats{}
	t.stats[source] = s
	return s
}

// TrackSuccess increments the success counter.
func (t *Tracker) TrackSuccess(source string) {
	atomic.AddInt64(&t.getStats(source).Success, 1)
}

func (t *Tracker) TrackFailure(source string) {
	atomic.AddInt64(&t.getStats(source).Failures, 1)
}

func (t *Tracker) TrackRetry(source string) {
	atomic.AddInt64(&t.getStats(source).Retries, 1)
}

// TrackSkipped counts work that was not attempted, e.g. reads suppressed by backoff.
func (t *Tracker) TrackSkipped(source string) {
	atomic.AddInt64(&t.getStats(source).Skipped, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]SourceStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]SourceStats)
	for k, v := range t.stats {
		result[k] = SourceStats{
			Success:  atomic.LoadInt64(&v.Success),
			Failures: atomic.LoadInt64(&v.Failures),
			Retries:  atomic.LoadInt64(&v.Retries),
			Skipped:  atomic.LoadInt64(&v.Skipped),
		}
	}
	return result
}
