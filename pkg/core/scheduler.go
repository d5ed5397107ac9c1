package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"simtrack/pkg/config"
	"simtrack/pkg/model"
	"simtrack/pkg/request"
	"simtrack/pkg/sim"
	"simtrack/pkg/tracker"
)

const (
	minTick        = 50 * time.Millisecond
	readBackoffMin = 500 * time.Millisecond
	readBackoffMax = 30 * time.Second
)

// Scheduler manages the central heartbeat: it polls the simulator state,
// reads each sample category at its own interval and runs the scheduled jobs.
type Scheduler struct {
	prov    config.Provider
	sim     sim.Client
	proc    SampleSubmitter
	tracker SessionTracker
	sink    TelemetrySink
	backoff *request.ProviderBackoff
	stats   *tracker.Tracker

	jobs       []Job
	resettable []SessionResettable

	mu        sync.Mutex
	latest    *model.PrimarySample
	lastState sim.State
}

// NewScheduler creates a Scheduler with one read job per sample category.
func NewScheduler(prov config.Provider, simClient sim.Client, proc SampleSubmitter, tracker SessionTracker, sink TelemetrySink) *Scheduler {
	s := &Scheduler{
		prov:      prov,
		sim:       simClient,
		proc:      proc,
		tracker:   tracker,
		sink:      sink,
		backoff:   request.NewProviderBackoff(readBackoffMin, readBackoffMax),
		lastState: sim.StateDisconnected,
	}
	bg := context.Background()
	s.jobs = []Job{
		NewIntervalJob(model.CategoryPrimary.String(), func() time.Duration { return prov.PrimaryInterval(bg) }, s.readPrimary),
		NewIntervalJob(model.CategorySecondary.String(), func() time.Duration { return prov.SecondaryInterval(bg) }, s.readSecondary),
		NewIntervalJob(model.CategoryLanding.String(), func() time.Duration { return prov.LandingInterval(bg) }, s.readLanding),
	}
	return s
}

// AddJob registers a job.
func (s *Scheduler) AddJob(j Job) {
	s.jobs = append(s.jobs, j)
}

// SetStats sets the tracker counting reads per category.
func (s *Scheduler) SetStats(t *tracker.Tracker) {
	s.stats = t
}

// AddResettable registers a component reset whenever the simulator reconnects.
func (s *Scheduler) AddResettable(r SessionResettable) {
	s.resettable = append(s.resettable, r)
}

// Latest returns the last primary sample read, nil before the first one.
func (s *Scheduler) Latest() *model.PrimarySample {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil
	}
	p := *s.latest
	return &p
}

// State returns the simulator state seen on the last tick.
func (s *Scheduler) State() sim.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastState
}

func (s *Scheduler) tickInterval(ctx context.Context) time.Duration {
	d := s.prov.PrimaryInterval(ctx)
	for _, v := range []time.Duration{s.prov.SecondaryInterval(ctx), s.prov.LandingInterval(ctx)} {
		if v > 0 && (d <= 0 || v < d) {
			d = v
		}
	}
	if d < minTick {
		d = minTick
	}
	return d
}

// Start runs the main loop. It blocks until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	interval := s.tickInterval(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Scheduler: started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler: stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
			if next := s.tickInterval(ctx); next != interval {
				interval = next
				ticker.Reset(interval)
				slog.Debug("Scheduler: tick interval changed", "interval", interval)
			}
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	state := s.sim.GetState()
	if s.sink != nil {
		s.sink.UpdateState(state)
	}
	s.handleTransition(ctx, state)

	if !state.IsActive() {
		return
	}

	latest := s.Latest()
	for _, job := range s.jobs {
		if job.ShouldFire(latest) {
			go job.Run(ctx, latest)
		}
	}
}

func (s *Scheduler) handleTransition(ctx context.Context, state sim.State) {
	s.mu.Lock()
	prev := s.lastState
	s.lastState = state
	s.mu.Unlock()

	if prev == state {
		return
	}
	slog.Info("Scheduler: simulator state changed", "from", prev, "to", state)

	switch {
	case state == sim.StateDisconnected:
		s.mu.Lock()
		s.latest = nil
		s.mu.Unlock()
		if s.tracker != nil && s.tracker.Status().IsActive() {
			slog.Warn("Scheduler: simulator lost during an active session")
			s.tracker.Disconnected(ctx)
		}
	case prev == sim.StateDisconnected:
		for _, r := range s.resettable {
			r.ResetSession(ctx)
		}
	}
}

// read runs fn unless the category is backing off after read errors.
func (s *Scheduler) read(cat model.Category, fn func() error) {
	key := cat.String()
	if !s.backoff.Ready(key) {
		if s.stats != nil {
			s.stats.TrackSkipped(key)
		}
		return
	}
	if err := fn(); err != nil {
		s.backoff.RecordFailure(key)
		if s.stats != nil {
			s.stats.TrackFailure(key)
		}
		failures, next := s.backoff.GetState(key)
		if errors.Is(err, sim.ErrNoData) {
			slog.Debug("Scheduler: no data yet", "category", key)
			return
		}
		slog.Warn("Scheduler: read failed", "category", key, "error", err, "failures", failures, "retry_at", next.Format(time.TimeOnly))
		return
	}
	s.backoff.RecordSuccess(key)
	if s.stats != nil {
		s.stats.TrackSuccess(key)
	}
}

func (s *Scheduler) readPrimary(ctx context.Context, _ *model.PrimarySample) {
	s.read(model.CategoryPrimary, func() error {
		p, err := s.sim.ReadPrimary(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.latest = &p
		s.mu.Unlock()
		if s.sink != nil {
			s.sink.Update(&p)
		}
		s.proc.Submit(p)
		return nil
	})
}

func (s *Scheduler) readSecondary(ctx context.Context, _ *model.PrimarySample) {
	s.read(model.CategorySecondary, func() error {
		v, err := s.sim.ReadSecondary(ctx)
		if err != nil {
			return err
		}
		s.proc.Submit(v)
		return nil
	})
}

func (s *Scheduler) readLanding(ctx context.Context, _ *model.PrimarySample) {
	s.read(model.CategoryLanding, func() error {
		v, err := s.sim.ReadLanding(ctx)
		if err != nil {
			return err
		}
		s.proc.Submit(v)
		return nil
	})
}

// NewTrackRecorder returns a job appending the position to the flown track
// every threshold meters.
func NewTrackRecorder(tracker SessionTracker, thresholdMeters float64) *DistanceJob {
	return NewDistanceJob("TrackRecorder", thresholdMeters, func(ctx context.Context, p *model.PrimarySample) {
		if !tracker.Status().IsActive() {
			return
		}
		tracker.RecordPosition(ctx, *p)
	})
}
