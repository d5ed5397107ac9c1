package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohae/deepcopy"

	"simtrack/pkg/geo"
	"simtrack/pkg/model"
)

var (
	// ErrNotTracking is returned by commands that need an active session.
	ErrNotTracking = errors.New("not tracking")
	// ErrAlreadyTracking is returned when a session is already active.
	ErrAlreadyTracking = errors.New("already tracking")
	// ErrNoSavedFlight is returned by ResumeTracking when nothing can be resumed.
	ErrNoSavedFlight = errors.New("no saved flight")
)

// Config holds the controller timings.
type Config struct {
	GroundTick          time.Duration // ground handling loop interval
	BannerDuration      time.Duration
	FuelRateKgPerMin    float64
	PayloadRateKgPerMin float64
	MinLoadingTime      time.Duration
	ResumeMaxDistanceNM float64
}

// DefaultConfig returns the standard controller timings.
func DefaultConfig() Config {
	return Config{
		GroundTick:          5 * time.Second,
		BannerDuration:      5 * time.Second,
		FuelRateKgPerMin:    1000,
		PayloadRateKgPerMin: 500,
		MinLoadingTime:      time.Minute,
		ResumeMaxDistanceNM: 2,
	}
}

// Sinks are the collaborators the controller reports to. Nil fields are ignored.
type Sinks struct {
	Notifier  Notifier
	Announcer Announcer
	Finalizer Finalizer
	Saver     SessionSaver
	Events    EventLog
}

// Controller owns the tracking session and serializes every mutation of it.
type Controller struct {
	cfg Config

	notifier  Notifier
	announcer Announcer
	finalizer Finalizer
	saver     SessionSaver
	events    EventLog

	mu      sync.Mutex
	session Session
	now     func() time.Time

	baseCtx      context.Context
	groundSem    chan struct{}
	groundCancel context.CancelFunc
}

// NewController creates a controller with no active session.
func NewController(cfg Config, sinks Sinks) *Controller {
	c := &Controller{
		cfg:       cfg,
		notifier:  sinks.Notifier,
		announcer: sinks.Announcer,
		finalizer: sinks.Finalizer,
		saver:     sinks.Saver,
		events:    sinks.Events,
		now:       time.Now,
		baseCtx:   context.Background(),
		groundSem: make(chan struct{}, 1),
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.announcer == nil {
		c.announcer = nopAnnouncer{}
	}
	if c.finalizer == nil {
		c.finalizer = nopFinalizer{}
	}
	if c.saver == nil {
		c.saver = nopSaver{}
	}
	if c.events == nil {
		c.events = nopEventLog{}
	}
	if c.cfg.GroundTick <= 0 {
		c.cfg.GroundTick = 5 * time.Second
	}
	c.session.reset()
	return c
}

// SetClock replaces the wall clock. Used by tests and replays.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Start binds the controller to the application lifetime. Background loops
// stop when ctx is cancelled.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseCtx = ctx
}

// Update runs fn with exclusive access to the session. Property changes and
// side effects are dispatched after the lock is released, in order. A panic
// in fn releases the lock and drops the pending side effects.
func (c *Controller) Update(ctx context.Context, fn func(s *Session, fx Effects)) {
	for _, f := range c.apply(ctx, fn) {
		f()
	}
}

func (c *Controller) apply(ctx context.Context, fn func(s *Session, fx Effects)) []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.begin(ctx)
	fn(&c.session, t)
	return t.commit()
}

// begin must be called with c.mu held.
func (c *Controller) begin(ctx context.Context) *txn {
	now := c.now()
	return &txn{
		c:      c,
		s:      &c.session,
		ctx:    ctx,
		now:    now,
		before: observe(&c.session, now),
	}
}

// Snapshot returns a deep copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *deepcopy.Copy(&c.session).(*Session)
}

// Status returns the current tracking status.
func (c *Controller) Status() model.TrackingStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Status
}

// Phase returns the current flight phase.
func (c *Controller) Phase() model.FlightPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Phase
}

// Events returns a copy of the session event log.
func (c *Controller) Events() []model.TrackingEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.TrackingEvent, len(c.session.Events))
	copy(out, c.session.Events)
	return out
}

// StartTracking binds flight to a new session and enters ground operations.
func (c *Controller) StartTracking(ctx context.Context, flight model.Flight) error {
	var err error
	c.Update(ctx, func(s *Session, fx Effects) {
		if s.Status != model.StatusNotTracking {
			err = ErrAlreadyTracking
			return
		}
		t := fx.(*txn)
		now := fx.Now()

		s.reset()
		s.ID = uuid.NewString()
		f := flight
		s.Flight = &f
		s.Status = model.StatusPreparing
		s.StartedAt = now

		s.GroundHandling = GroundHandling{
			FuelDue:    now.Add(c.loadingTime(flight.FuelKg, c.cfg.FuelRateKgPerMin)),
			PayloadDue: now.Add(c.loadingTime(flight.PayloadKg, c.cfg.PayloadRateKgPerMin)),
		}
		s.Status = model.StatusGroundOperations

		fx.Emit(model.EventTracking, model.SeverityInfo, fmt.Sprintf("Flight tracking started: %s %s-%s",
			flight.Number, flight.Origin.ICAO, flight.Destination.ICAO))
		fx.Sound(SoundStart)
		fx.Say(PromptTrackingStarted)

		t.post(func() {
			if err := c.saver.DeleteSession(ctx); err != nil {
				slog.Warn("Tracking: failed to clear saved flight", "error", err)
			}
		})
		t.startGroundLoop()
		slog.Info("Tracking: session started", "id", s.ID, "flight", flight.Number,
			"fuel_due", s.GroundHandling.FuelDue.Format(time.TimeOnly),
			"payload_due", s.GroundHandling.PayloadDue.Format(time.TimeOnly))
	})
	return err
}

func (c *Controller) loadingTime(kg, ratePerMin float64) time.Duration {
	d := c.cfg.MinLoadingTime
	if ratePerMin > 0 && kg > 0 {
		if v := time.Duration(kg / ratePerMin * float64(time.Minute)); v > d {
			d = v
		}
	}
	return d
}

// ResumeTracking restores the saved flight and waits for the first primary
// sample to confirm the aircraft is where it was left.
func (c *Controller) ResumeTracking(ctx context.Context) error {
	if c.Status() != model.StatusNotTracking {
		return ErrAlreadyTracking
	}
	saved, err := c.saver.LoadSession(ctx)
	if err != nil {
		return fmt.Errorf("load saved flight: %w", err)
	}
	if saved == nil || saved.Flight == nil {
		return ErrNoSavedFlight
	}

	c.Update(ctx, func(s *Session, fx Effects) {
		if s.Status != model.StatusNotTracking {
			err = ErrAlreadyTracking
			return
		}
		target := saved.Status
		if target != model.StatusGroundOperations && target != model.StatusTracking {
			target = saved.ResumeTarget
		}
		if target != model.StatusGroundOperations && target != model.StatusTracking {
			target = model.StatusTracking
		}
		liveSecondary := s.LastSecondary
		*s = *saved
		if liveSecondary != nil {
			s.LastSecondary = liveSecondary
		}
		if s.Events == nil {
			s.Events = []model.TrackingEvent{}
		}
		if s.Track == nil {
			s.Track = []model.TrackPoint{}
		}
		s.ResumeTarget = target
		s.Status = model.StatusResuming
		fx.Emit(model.EventTracking, model.SeverityInfo, "Resuming flight tracking")
		slog.Info("Tracking: resuming saved flight", "id", s.ID, "target", target)
	})
	return err
}

// StopTracking ends the session on user request. With discard the saved
// flight is deleted, otherwise the session is kept for a later resume.
func (c *Controller) StopTracking(ctx context.Context, discard bool) error {
	var err error
	c.Update(ctx, func(s *Session, fx Effects) {
		if s.Status == model.StatusNotTracking {
			err = ErrNotTracking
			return
		}
		fx.Emit(model.EventTracking, model.SeverityInfo, "Flight tracking stopped by user")
		fx.(*txn).stop(discard)
	})
	return err
}

// Disconnected aborts an active session after the simulator connection was lost.
func (c *Controller) Disconnected(ctx context.Context) {
	c.Update(ctx, func(s *Session, fx Effects) {
		if s.Status == model.StatusNotTracking {
			return
		}
		fx.Abort(ViolationDisconnected)
	})
}

// MarkTaxiInTurned records that the aircraft turned off the runway during taxi-in.
func (c *Controller) MarkTaxiInTurned(ctx context.Context) {
	c.Update(ctx, func(s *Session, _ Effects) {
		if s.TaxiInStarted {
			s.TaxiInTurned = true
		}
	})
}

// RecordPosition appends p to the flown track of an active session.
func (c *Controller) RecordPosition(ctx context.Context, p model.PrimarySample) {
	c.Update(ctx, func(s *Session, _ Effects) {
		if !s.Status.IsActive() {
			return
		}
		s.Track = append(s.Track, model.TrackPoint{
			Lat:      p.Latitude,
			Lon:      p.Longitude,
			Altitude: p.AltitudeTrue,
			Time:     p.Timestamp,
		})
	})
}

// PersistableSession returns a copy of the session when it is worth saving.
func (c *Controller) PersistableSession() (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.session.Status {
	case model.StatusGroundOperations, model.StatusTracking:
		return deepcopy.Copy(&c.session).(*Session), true
	}
	return nil, false
}

// confirmResume restores the saved status once the aircraft is close enough
// to the saved position. It must run before LastPrimary is replaced by p.
func (t *txn) confirmResume(p model.PrimarySample) {
	s := t.s
	if s.Status != model.StatusResuming {
		return
	}
	if ref := s.LastPrimary; ref != nil {
		d := geo.DistanceNM(geo.Point{Lat: ref.Latitude, Lon: ref.Longitude}, geo.Point{Lat: p.Latitude, Lon: p.Longitude})
		if limit := t.c.cfg.ResumeMaxDistanceNM; limit > 0 && d > limit {
			slog.Warn("Tracking: resume position mismatch", "distance_nm", d, "max_nm", limit)
			t.Abort(ViolationResumeTooFar)
			return
		}
	}
	s.Status = s.ResumeTarget
	t.Emit(model.EventTracking, model.SeverityInfo, "Flight tracking resumed")
	if s.Status == model.StatusGroundOperations {
		t.startGroundLoop()
	}
	slog.Info("Tracking: resume confirmed", "id", s.ID, "status", s.Status)
}
