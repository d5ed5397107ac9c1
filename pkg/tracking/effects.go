package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mohae/deepcopy"

	"simtrack/pkg/logging"
	"simtrack/pkg/model"
)

// Effects is handed to session mutators. Every side effect is queued and
// dispatched once the session lock is released.
type Effects interface {
	Now() time.Time
	// Emit appends an event to the session log and announces it.
	Emit(kind model.EventType, sev model.Severity, msg string) model.TrackingEvent
	Banner(msg string)
	Sound(s Sound)
	Say(p Prompt)
	// Abort stops the session because of v. The session is reset on return.
	Abort(v Violation)
	// Finish completes the session and hands the report to the finalizer.
	Finish()
	// ConfirmResume checks a resuming session against the first live sample.
	ConfirmResume(p model.PrimarySample)
}

type txn struct {
	c      *Controller
	s      *Session
	ctx    context.Context
	now    time.Time
	before observed
	outbox []func()
}

func (t *txn) post(f func()) {
	t.outbox = append(t.outbox, f)
}

// commit returns the queued side effects followed by property notifications.
func (t *txn) commit() []func() {
	changes := t.before.diff(observe(t.s, t.now))
	out := t.outbox
	n := t.c.notifier
	for _, ch := range changes {
		out = append(out, func() { n.PropertyChanged(ch.name, ch.value) })
	}
	return out
}

func (t *txn) Now() time.Time { return t.now }

func (t *txn) Emit(kind model.EventType, sev model.Severity, msg string) model.TrackingEvent {
	snap := model.TelemetrySnapshot{Phase: t.s.Phase}
	if t.s.LastPrimary != nil {
		snap = model.SnapshotOf(*t.s.LastPrimary, t.s.Phase)
	}
	e := model.TrackingEvent{
		ID:        uuid.New(),
		Timestamp: t.now,
		Type:      kind,
		Severity:  sev,
		Message:   msg,
		Telemetry: snap,
	}
	t.s.Events = append(t.s.Events, e)

	c, ctx, sessionID := t.c, t.ctx, t.s.ID
	t.post(func() {
		logging.LogEvent(&e)
		c.notifier.EventAdded(e, model.MarkerFor(e))
		if err := c.events.AppendEvent(ctx, sessionID, e); err != nil {
			slog.Error("Tracking: failed to store event", "error", err)
		}
	})
	return e
}

func (t *txn) Banner(msg string) {
	n, d := t.c.notifier, t.c.cfg.BannerDuration
	t.post(func() { n.Banner(msg, d) })
}

func (t *txn) Sound(s Sound) {
	a := t.c.announcer
	t.post(func() { a.PlaySound(s) })
}

func (t *txn) Say(p Prompt) {
	if p == "" {
		return
	}
	a := t.c.announcer
	t.post(func() { a.Say(p) })
}

func (t *txn) Abort(v Violation) {
	if t.s.Status == model.StatusNotTracking {
		return
	}
	info := v.info()
	slog.Warn("Tracking: session aborted", "reason", info.name, "discard", info.discard, "phase", t.s.Phase)

	t.Emit(model.EventViolation, model.SeverityViolation, info.message)
	t.Banner(info.message)
	if !info.silent {
		t.Sound(SoundAbort)
		t.Say(info.prompt)
	}
	t.stop(info.discard)
}

func (t *txn) Finish() {
	s := t.s
	if s.Status == model.StatusNotTracking {
		return
	}
	t.Emit(model.EventTracking, model.SeverityInfo, "Flight tracking stopped")
	t.Sound(SoundFinish)
	t.Say(PromptTrackingFinished)

	r := &model.FlightReport{
		ID:            s.ID,
		StartedAt:     s.StartedAt,
		FinishedAt:    t.now,
		FinalPhase:    s.Phase,
		TimeWarp:      s.GroundHandling.TimeWarp,
		Events:        s.Events,
		Track:         s.Track,
		LastPrimary:   s.LastPrimary,
		LastSecondary: s.LastSecondary,
		Touchdown:     s.Touchdown,
	}
	if s.Flight != nil {
		r.Flight = *s.Flight
	}
	report := deepcopy.Copy(r).(*model.FlightReport)

	slog.Info("Tracking: session complete", "id", s.ID, "events", len(report.Events), "track_points", len(report.Track))
	c, ctx := t.c, t.ctx
	t.post(func() { c.finalizer.FinishUpFlightTracking(ctx, report) })
	t.stop(true)
}

func (t *txn) ConfirmResume(p model.PrimarySample) {
	t.confirmResume(p)
}

// stop ends the session and resets it in place.
func (t *txn) stop(discard bool) {
	c, ctx := t.c, t.ctx
	if c.groundCancel != nil {
		c.groundCancel()
		c.groundCancel = nil
	}

	switch {
	case discard:
		t.post(func() {
			if err := c.saver.DeleteSession(ctx); err != nil {
				slog.Warn("Tracking: failed to delete saved flight", "error", err)
			}
		})
	case t.s.Flight != nil:
		saved := deepcopy.Copy(t.s).(*Session)
		saved.ResumeTarget = resumableStatus(t.s)
		t.post(func() {
			if err := c.saver.SaveSession(ctx, saved); err != nil {
				slog.Error("Tracking: failed to save flight for resume", "error", err)
			}
		})
	}

	slog.Info("Tracking: session stopped", "id", t.s.ID, "discard", discard)
	t.s.reset()
}

func resumableStatus(s *Session) model.TrackingStatus {
	switch s.Status {
	case model.StatusGroundOperations, model.StatusTracking:
		return s.Status
	case model.StatusResuming:
		return s.ResumeTarget
	}
	return model.StatusGroundOperations
}

func (t *txn) startGroundLoop() {
	c := t.c
	if c.groundCancel != nil {
		c.groundCancel()
	}
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.groundCancel = cancel
	t.post(func() { go c.groundLoop(ctx) })
}
