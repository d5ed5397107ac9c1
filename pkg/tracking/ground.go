package tracking

import (
	"context"
	"log/slog"
	"time"

	"simtrack/pkg/model"
)

// groundLoop advances the loading timers until ground handling completes or
// ctx is cancelled. Only one loop runs at a time.
func (c *Controller) groundLoop(ctx context.Context) {
	select {
	case c.groundSem <- struct{}{}:
	case <-time.After(time.Second):
		slog.Warn("Tracking: ground handling loop already running, dropping duplicate")
		return
	case <-ctx.Done():
		return
	}
	defer func() { <-c.groundSem }()

	ticker := time.NewTicker(c.cfg.GroundTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.tickGround(ctx) {
				return
			}
		}
	}
}

// tickGround reports whether the loop should keep running.
func (c *Controller) tickGround(ctx context.Context) bool {
	more := false
	c.Update(ctx, func(s *Session, fx Effects) {
		if s.Status != model.StatusGroundOperations {
			return
		}
		fx.(*txn).advanceGroundHandling()
		more = s.Status == model.StatusGroundOperations
	})
	return more
}

func (t *txn) advanceGroundHandling() {
	s := t.s
	if s.Flight == nil {
		slog.Warn("Tracking: ground handling without a bound flight")
		s.GroundHandling = GroundHandling{TimeWarp: s.GroundHandling.TimeWarp}
		return
	}

	g := &s.GroundHandling
	if !g.FuelComplete && !g.FuelDue.IsZero() && !t.now.Before(g.FuelDue) {
		g.FuelComplete = true
	}
	if !g.PayloadComplete && !g.PayloadDue.IsZero() && !t.now.Before(g.PayloadDue) {
		g.PayloadComplete = true
	}
	if !g.Complete() {
		return
	}

	t.Say(PromptFuelLoadingComplete)
	t.Say(PromptPayloadLoadingComplete)
	s.Status = model.StatusTracking
	t.Emit(model.EventTracking, model.SeverityInfo, "Ground handling complete")
	t.Say(PromptReadyPushStart)
	slog.Info("Tracking: ground handling complete", "id", s.ID, "time_warp", g.TimeWarp)
}

// SkipGroundHandling finishes both loading timers now and credits the time
// saved. With startTracking the session moves to Tracking immediately,
// otherwise on the next ground handling tick.
func (c *Controller) SkipGroundHandling(ctx context.Context, startTracking bool) bool {
	ok := false
	c.Update(ctx, func(s *Session, fx Effects) {
		if s.Status != model.StatusGroundOperations || s.GroundHandling.Complete() {
			return
		}
		t := fx.(*txn)
		g := &s.GroundHandling
		fuel, payload := g.remaining(t.now)
		saved := max(fuel, payload)

		g.TimeWarp += saved
		if !g.FuelComplete {
			g.FuelDue = t.now
		}
		if !g.PayloadComplete {
			g.PayloadDue = t.now
		}
		ok = true
		slog.Info("Tracking: ground handling skipped", "saved", saved, "start_tracking", startTracking)

		if startTracking {
			t.advanceGroundHandling()
		}
	})
	return ok
}

// SpeedUpGroundHandling halves the remaining loading time of both timers and
// credits half of the remaining time.
func (c *Controller) SpeedUpGroundHandling(ctx context.Context) bool {
	ok := false
	c.Update(ctx, func(s *Session, fx Effects) {
		if s.Status != model.StatusGroundOperations || s.GroundHandling.Complete() {
			return
		}
		now := fx.Now()
		g := &s.GroundHandling
		fuel, payload := g.remaining(now)
		if fuel == 0 && payload == 0 {
			return
		}
		if fuel > 0 {
			g.FuelDue = now.Add(fuel / 2)
		}
		if payload > 0 {
			g.PayloadDue = now.Add(payload / 2)
		}
		g.TimeWarp += max(fuel, payload) / 2
		ok = true
		slog.Info("Tracking: ground handling sped up", "fuel_remaining", fuel/2, "payload_remaining", payload/2)
	})
	return ok
}
