package detector

import (
	"fmt"
	"math"
	"time"

	"simtrack/pkg/geo"
	"simtrack/pkg/model"
	"simtrack/pkg/tracking"
)

// knotsPerMeterPerSecond converts m/s to kt.
const knotsPerMeterPerSecond = 1.944

// DetectPrimary diffs a primary pair. It returns the events it emitted and
// may abort the session on integrity violations.
func (d *Detector) DetectPrimary(s *tracking.Session, fx tracking.Effects, pair model.Pair[model.PrimarySample]) []model.TrackingEvent {
	if !detecting(s) {
		return nil
	}
	r := &recorder{Effects: fx}
	d.detectPrimary(s, r, pair)
	return r.events
}

func (d *Detector) detectPrimary(s *tracking.Session, fx tracking.Effects, pair model.Pair[model.PrimarySample]) {
	old, cur := pair.Old, pair.New

	if cur.SlewActive {
		fx.Abort(tracking.ViolationSlew)
		return
	}
	// The main menu parks the aircraft at 0/0. The classifier ends the
	// session for that, so position and clock jumps are not violations here.
	if !inMainMenu(cur) {
		if d.teleported(old, cur) {
			fx.Abort(tracking.ViolationTeleport)
			return
		}
		if v, ok := d.timeManipulated(old, cur); ok {
			fx.Abort(v)
			return
		}
	}

	at := sampleTime(cur.Timestamp, fx)
	if !old.OverspeedWarning && cur.OverspeedWarning && d.debounced(&s.LastOverspeed, at) {
		fx.Emit(model.EventWarning, model.SeverityWarning, "Overspeed")
	}
	if !old.StallWarning && cur.StallWarning && d.debounced(&s.LastStall, at) {
		fx.Emit(model.EventWarning, model.SeverityWarning, "Stall warning")
	}

	d.checkLandingLights(s, fx, &cur, s.LastSecondary)
}

func inMainMenu(p model.PrimarySample) bool {
	return p.OnGround && geo.NearNullIsland(p.Latitude, p.Longitude)
}

// debounced reports whether an event last emitted at *last may fire again at
// now, and records now when it may.
func (d *Detector) debounced(last *time.Time, now time.Time) bool {
	if !last.IsZero() && now.Sub(*last) < d.cfg.DebounceWindow {
		return false
	}
	*last = now
	return true
}

// teleported reports a displacement faster than the aircraft could have flown.
func (d *Detector) teleported(old, cur model.PrimarySample) bool {
	elapsed := cur.Timestamp.Sub(old.Timestamp).Seconds()
	if elapsed <= 0 {
		return false
	}
	rate := math.Max(old.SimulationRate, cur.SimulationRate)
	if rate <= 0 {
		rate = 1
	}
	maxMeters := d.cfg.TeleportSpeedKt / knotsPerMeterPerSecond * rate * elapsed
	moved := geo.Distance(geo.Point{Lat: old.Latitude, Lon: old.Longitude}, geo.Point{Lat: cur.Latitude, Lon: cur.Longitude})
	if moved > maxMeters {
		d.logger.Warn("Detector: teleport detected",
			"moved_m", fmt.Sprintf("%.0f", moved), "max_m", fmt.Sprintf("%.0f", maxMeters), "elapsed_s", elapsed, "rate", rate)
		return true
	}
	return false
}

// timeManipulated compares the simulator clock with the elapsed sample time.
func (d *Detector) timeManipulated(old, cur model.PrimarySample) (tracking.Violation, bool) {
	if old.SimTime.IsZero() || cur.SimTime.IsZero() {
		return 0, false
	}
	delta := cur.SimTime.Sub(old.SimTime)
	if delta < -d.cfg.TimeBackwardTolerance {
		d.logger.Warn("Detector: simulator time moved backward", "delta", delta)
		return tracking.ViolationTimeBackward, true
	}

	rate := math.Max(old.SimulationRate, cur.SimulationRate)
	if rate <= 0 {
		rate = 1
	}
	var expected time.Duration
	if wall := cur.Timestamp.Sub(old.Timestamp); wall > 0 {
		expected = time.Duration(float64(wall) * rate)
	}
	if delta-expected > d.cfg.TimeForwardTolerance {
		d.logger.Warn("Detector: simulator time jumped forward", "delta", delta, "expected", expected)
		return tracking.ViolationTimeForward, true
	}
	return 0, false
}
