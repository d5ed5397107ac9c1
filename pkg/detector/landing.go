package detector

import (
	"fmt"
	"math"

	"simtrack/pkg/model"
	"simtrack/pkg/tracking"
)

// AnalyzeLanding records the touchdown when a landing-analysis pair shows
// the transition from air to ground after the aircraft was airborne.
func (d *Detector) AnalyzeLanding(s *tracking.Session, fx tracking.Effects, pair model.Pair[model.LandingSample]) []model.TrackingEvent {
	if s.Status != model.StatusTracking || !s.WasAirborne {
		return nil
	}
	if pair.Old.OnGround || !pair.New.OnGround {
		return nil
	}

	r := &recorder{Effects: fx}
	td := pair.New
	s.Touchdown = &td

	sev := model.SeverityInfo
	if math.Abs(td.VerticalSpeed) > d.cfg.HardLandingFPM {
		sev = model.SeverityWarning
	}
	r.Emit(model.EventTouchdown, sev, fmt.Sprintf("Touchdown at %.0f fpm, %.2f G", td.VerticalSpeed, td.GForce))
	d.logger.Info("Detector: touchdown", "fpm", td.VerticalSpeed, "g", td.GForce, "pitch", td.Pitch, "bank", td.Bank)
	return r.events
}
