package detector

import (
	"fmt"
	"math"

	"simtrack/pkg/model"
	"simtrack/pkg/tracking"
)

type toggle struct {
	name     string
	get      func(*model.SecondarySample) bool
	eventTyp model.EventType
}

var lightToggles = []toggle{
	{"Beacon light", func(s *model.SecondarySample) bool { return s.BeaconLight }, model.EventLights},
	{"Nav lights", func(s *model.SecondarySample) bool { return s.NavLight }, model.EventLights},
	{"Strobe lights", func(s *model.SecondarySample) bool { return s.StrobeLight }, model.EventLights},
	{"Taxi lights", func(s *model.SecondarySample) bool { return s.TaxiLight }, model.EventLights},
	{"Landing lights", func(s *model.SecondarySample) bool { return s.LandingLight }, model.EventLights},
}

var systemToggles = []toggle{
	{"Battery master", func(s *model.SecondarySample) bool { return s.BatteryMaster }, model.EventSystems},
	{"Parking brake", func(s *model.SecondarySample) bool { return s.ParkingBrake }, model.EventSystems},
	{"Spoilers armed", func(s *model.SecondarySample) bool { return s.SpoilersArmed }, model.EventSystems},
	{"APU generator", func(s *model.SecondarySample) bool { return s.APUGenerator }, model.EventSystems},
	{"Seatbelt signs", func(s *model.SecondarySample) bool { return s.SeatbeltSigns }, model.EventSystems},
	{"No smoking signs", func(s *model.SecondarySample) bool { return s.NoSmokingSigns }, model.EventSystems},
	{"Autopilot", func(s *model.SecondarySample) bool { return s.AutopilotEngaged }, model.EventSystems},
}

// DetectSecondary diffs a secondary pair. It returns the events it emitted
// and may abort or finish the session.
func (d *Detector) DetectSecondary(s *tracking.Session, fx tracking.Effects, pair model.Pair[model.SecondarySample]) []model.TrackingEvent {
	if !detecting(s) {
		return nil
	}
	r := &recorder{Effects: fx}
	d.detectSecondary(s, r, pair)
	return r.events
}

func (d *Detector) detectSecondary(s *tracking.Session, fx tracking.Effects, pair model.Pair[model.SecondarySample]) {
	old, cur := &pair.Old, &pair.New
	var p model.PrimarySample
	if s.LastPrimary != nil {
		p = *s.LastPrimary
	}

	// Integrity
	if !cur.CrashDetection {
		fx.Abort(tracking.ViolationCrashDetection)
		return
	}
	if cur.UnlimitedFuel {
		fx.Abort(tracking.ViolationUnlimitedFuel)
		return
	}

	// Lights
	for _, t := range lightToggles {
		if o, n := t.get(old), t.get(cur); o != n {
			fx.Emit(t.eventTyp, model.SeverityInfo, fmt.Sprintf("%s %s", t.name, onOff(n)))
		}
	}
	if old.BeaconLight && !cur.BeaconLight && cur.EngineRunning {
		msg := "Beacon light turned off while an engine is running"
		fx.Emit(model.EventWarning, model.SeverityWarning, msg)
		fx.Banner(msg)
	}

	// Engine
	if !old.EngineRunning && cur.EngineRunning {
		fx.Emit(model.EventEngine, model.SeverityInfo, "Engine started")
		if s.Status == model.StatusGroundOperations {
			fx.Abort(tracking.ViolationEngineDuringGroundHandling)
			return
		}
		if !cur.BeaconLight {
			fx.Emit(model.EventWarning, model.SeverityWarning, "Engine started with the beacon light off")
			fx.Say(tracking.PromptBeaconOff)
		}
		d.warnBrightLights(fx, cur, "start")
	}
	if old.EngineRunning && !cur.EngineRunning {
		fx.Emit(model.EventEngine, model.SeverityInfo, "Engine stopped")
		d.warnBrightLights(fx, cur, "shutdown")
		if s.TaxiInStarted && !s.TaxiInTurned {
			fx.Emit(model.EventWarning, model.SeverityWarning, "Possible engine shutdown on the runway")
		}
		switch {
		case p.OnGround && p.GroundSpeed < 1 && s.WasAirborne:
			d.logger.Info("Detector: engine shutdown after landing, finishing flight")
			fx.Finish()
			return
		case !s.WasAirborne:
			fx.Abort(tracking.ViolationNeverAirborne)
			return
		}
	}

	// Pushback
	if old.Pushback == model.PushbackNone && cur.Pushback != model.PushbackNone {
		if s.Status == model.StatusGroundOperations {
			fx.Abort(tracking.ViolationPushbackDuringGroundHandling)
			return
		}
		fx.Emit(model.EventPushback, model.SeverityInfo, "Pushback started")
	}
	if old.Pushback != model.PushbackNone && cur.Pushback == model.PushbackNone {
		fx.Emit(model.EventPushback, model.SeverityInfo, "Pushback finished")
	}

	// Systems
	for _, t := range systemToggles {
		if o, n := t.get(old), t.get(cur); o != n {
			fx.Emit(t.eventTyp, model.SeverityInfo, fmt.Sprintf("%s %s", t.name, onOff(n)))
		}
	}
	if old.GearDown != cur.GearDown {
		switch {
		case !cur.GearDown && p.OnGround:
			msg := "Gear handle raised on the ground"
			fx.Emit(model.EventWarning, model.SeverityWarning, msg)
			fx.Banner(msg)
		case cur.GearDown:
			fx.Emit(model.EventSystems, model.SeverityInfo, "Gear down")
		default:
			fx.Emit(model.EventSystems, model.SeverityInfo, "Gear up")
		}
	}
	d.checkFlaps(s, fx, old.FlapsPercent, cur.FlapsPercent)

	d.checkLandingLights(s, fx, s.LastPrimary, cur)
}

// checkFlaps reports the flap setting once it has moved a full percent from
// the last reported value.
func (d *Detector) checkFlaps(s *tracking.Session, fx tracking.Effects, old, cur float64) {
	if s.LastFlapsPercent == nil {
		s.LastFlapsPercent = &old
	}
	if math.Abs(cur-*s.LastFlapsPercent) < 1 {
		return
	}
	fx.Emit(model.EventSystems, model.SeverityInfo, fmt.Sprintf("Flaps set to %.0f%%", cur))
	s.LastFlapsPercent = &cur
}

// warnBrightLights flags taxi or landing lights left on during an engine toggle.
func (d *Detector) warnBrightLights(fx tracking.Effects, cur *model.SecondarySample, what string) {
	if cur.TaxiLight || cur.LandingLight {
		fx.Emit(model.EventWarning, model.SeverityWarning, fmt.Sprintf("Taxi or landing lights on during engine %s", what))
	}
}
