package detector

import (
	"log/slog"
	"time"

	"simtrack/pkg/model"
	"simtrack/pkg/tracking"
)

// Config holds the detection thresholds.
type Config struct {
	DebounceWindow          time.Duration // overspeed and stall re-emission window
	TeleportSpeedKt         float64       // fastest explainable ground speed at rate 1
	TimeBackwardTolerance   time.Duration
	TimeForwardTolerance    time.Duration
	HardLandingFPM          float64
	JetLandingLightAltitude float64 // ft indicated
	LandingLightRadioHeight float64 // ft AGL, non-turbine aircraft
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		DebounceWindow:          10 * time.Second,
		TeleportSpeedKt:         600,
		TimeBackwardTolerance:   5 * time.Second,
		TimeForwardTolerance:    30 * time.Second,
		HardLandingFPM:          600,
		JetLandingLightAltitude: 9500,
		LandingLightRadioHeight: 300,
	}
}

// Detector diffs sample pairs and emits tracking events. It keeps no state
// of its own, debounce bookkeeping lives in the session.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Detector.
func New(cfg Config) *Detector {
	return &Detector{
		cfg:    cfg,
		logger: slog.Default().With("component", "detector"),
	}
}

// recorder collects the events emitted during one detection call.
type recorder struct {
	tracking.Effects
	events []model.TrackingEvent
}

func (r *recorder) Emit(kind model.EventType, sev model.Severity, msg string) model.TrackingEvent {
	e := r.Effects.Emit(kind, sev, msg)
	r.events = append(r.events, e)
	return e
}

// detecting reports whether s is in a state where rules apply.
func detecting(s *tracking.Session) bool {
	return s.Status == model.StatusGroundOperations || s.Status == model.StatusTracking
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// sampleTime returns the sample timestamp, falling back to the wall clock.
func sampleTime(ts time.Time, fx tracking.Effects) time.Time {
	if ts.IsZero() {
		return fx.Now()
	}
	return ts
}

// checkLandingLights warns once when the landing light is off at low
// altitude while airborne. The warning re-arms once the condition clears.
func (d *Detector) checkLandingLights(s *tracking.Session, fx tracking.Effects, p *model.PrimarySample, sec *model.SecondarySample) {
	if s.Status != model.StatusTracking || p == nil || sec == nil {
		return
	}

	var low bool
	if s.EngineType().IsJetOrTurboprop() {
		low = p.AltitudeIndicated < d.cfg.JetLandingLightAltitude
	} else {
		low = p.RadioHeight < d.cfg.LandingLightRadioHeight
	}
	violating := !p.OnGround && low && !sec.LandingLight

	switch {
	case violating && !s.LandingLightWarned:
		s.LandingLightWarned = true
		msg := "Landing lights off below the required altitude"
		fx.Emit(model.EventWarning, model.SeverityWarning, msg)
		fx.Banner(msg)
		fx.Say(tracking.PromptLandingLights)
		d.logger.Info("Detector: landing light warning", "alt", p.AltitudeIndicated, "rh", p.RadioHeight)
	case !violating && s.LandingLightWarned:
		s.LandingLightWarned = false
	}
}
