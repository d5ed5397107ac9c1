package phase

import (
	"fmt"
	"log/slog"
	"math"

	"simtrack/pkg/geo"
	"simtrack/pkg/model"
	"simtrack/pkg/tracking"
)

const (
	airborneRadioHeight = 50.0  // ft AGL
	taxiSpeedLimit      = 40.0  // kt
	departureRadiusNM   = 10.0  // nm from origin
	finalRadioHeight    = 500.0 // ft AGL, below this the aircraft is landing
)

// departureThreshold is the radio height up to which a ground run counts as takeoff.
func departureThreshold(e model.EngineType) float64 {
	if e.IsJetOrTurboprop() {
		return 1000
	}
	return 100
}

// approachDistance is the distance gate around origin, destination and alternate in nm.
func approachDistance(e model.EngineType) float64 {
	if e.IsJetOrTurboprop() {
		return 40
	}
	return 10
}

// Input is what the classifier needs from one primary pair.
type Input struct {
	Primary model.Pair[model.PrimarySample]
	// Secondary is the latest secondary sample, nil until one arrived.
	Secondary *model.SecondarySample
	Profile   model.VerticalProfile
}

// Distances are great-circle distances in nm. Unknown airports are +Inf.
type Distances struct {
	Origin      float64
	Destination float64
	Alternate   float64
}

// DistancesFrom computes the distances from p to the airports of f.
func DistancesFrom(f *model.Flight, p model.PrimarySample) Distances {
	d := Distances{Origin: math.Inf(1), Destination: math.Inf(1), Alternate: math.Inf(1)}
	if f == nil {
		return d
	}
	here := geo.Point{Lat: p.Latitude, Lon: p.Longitude}
	dist := func(a *model.Airport) float64 {
		if a == nil || a.ICAO == "" {
			return math.Inf(1)
		}
		return geo.DistanceNM(here, geo.Point{Lat: a.Lat, Lon: a.Lon})
	}
	d.Origin = dist(&f.Origin)
	d.Destination = dist(&f.Destination)
	d.Alternate = dist(f.Alternate)
	return d
}

type conditions struct {
	p             model.PrimarySample
	engineRunning bool
	pushback      model.PushbackState
	profile       model.VerticalProfile
	d             Distances
	wasAirborne   bool
	departureRH   float64
	approachNM    float64
}

func (c *conditions) airborne() bool {
	return c.wasAirborne && !c.p.OnGround
}

func (c *conditions) outsideTerminalArea() bool {
	return c.d.Destination >= c.approachNM && c.d.Alternate >= c.approachNM
}

type rule struct {
	phase model.FlightPhase
	holds func(c *conditions) bool
}

// rules are evaluated in order, the first match wins.
var rules = []rule{
	{model.PhaseBriefing, func(c *conditions) bool {
		return c.p.OnGround && geo.NearNullIsland(c.p.Latitude, c.p.Longitude)
	}},
	{model.PhasePreFlight, func(c *conditions) bool {
		return !c.wasAirborne && c.p.OnGround && !c.engineRunning && c.pushback == model.PushbackNone
	}},
	{model.PhasePushBack, func(c *conditions) bool {
		return c.pushback != model.PushbackNone
	}},
	{model.PhaseTaxiOut, func(c *conditions) bool {
		return !c.wasAirborne && c.engineRunning && c.p.GroundSpeed < taxiSpeedLimit && c.p.OnGround && c.pushback == model.PushbackNone
	}},
	{model.PhaseTakeoff, func(c *conditions) bool {
		return !c.wasAirborne && c.p.GroundSpeed > taxiSpeedLimit && c.p.RadioHeight <= c.departureRH
	}},
	{model.PhaseDeparture, func(c *conditions) bool {
		return c.d.Origin < departureRadiusNM && c.profile == model.ProfileClimbing && c.airborne()
	}},
	{model.PhaseClimb, func(c *conditions) bool {
		return c.d.Origin >= c.approachNM && c.profile == model.ProfileClimbing && c.airborne()
	}},
	{model.PhaseCruise, func(c *conditions) bool {
		return c.outsideTerminalArea() && c.profile == model.ProfileLevel && c.airborne()
	}},
	{model.PhaseDescent, func(c *conditions) bool {
		return c.outsideTerminalArea() && c.profile == model.ProfileDescending && c.airborne()
	}},
	{model.PhaseApproach, func(c *conditions) bool {
		return !c.outsideTerminalArea() && c.airborne() && c.p.RadioHeight > finalRadioHeight
	}},
	{model.PhaseLanding, func(c *conditions) bool {
		return c.wasAirborne && c.p.RadioHeight <= finalRadioHeight && c.p.GroundSpeed >= taxiSpeedLimit && c.engineRunning
	}},
	{model.PhaseTaxiIn, func(c *conditions) bool {
		return c.wasAirborne && c.engineRunning && c.p.GroundSpeed < taxiSpeedLimit && c.p.OnGround
	}},
	{model.PhasePostFlight, func(c *conditions) bool {
		return c.wasAirborne && c.p.OnGround && !c.engineRunning
	}},
	{model.PhaseCrashed, func(c *conditions) bool {
		return c.p.CrashSequence != model.CrashOff
	}},
}

// Classifier maps primary pairs to a flight phase. It keeps no state of its
// own, everything lives in the session.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{logger: slog.Default().With("component", "phase")}
}

// Classify recomputes the flight phase of s. It may abort the session when
// the aircraft crashed or the simulator returned to the main menu.
func (c *Classifier) Classify(s *tracking.Session, fx tracking.Effects, in Input) model.FlightPhase {
	if !s.Status.IsActive() {
		s.Phase = model.PhaseUnTracked
		s.WasAirborne = false
		s.NextFlightStep = ""
		s.NextStepFlashing = false
		return s.Phase
	}

	p := in.Primary.New
	if !s.WasAirborne && math.Max(in.Primary.Old.RadioHeight, p.RadioHeight) >= airborneRadioHeight {
		s.WasAirborne = true
		fx.Emit(model.EventAirborne, model.SeverityInfo, "Airborne")
		c.logger.Info("Phase: airborne", "radio_height", p.RadioHeight)
	}

	engine := s.EngineType()
	cond := &conditions{
		p:           p,
		profile:     in.Profile,
		d:           DistancesFrom(s.Flight, p),
		wasAirborne: s.WasAirborne,
		departureRH: departureThreshold(engine),
		approachNM:  approachDistance(engine),
	}
	if in.Secondary != nil {
		cond.engineRunning = in.Secondary.EngineRunning
		cond.pushback = in.Secondary.Pushback
	}

	matched := model.PhaseUnknown
	unknown := true
	for _, r := range rules {
		if !r.holds(cond) {
			continue
		}
		switch {
		case unknown:
			matched = r.phase
			unknown = false
		case r.phase == model.PhaseLanding && matched == model.PhaseDescent:
			c.logger.Debug("Phase: landing overrides descent", "distance_dest_nm", cond.d.Destination)
			matched = model.PhaseLanding
		case r.phase == model.PhaseCrashed:
			matched = model.PhaseCrashed
		default:
			c.logger.Debug("Phase: conflict detected", "matched", matched, "also", r.phase)
		}
	}
	if unknown {
		c.logger.Warn("Phase: no predicate matched",
			"on_ground", p.OnGround, "gs", p.GroundSpeed, "rh", p.RadioHeight,
			"profile", in.Profile, "engine", cond.engineRunning, "was_airborne", s.WasAirborne)
	}

	c.apply(s, fx, matched)

	switch {
	case matched == model.PhaseBriefing && (s.Status == model.StatusGroundOperations || s.Status == model.StatusTracking):
		fx.Abort(tracking.ViolationMainMenu)
	case matched == model.PhaseCrashed:
		fx.Abort(tracking.ViolationCrashed)
	}
	return matched
}

func (c *Classifier) apply(s *tracking.Session, fx tracking.Effects, phase model.FlightPhase) {
	if phase != s.Phase {
		prev := s.Phase
		s.Phase = phase
		sev := model.SeverityInfo
		if phase == model.PhaseUnknown || phase == model.PhaseCrashed {
			sev = model.SeverityWarning
		}
		fx.Emit(model.EventPhase, sev, fmt.Sprintf("Flight phase: %s", phase))
		c.logger.Info("Phase: changed", "from", prev, "to", phase)

		if phase == model.PhaseTaxiIn && !s.TaxiInStarted {
			s.TaxiInStarted = true
		}
	}
	s.NextFlightStep, s.NextStepFlashing = nextStep(s, phase)
}

// nextStep returns the hint shown to the pilot and whether it should flash.
func nextStep(s *tracking.Session, phase model.FlightPhase) (string, bool) {
	switch phase {
	case model.PhaseBriefing:
		return "Load the flight in the simulator", false
	case model.PhasePreFlight:
		if s.GroundHandling.Complete() {
			return "Ground handling complete, request pushback or start engines", true
		}
		return "Wait for fuel and payload loading to complete", false
	case model.PhasePushBack:
		return "Start engines during or after pushback", false
	case model.PhaseTaxiOut:
		return "Taxi to the departure runway", false
	case model.PhaseTakeoff:
		return "Take off", false
	case model.PhaseDeparture:
		return "Follow the departure procedure", false
	case model.PhaseClimb:
		return "Climb to cruise altitude", false
	case model.PhaseCruise:
		return "Cruise to the destination", false
	case model.PhaseDescent:
		return "Descend towards the destination", false
	case model.PhaseApproach:
		return "Fly the approach, landing lights on", false
	case model.PhaseLanding:
		return "Land and vacate the runway", false
	case model.PhaseTaxiIn:
		return "Taxi to the gate and shut down the engines", false
	case model.PhasePostFlight:
		return "Flight complete", false
	case model.PhaseCrashed:
		return "Aircraft crashed", true
	}
	return "", false
}
