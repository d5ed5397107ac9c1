package tracking

import (
	"math"
	"time"

	"simtrack/pkg/model"
)

// GroundHandling tracks the simulated fuel and payload loading timers.
// A zero due time means the estimate is unknown.
type GroundHandling struct {
	FuelDue         time.Time     `json:"fuel_due"`
	PayloadDue      time.Time     `json:"payload_due"`
	FuelComplete    bool          `json:"fuel_complete"`
	PayloadComplete bool          `json:"payload_complete"`
	TimeWarp        time.Duration `json:"time_warp"`
}

// Complete reports whether both timers have finished.
func (g GroundHandling) Complete() bool {
	return g.FuelComplete && g.PayloadComplete
}

// FuelEstimateMinutes returns the remaining fuel loading time in minutes, -1 when unknown.
func (g GroundHandling) FuelEstimateMinutes(now time.Time) int {
	return estimateMinutes(g.FuelDue, g.FuelComplete, now)
}

// PayloadEstimateMinutes returns the remaining payload loading time in minutes, -1 when unknown.
func (g GroundHandling) PayloadEstimateMinutes(now time.Time) int {
	return estimateMinutes(g.PayloadDue, g.PayloadComplete, now)
}

func estimateMinutes(due time.Time, complete bool, now time.Time) int {
	if complete {
		return 0
	}
	if due.IsZero() {
		return -1
	}
	rem := due.Sub(now)
	if rem <= 0 {
		return 0
	}
	return int(math.Ceil(rem.Minutes()))
}

// remaining returns the outstanding time of each unfinished timer.
func (g GroundHandling) remaining(now time.Time) (fuel, payload time.Duration) {
	if !g.FuelComplete && !g.FuelDue.IsZero() && g.FuelDue.After(now) {
		fuel = g.FuelDue.Sub(now)
	}
	if !g.PayloadComplete && !g.PayloadDue.IsZero() && g.PayloadDue.After(now) {
		payload = g.PayloadDue.Sub(now)
	}
	return fuel, payload
}

// Session is the single active tracking session. It is owned by the
// Controller and only mutated under its lock.
type Session struct {
	ID               string               `json:"id"`
	Status           model.TrackingStatus `json:"status"`
	Phase            model.FlightPhase    `json:"phase"`
	NextFlightStep   string               `json:"next_flight_step"`
	NextStepFlashing bool                 `json:"next_step_flashing"`
	WasAirborne      bool                 `json:"was_airborne"`
	Flight           *model.Flight        `json:"flight,omitempty"`
	GroundHandling   GroundHandling       `json:"ground_handling"`

	TaxiInStarted bool `json:"taxi_in_started"`
	TaxiInTurned  bool `json:"taxi_in_turned"`

	LastOverspeed      time.Time `json:"last_overspeed"`
	LastStall          time.Time `json:"last_stall"`
	LandingLightWarned bool      `json:"landing_light_warned"`
	LastFlapsPercent   *float64  `json:"last_flaps_percent,omitempty"`

	Touchdown     *model.LandingSample   `json:"touchdown,omitempty"`
	Events        []model.TrackingEvent  `json:"events"`
	Track         []model.TrackPoint     `json:"track"`
	LastPrimary   *model.PrimarySample   `json:"last_primary,omitempty"`
	LastSecondary *model.SecondarySample `json:"last_secondary,omitempty"`
	StartedAt     time.Time              `json:"started_at"`

	// ResumeTarget is the status restored once a resume is confirmed.
	ResumeTarget model.TrackingStatus `json:"resume_target"`
}

// reset clears the session in place so references held by callers stay valid.
// The latest samples survive, they describe the simulator and not the flight.
func (s *Session) reset() {
	lastPrimary, lastSecondary := s.LastPrimary, s.LastSecondary
	*s = Session{
		Status:        model.StatusNotTracking,
		Phase:         model.PhaseUnTracked,
		Events:        []model.TrackingEvent{},
		Track:         []model.TrackPoint{},
		LastPrimary:   lastPrimary,
		LastSecondary: lastSecondary,
	}
}

// EngineType returns the bound aircraft engine type, piston when unknown.
func (s *Session) EngineType() model.EngineType {
	if s.Flight == nil {
		return model.EnginePiston
	}
	return s.Flight.Aircraft.EngineType
}

// observed is the set of properties the GUI is notified about.
type observed struct {
	Status                 model.TrackingStatus
	Phase                  model.FlightPhase
	NextFlightStep         string
	NextStepFlashing       bool
	GroundHandlingComplete bool
	FuelLoadingComplete    bool
	FuelEstimateMinutes    int
	PayloadLoadingComplete bool
	PayloadEstimateMinutes int
	TimeWarp               time.Duration
}

func observe(s *Session, now time.Time) observed {
	return observed{
		Status:                 s.Status,
		Phase:                  s.Phase,
		NextFlightStep:         s.NextFlightStep,
		NextStepFlashing:       s.NextStepFlashing,
		GroundHandlingComplete: s.GroundHandling.Complete(),
		FuelLoadingComplete:    s.GroundHandling.FuelComplete,
		FuelEstimateMinutes:    s.GroundHandling.FuelEstimateMinutes(now),
		PayloadLoadingComplete: s.GroundHandling.PayloadComplete,
		PayloadEstimateMinutes: s.GroundHandling.PayloadEstimateMinutes(now),
		TimeWarp:               s.GroundHandling.TimeWarp,
	}
}

type propertyChange struct {
	name  string
	value any
}

func (o observed) diff(n observed) []propertyChange {
	var out []propertyChange
	add := func(changed bool, name string, v any) {
		if changed {
			out = append(out, propertyChange{name, v})
		}
	}
	add(o.Status != n.Status, "TrackingStatus", n.Status)
	add(o.Phase != n.Phase, "FlightPhase", n.Phase)
	add(o.NextFlightStep != n.NextFlightStep, "NextFlightStep", n.NextFlightStep)
	add(o.NextStepFlashing != n.NextStepFlashing, "NextStepFlashing", n.NextStepFlashing)
	add(o.GroundHandlingComplete != n.GroundHandlingComplete, "GroundHandlingComplete", n.GroundHandlingComplete)
	add(o.FuelLoadingComplete != n.FuelLoadingComplete, "FuelLoadingComplete", n.FuelLoadingComplete)
	add(o.FuelEstimateMinutes != n.FuelEstimateMinutes, "FuelLoadingEstimateMinutes", n.FuelEstimateMinutes)
	add(o.PayloadLoadingComplete != n.PayloadLoadingComplete, "PayloadLoadingComplete", n.PayloadLoadingComplete)
	add(o.PayloadEstimateMinutes != n.PayloadEstimateMinutes, "PayloadLoadingEstimateMinutes", n.PayloadEstimateMinutes)
	add(o.TimeWarp != n.TimeWarp, "TimeWarp", n.TimeWarp)
	return out
}
