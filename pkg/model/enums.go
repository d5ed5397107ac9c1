package model

import (
	"fmt"
	"strings"
)

// FlightPhase is the classified phase of flight. Exactly one is active per session.
type FlightPhase int

const (
	PhaseUnTracked FlightPhase = iota
	PhaseUnknown
	PhaseBriefing
	PhasePreFlight
	PhasePushBack
	PhaseTaxiOut
	PhaseTakeoff
	PhaseDeparture
	PhaseClimb
	PhaseCruise
	PhaseDescent
	PhaseApproach
	PhaseLanding
	PhaseTaxiIn
	PhasePostFlight
	PhaseCrashed
)

var phaseNames = [...]string{
	PhaseUnTracked:  "UnTracked",
	PhaseUnknown:    "Unknown",
	PhaseBriefing:   "Briefing",
	PhasePreFlight:  "PreFlight",
	PhasePushBack:   "PushBack",
	PhaseTaxiOut:    "TaxiOut",
	PhaseTakeoff:    "Takeoff",
	PhaseDeparture:  "Departure",
	PhaseClimb:      "Climb",
	PhaseCruise:     "Cruise",
	PhaseDescent:    "Descent",
	PhaseApproach:   "Approach",
	PhaseLanding:    "Landing",
	PhaseTaxiIn:     "TaxiIn",
	PhasePostFlight: "PostFlight",
	PhaseCrashed:    "Crashed",
}

func (p FlightPhase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("FlightPhase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p FlightPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *FlightPhase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if strings.EqualFold(name, string(b)) {
			*p = FlightPhase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown flight phase %q", string(b))
}

// TrackingStatus is the lifecycle state of a tracking session.
type TrackingStatus int

const (
	StatusNotTracking TrackingStatus = iota
	StatusPreparing
	StatusGroundOperations
	StatusTracking
	StatusResuming
)

var statusNames = [...]string{
	StatusNotTracking:      "NotTracking",
	StatusPreparing:        "Preparing",
	StatusGroundOperations: "GroundOperations",
	StatusTracking:         "Tracking",
	StatusResuming:         "Resuming",
}

func (s TrackingStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("TrackingStatus(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s TrackingStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TrackingStatus) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if strings.EqualFold(name, string(b)) {
			*s = TrackingStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tracking status %q", string(b))
}

// IsActive reports whether samples should be classified for this status.
func (s TrackingStatus) IsActive() bool {
	return s == StatusGroundOperations || s == StatusTracking || s == StatusResuming
}

// VerticalProfile is the coarse climb-rate classification.
type VerticalProfile int

const (
	ProfileLevel VerticalProfile = iota
	ProfileClimbing
	ProfileDescending
)

func (v VerticalProfile) String() string {
	switch v {
	case ProfileClimbing:
		return "Climbing"
	case ProfileDescending:
		return "Descending"
	default:
		return "Level"
	}
}

// PushbackState mirrors the simulator tug state. The zero value means no pushback.
type PushbackState int

const (
	PushbackNone PushbackState = iota
	PushbackStraight
	PushbackLeft
	PushbackRight
)

// CrashSequence mirrors the simulator crash sequence variable.
type CrashSequence int

const (
	CrashOff      CrashSequence = 0
	CrashComplete CrashSequence = 1
	CrashReset    CrashSequence = 3
	CrashPause    CrashSequence = 4
	CrashStart    CrashSequence = 11
)

// EngineType mirrors the simulator engine type enumeration.
type EngineType int

const (
	EnginePiston EngineType = iota
	EngineJet
	EngineNone
	EngineHelo
	EngineRocket
	EngineTurboprop
)

// IsJetOrTurboprop reports whether phase thresholds for turbine aircraft apply.
func (e EngineType) IsJetOrTurboprop() bool {
	return e == EngineJet || e == EngineTurboprop
}

// Severity classifies a tracking event for display.
type Severity string

const (
	SeverityInfo      Severity = "info"
	SeverityWarning   Severity = "warning"
	SeverityViolation Severity = "violation"
)

// Color returns the display color used by the map and event list.
func (s Severity) Color() string {
	switch s {
	case SeverityWarning:
		return "#f9a825"
	case SeverityViolation:
		return "#c62828"
	default:
		return "#2e7d32"
	}
}
