package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags a tracking event by the subsystem that raised it.
type EventType string

const (
	EventPhase     EventType = "phase"
	EventAirborne  EventType = "airborne"
	EventLights    EventType = "lights"
	EventEngine    EventType = "engine"
	EventPushback  EventType = "pushback"
	EventSystems   EventType = "systems"
	EventWarning   EventType = "warning"
	EventViolation EventType = "violation"
	EventTracking  EventType = "tracking"
	EventTouchdown EventType = "touchdown"
)

// TelemetrySnapshot is the telemetry recorded alongside every event.
type TelemetrySnapshot struct {
	Latitude      float64     `json:"latitude"`
	Longitude     float64     `json:"longitude"`
	Altitude      float64     `json:"altitude"`
	RadioHeight   float64     `json:"radio_height"`
	GroundSpeed   float64     `json:"ground_speed"`
	Heading       float64     `json:"heading"`
	VerticalSpeed float64     `json:"vertical_speed"`
	Phase         FlightPhase `json:"phase"`
}

// SnapshotOf captures the fields of p relevant for postmortem.
func SnapshotOf(p PrimarySample, phase FlightPhase) TelemetrySnapshot {
	return TelemetrySnapshot{
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
		Altitude:      p.AltitudeIndicated,
		RadioHeight:   p.RadioHeight,
		GroundSpeed:   p.GroundSpeed,
		Heading:       p.Heading,
		VerticalSpeed: p.VerticalSpeed,
		Phase:         phase,
	}
}

// TrackingEvent is an append-only entry in a session's event log.
// Events are never mutated once created.
type TrackingEvent struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Telemetry TelemetrySnapshot `json:"telemetry"`
}

// Color is the display color of the event marker.
func (e TrackingEvent) Color() string {
	return e.Severity.Color()
}

// MapMarker is the position payload attached to event notifications.
type MapMarker struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Color   string  `json:"color"`
	Label   string  `json:"label"`
	EventID string  `json:"event_id"`
}

// MarkerFor builds the map marker for e.
func MarkerFor(e TrackingEvent) MapMarker {
	return MapMarker{
		Lat:     e.Telemetry.Latitude,
		Lon:     e.Telemetry.Longitude,
		Color:   e.Color(),
		Label:   e.Message,
		EventID: e.ID.String(),
	}
}
