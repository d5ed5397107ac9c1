package tracking

import (
	"context"
	"time"

	"simtrack/pkg/model"
)

// Sound is a named audio cue.
type Sound string

const (
	SoundAbort   Sound = "abort"
	SoundWarning Sound = "warning"
	SoundDing    Sound = "ding"
	SoundStart   Sound = "start"
	SoundFinish  Sound = "finish"
)

// Prompt is a named spoken announcement.
type Prompt string

const (
	PromptAbortedSlew                 Prompt = "AbortedSlew"
	PromptAbortedTeleport             Prompt = "AbortedTeleport"
	PromptAbortedTimeBackward         Prompt = "AbortedTimeBackward"
	PromptAbortedTimeForward          Prompt = "AbortedTimeForward"
	PromptAbortedCrashDetection       Prompt = "AbortedCrashDetection"
	PromptAbortedUnlimitedFuel        Prompt = "AbortedUnlimitedFuel"
	PromptAbortedEngineGroundHandle   Prompt = "AbortedEngineDuringGroundHandling"
	PromptAbortedPushbackGroundHandle Prompt = "AbortedPushbackDuringGroundHandling"
	PromptAbortedNeverAirborne        Prompt = "AbortedNeverAirborne"
	PromptAbortedCrashed              Prompt = "AbortedCrashed"
	PromptAbortedDisconnected         Prompt = "AbortedDisconnected"
	PromptAbortedResumeTooFar         Prompt = "AbortedResumeTooFar"
	PromptFuelLoadingComplete         Prompt = "FuelLoadingComplete"
	PromptPayloadLoadingComplete      Prompt = "PayloadLoadingComplete"
	PromptReadyPushStart              Prompt = "ReadyPushStart"
	PromptLandingLights               Prompt = "LandingLights"
	PromptBeaconOff                   Prompt = "BeaconOff"
	PromptTrackingStarted             Prompt = "TrackingStarted"
	PromptTrackingFinished            Prompt = "TrackingFinished"
)

// Notifier receives GUI-facing state changes.
type Notifier interface {
	PropertyChanged(name string, value any)
	EventAdded(e model.TrackingEvent, marker model.MapMarker)
	Banner(message string, visible time.Duration)
}

// Announcer plays sounds and speaks prompts. Calls are fire-and-forget.
type Announcer interface {
	PlaySound(s Sound)
	Say(p Prompt)
}

// Finalizer receives the report of a completed session, exactly once.
type Finalizer interface {
	FinishUpFlightTracking(ctx context.Context, report *model.FlightReport)
}

// SessionSaver persists a stopped session so it can be resumed.
// LoadSession returns nil, nil when nothing is saved.
type SessionSaver interface {
	SaveSession(ctx context.Context, s *Session) error
	LoadSession(ctx context.Context) (*Session, error)
	DeleteSession(ctx context.Context) error
}

// EventLog is the durable append-only event store.
type EventLog interface {
	AppendEvent(ctx context.Context, sessionID string, e model.TrackingEvent) error
}

type nopNotifier struct{}

func (nopNotifier) PropertyChanged(string, any)                     {}
func (nopNotifier) EventAdded(model.TrackingEvent, model.MapMarker) {}
func (nopNotifier) Banner(string, time.Duration)                    {}

type nopAnnouncer struct{}

func (nopAnnouncer) PlaySound(Sound) {}
func (nopAnnouncer) Say(Prompt)      {}

type nopFinalizer struct{}

func (nopFinalizer) FinishUpFlightTracking(context.Context, *model.FlightReport) {}

type nopSaver struct{}

func (nopSaver) SaveSession(context.Context, *Session) error   { return nil }
func (nopSaver) LoadSession(context.Context) (*Session, error) { return nil, nil }
func (nopSaver) DeleteSession(context.Context) error           { return nil }

type nopEventLog struct{}

func (nopEventLog) AppendEvent(context.Context, string, model.TrackingEvent) error { return nil }
