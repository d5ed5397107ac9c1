package tracking

import "fmt"

// Violation is a session-fatal rule violation.
type Violation int

const (
	ViolationSlew Violation = iota + 1
	ViolationTeleport
	ViolationTimeBackward
	ViolationTimeForward
	ViolationCrashDetection
	ViolationUnlimitedFuel
	ViolationEngineDuringGroundHandling
	ViolationPushbackDuringGroundHandling
	ViolationNeverAirborne
	ViolationMainMenu
	ViolationCrashed
	ViolationDisconnected
	ViolationResumeTooFar
)

type violationInfo struct {
	name    string
	message string
	prompt  Prompt
	discard bool // delete the saved session instead of keeping it for resume
	silent  bool // no sound or speech
}

var violations = map[Violation]violationInfo{
	ViolationSlew: {
		name: "slew", message: "Tracking aborted: slew mode activated",
		prompt: PromptAbortedSlew,
	},
	ViolationTeleport: {
		name: "teleport", message: "Tracking aborted: teleport detected",
		prompt: PromptAbortedTeleport,
	},
	ViolationTimeBackward: {
		name: "time_backward", message: "Tracking aborted: simulator time moved backward",
		prompt: PromptAbortedTimeBackward,
	},
	ViolationTimeForward: {
		name: "time_forward", message: "Tracking aborted: simulator time jumped forward",
		prompt: PromptAbortedTimeForward,
	},
	ViolationCrashDetection: {
		name: "crash_detection", message: "Tracking aborted: crash detection disabled",
		prompt: PromptAbortedCrashDetection,
	},
	ViolationUnlimitedFuel: {
		name: "unlimited_fuel", message: "Tracking aborted: unlimited fuel enabled",
		prompt: PromptAbortedUnlimitedFuel,
	},
	ViolationEngineDuringGroundHandling: {
		name: "engine_ground_handling", message: "Tracking aborted: engine started during ground handling",
		prompt: PromptAbortedEngineGroundHandle,
	},
	ViolationPushbackDuringGroundHandling: {
		name: "pushback_ground_handling", message: "Tracking aborted: pushback started during ground handling",
		prompt: PromptAbortedPushbackGroundHandle,
	},
	ViolationNeverAirborne: {
		name: "never_airborne", message: "Tracking aborted: engine shut down before takeoff",
		prompt: PromptAbortedNeverAirborne, discard: true,
	},
	ViolationMainMenu: {
		name: "main_menu", message: "Tracking aborted: returned to main menu",
		silent: true,
	},
	ViolationCrashed: {
		name: "crashed", message: "Tracking aborted: aircraft crashed",
		prompt: PromptAbortedCrashed,
	},
	ViolationDisconnected: {
		name: "disconnected", message: "Tracking stopped: simulator disconnected",
		prompt: PromptAbortedDisconnected,
	},
	ViolationResumeTooFar: {
		name: "resume_too_far", message: "Resume failed: aircraft is too far from the saved position",
		prompt: PromptAbortedResumeTooFar,
	},
}

func (v Violation) info() violationInfo {
	if i, ok := violations[v]; ok {
		return i
	}
	return violationInfo{name: fmt.Sprintf("violation_%d", int(v)), message: "Tracking aborted"}
}

func (v Violation) String() string { return v.info().name }

// Message is the user-facing abort text.
func (v Violation) Message() string { return v.info().message }

// Discards reports whether the abort deletes the saved session.
func (v Violation) Discards() bool { return v.info().discard }
