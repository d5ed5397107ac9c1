package announce

import "simtrack/pkg/tracking"

// Sounds lists every cue a sound pack should provide.
var Sounds = []tracking.Sound{
	tracking.SoundAbort,
	tracking.SoundWarning,
	tracking.SoundDing,
	tracking.SoundStart,
	tracking.SoundFinish,
}

// texts are spoken by synthesizing engines. Voice packs ship one file per prompt instead.
var texts = map[tracking.Prompt]string{
	tracking.PromptAbortedSlew:                 "Tracking aborted. Slew mode was used.",
	tracking.PromptAbortedTeleport:             "Tracking aborted. The aircraft was moved.",
	tracking.PromptAbortedTimeBackward:         "Tracking aborted. Simulator time went backwards.",
	tracking.PromptAbortedTimeForward:          "Tracking aborted. Simulator time jumped forward.",
	tracking.PromptAbortedCrashDetection:       "Tracking aborted. Crash detection was turned off.",
	tracking.PromptAbortedUnlimitedFuel:        "Tracking aborted. Unlimited fuel was turned on.",
	tracking.PromptAbortedEngineGroundHandle:   "Tracking aborted. Engines were started during ground handling.",
	tracking.PromptAbortedPushbackGroundHandle: "Tracking aborted. Pushback started during ground handling.",
	tracking.PromptAbortedNeverAirborne:        "Tracking aborted. The aircraft never left the ground.",
	tracking.PromptAbortedCrashed:              "Tracking aborted. The aircraft crashed.",
	tracking.PromptAbortedDisconnected:         "Tracking aborted. The simulator disconnected.",
	tracking.PromptAbortedResumeTooFar:         "Cannot resume. The aircraft is too far from the saved position.",
	tracking.PromptFuelLoadingComplete:         "Fuel loading complete.",
	tracking.PromptPayloadLoadingComplete:      "Boarding and cargo loading complete.",
	tracking.PromptReadyPushStart:              "Ground handling complete. Ready for pushback and engine start.",
	tracking.PromptLandingLights:               "Landing lights are off.",
	tracking.PromptBeaconOff:                   "Beacon light is off.",
	tracking.PromptTrackingStarted:             "Flight tracking started.",
	tracking.PromptTrackingFinished:            "Flight tracking finished.",
}

// Text returns the sentence spoken for p.
func Text(p tracking.Prompt) string {
	if s, ok := texts[p]; ok {
		return s
	}
	return string(p)
}

// Prompts lists every prompt a voice pack should provide.
func Prompts() []tracking.Prompt {
	out := make([]tracking.Prompt, 0, len(texts))
	for p := range texts {
		out = append(out, p)
	}
	return out
}
