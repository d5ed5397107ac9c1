package config

// Persistent state keys (Registry)
const (
	KeySimSource         = "sim_source"
	KeyPrimaryInterval   = "sampling_primary"
	KeySecondaryInterval = "sampling_secondary"
	KeyLandingInterval   = "sampling_landing"
	KeyAudioEnabled      = "audio_enabled"
	KeyVolume            = "volume"
	KeyReportEnabled     = "report_enabled"
)

// RuntimeKeys lists the settings that may be changed through the API.
var RuntimeKeys = []string{
	KeySimSource,
	KeyPrimaryInterval,
	KeySecondaryInterval,
	KeyLandingInterval,
	KeyAudioEnabled,
	KeyVolume,
	KeyReportEnabled,
}
