package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvReportToken is read from the environment (or a .env file next to the
// config) when report.token is empty.
const EnvReportToken = "SIMTRACK_REPORT_TOKEN"

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Sim      SimConfig      `yaml:"sim"`
	Sampling SamplingConfig `yaml:"sampling"`
	Tracking TrackingConfig `yaml:"tracking"`
	Request  RequestConfig  `yaml:"request"`
	Report   ReportConfig   `yaml:"report"`
	Audio    AudioConfig    `yaml:"audio"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path            string   `yaml:"path"`
	EventRetention  Duration `yaml:"event_retention"`
	ReportRetention Duration `yaml:"report_retention"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// SimConfig holds settings for the simulator connection.
type SimConfig struct {
	Provider string        `yaml:"provider"` // "mock", "xplane"
	XPlane   XPlaneConfig  `yaml:"xplane"`
	Mock     MockSimConfig `yaml:"mock"`
}

// XPlaneConfig holds the X-Plane web API endpoints.
type XPlaneConfig struct {
	RESTURL string `yaml:"rest_url"`
	WSURL   string `yaml:"ws_url"`
}

// MockSimConfig holds settings for the scripted mock flight.
type MockSimConfig struct {
	Origin         string   `yaml:"origin"`
	OriginLat      float64  `yaml:"origin_lat"`
	OriginLon      float64  `yaml:"origin_lon"`
	OriginElev     float64  `yaml:"origin_elev"`
	Destination    string   `yaml:"destination"`
	DestLat        float64  `yaml:"destination_lat"`
	DestLon        float64  `yaml:"destination_lon"`
	DestElev       float64  `yaml:"destination_elev"`
	CruiseAltitude float64  `yaml:"cruise_altitude"`
	DurationParked Duration `yaml:"duration_parked"`
	DurationTaxi   Duration `yaml:"duration_taxi"`
	TimeScale      float64  `yaml:"time_scale"`
}

// SamplingConfig holds the per-category read intervals.
type SamplingConfig struct {
	Primary       Duration `yaml:"primary"`
	Secondary     Duration `yaml:"secondary"`
	Landing       Duration `yaml:"landing"`
	TrackDistance Distance `yaml:"track_distance"`
}

// TrackingConfig holds session controller and detector settings.
type TrackingConfig struct {
	GroundTick          Duration `yaml:"ground_tick"`
	BannerDuration      Duration `yaml:"banner_duration"`
	DebounceWindow      Duration `yaml:"debounce_window"`
	ResumeMaxDistance   Distance `yaml:"resume_max_distance"`
	FuelRateKgPerMin    float64  `yaml:"fuel_rate_kg_per_min"`
	PayloadRateKgPerMin float64  `yaml:"payload_rate_kg_per_min"`
	MinLoadingTime      Duration `yaml:"min_loading_time"`
	PersistInterval     Duration `yaml:"persist_interval"`
	HardLandingFPM      float64  `yaml:"hard_landing_fpm"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// ReportConfig holds the flight report service settings.
type ReportConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token,omitempty"`
}

// AudioConfig holds sound cue and spoken prompt settings.
type AudioConfig struct {
	Enabled  bool    `yaml:"enabled"`
	SoundDir string  `yaml:"sound_dir"`
	VoiceDir string  `yaml:"voice_dir"`
	Engine   string  `yaml:"engine"` // "voice-pack", "windows-sapi", "none"
	Voice    string  `yaml:"voice"`  // SAPI voice token ID, empty for the system default
	Volume   float64 `yaml:"volume"`

	// Headset band-passes spoken prompts like a cabin interphone.
	Headset HeadsetConfig `yaml:"headset"`
}

// HeadsetConfig holds the band-pass cutoffs for spoken prompts.
type HeadsetConfig struct {
	Enabled    bool    `yaml:"enabled"`
	LowCutoff  float64 `yaml:"low_cutoff"`  // Hz
	HighCutoff float64 `yaml:"high_cutoff"` // Hz
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:            "./data/simtrack.db",
			EventRetention:  Duration(30 * Day),
			ReportRetention: Duration(90 * Day),
		},
		Server: ServerConfig{
			Address: "localhost:1921",
		},
		Sim: SimConfig{
			Provider: "xplane",
			XPlane: XPlaneConfig{
				RESTURL: "http://localhost:8086/api/v2",
				WSURL:   "ws://localhost:8086/api/v2",
			},
			Mock: MockSimConfig{
				Origin:         "EDDF",
				OriginLat:      50.0379,
				OriginLon:      8.5622,
				OriginElev:     364,
				Destination:    "EDDM",
				DestLat:        48.3538,
				DestLon:        11.7861,
				DestElev:       1487,
				CruiseAltitude: 24000,
				DurationParked: Duration(60 * time.Second),
				DurationTaxi:   Duration(120 * time.Second),
				TimeScale:      1,
			},
		},
		Sampling: SamplingConfig{
			Primary:       Duration(time.Second),
			Secondary:     Duration(time.Second),
			Landing:       Duration(5 * time.Second),
			TrackDistance: Distance(1852), // 1nm
		},
		Tracking: TrackingConfig{
			GroundTick:          Duration(5 * time.Second),
			BannerDuration:      Duration(5 * time.Second),
			DebounceWindow:      Duration(10 * time.Second),
			ResumeMaxDistance:   Distance(2 * 1852),
			FuelRateKgPerMin:    1000,
			PayloadRateKgPerMin: 500,
			MinLoadingTime:      Duration(time.Minute),
			PersistInterval:     Duration(30 * time.Second),
			HardLandingFPM:      600,
		},
		Request: RequestConfig{
			Retries: 5,
			Timeout: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(1 * time.Second),
				MaxDelay:  Duration(60 * time.Second),
			},
		},
		Report: ReportConfig{
			Enabled: true,
			BaseURL: "http://localhost:8080/api",
		},
		Audio: AudioConfig{
			Enabled:  true,
			SoundDir: "./data/sounds",
			VoiceDir: "./data/voice",
			Engine:   "voice-pack",
			Volume:   1.0,
			Headset: HeadsetConfig{
				Enabled:    false,
				LowCutoff:  400,
				HighCutoff: 3500,
			},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Secrets are never written back to disk.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := loadEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}
	if cfg.Report.Token == "" {
		cfg.Report.Token = os.Getenv(EnvReportToken)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnv reads a .env file without overriding variables that are already set.
func loadEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Sim.Provider {
	case "mock", "xplane":
	default:
		return fmt.Errorf("invalid sim provider %q: must be 'mock' or 'xplane'", c.Sim.Provider)
	}
	switch c.Audio.Engine {
	case "voice-pack", "windows-sapi", "none":
	default:
		return fmt.Errorf("invalid audio engine %q", c.Audio.Engine)
	}
	if c.Sampling.Primary <= 0 || c.Sampling.Secondary <= 0 || c.Sampling.Landing <= 0 {
		return fmt.Errorf("sampling intervals must be positive")
	}
	if c.Audio.Headset.Enabled && c.Audio.Headset.LowCutoff >= c.Audio.Headset.HighCutoff {
		return fmt.Errorf("headset low cutoff must be below high cutoff")
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("audio volume %.2f out of range [0, 1]", c.Audio.Volume)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.Report.Token = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# SimTrack Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft (feet)
# The report API token is read from ` + EnvReportToken + ` (environment or .env).

`)
	data = append(header, data...)

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: mock, xplane\n${1}provider:"))

	reEngine := regexp.MustCompile(`(?m)^(\s+)engine:`)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: voice-pack, windows-sapi, none\n${1}engine:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return Save(path, DefaultConfig())
}
