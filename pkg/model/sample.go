package model

import "time"

// Category identifies an independent sample stream.
type Category int

const (
	CategoryPrimary Category = iota
	CategorySecondary
	CategoryLanding
)

func (c Category) String() string {
	switch c {
	case CategoryPrimary:
		return "primary"
	case CategorySecondary:
		return "secondary"
	case CategoryLanding:
		return "landing"
	default:
		return "unknown"
	}
}

// Sample is an immutable snapshot of simulator state for one category.
type Sample interface {
	Category() Category
}

// PrimarySample carries position, motion and integrity flags.
type PrimarySample struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`

	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	AltitudeIndicated float64 `json:"altitude_indicated"` // ft
	AltitudeTrue      float64 `json:"altitude_true"`      // ft MSL
	RadioHeight       float64 `json:"radio_height"`       // ft AGL
	GroundSpeed       float64 `json:"ground_speed"`       // kt
	TrueAirspeed      float64 `json:"true_airspeed"`      // kt
	Heading           float64 `json:"heading"`            // deg true
	Pitch             float64 `json:"pitch"`
	Bank              float64 `json:"bank"`
	VerticalSpeed     float64 `json:"vertical_speed"` // fpm

	OnGround         bool          `json:"on_ground"`
	SlewActive       bool          `json:"slew_active"`
	SimulationRate   float64       `json:"simulation_rate"`
	CrashSequence    CrashSequence `json:"crash_sequence"`
	OverspeedWarning bool          `json:"overspeed_warning"`
	StallWarning     bool          `json:"stall_warning"`
	SimTime          time.Time     `json:"sim_time"` // UTC
}

// Category implements Sample.
func (PrimarySample) Category() Category { return CategoryPrimary }

// SecondarySample carries discrete system and switch states.
type SecondarySample struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`

	EngineRunning bool          `json:"engine_running"`
	BeaconLight   bool          `json:"beacon_light"`
	NavLight      bool          `json:"nav_light"`
	StrobeLight   bool          `json:"strobe_light"`
	TaxiLight     bool          `json:"taxi_light"`
	LandingLight  bool          `json:"landing_light"`
	Pushback      PushbackState `json:"pushback"`

	BatteryMaster    bool    `json:"battery_master"`
	GearDown         bool    `json:"gear_down"`
	FlapsPercent     float64 `json:"flaps_percent"`
	AutopilotEngaged bool    `json:"autopilot_engaged"`
	ParkingBrake     bool    `json:"parking_brake"`
	SpoilersArmed    bool    `json:"spoilers_armed"`
	APUGenerator     bool    `json:"apu_generator"`
	SeatbeltSigns    bool    `json:"seatbelt_signs"`
	NoSmokingSigns   bool    `json:"no_smoking_signs"`

	CrashDetection bool `json:"crash_detection"`
	UnlimitedFuel  bool `json:"unlimited_fuel"`
}

// Category implements Sample.
func (SecondarySample) Category() Category { return CategorySecondary }

// LandingSample is polled slowly and used for touchdown analysis.
type LandingSample struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`

	OnGround      bool    `json:"on_ground"`
	VerticalSpeed float64 `json:"vertical_speed"` // fpm at touchdown
	GForce        float64 `json:"g_force"`
	Pitch         float64 `json:"pitch"`
	Bank          float64 `json:"bank"`
	GroundSpeed   float64 `json:"ground_speed"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

// Category implements Sample.
func (LandingSample) Category() Category { return CategoryLanding }

// Pair holds two chronologically adjacent samples of the same category.
// When no previous sample exists Old equals New.
type Pair[T Sample] struct {
	Old T
	New T
}
