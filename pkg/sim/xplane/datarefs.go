package xplane

import (
	"encoding/json"
	"fmt"
	"math"
)

// Datarefs read by the client.
const (
	drLatitude      = "sim/flightmodel/position/latitude"
	drLongitude     = "sim/flightmodel/position/longitude"
	drElevation     = "sim/flightmodel/position/elevation" // m MSL
	drAltIndicated  = "sim/cockpit2/gauges/indicators/altitude_ft_pilot"
	drAGL           = "sim/flightmodel/position/y_agl"         // m
	drGroundSpeed   = "sim/flightmodel/position/groundspeed"   // m/s
	drTrueAirspeed  = "sim/flightmodel/position/true_airspeed" // m/s
	drHeading       = "sim/flightmodel/position/psi"
	drPitch         = "sim/flightmodel/position/theta"
	drBank          = "sim/flightmodel/position/phi"
	drVerticalSpeed = "sim/flightmodel/position/vh_ind_fpm"
	drOnGround      = "sim/flightmodel/failures/onground_any"
	drGForce        = "sim/flightmodel/forces/g_nrml"
	drSimSpeed      = "sim/time/sim_speed_actual"
	drPaused        = "sim/time/paused"
	drReplay        = "sim/operation/prefs/replay_mode"
	drZuluSeconds   = "sim/time/zulu_time_sec"
	drDateDays      = "sim/time/local_date_days"
	drCrashed       = "sim/flightmodel2/misc/has_crashed"
	drStall         = "sim/cockpit2/annunciators/stall_warning"
	drOverspeed     = "sim/flightmodel/failures/over_vne"

	drEngineRunning = "sim/flightmodel/engine/ENGN_running"
	drBeacon        = "sim/cockpit2/switches/beacon_on"
	drNav           = "sim/cockpit2/switches/navigation_lights_on"
	drStrobe        = "sim/cockpit2/switches/strobe_lights_on"
	drTaxi          = "sim/cockpit2/switches/taxi_light_on"
	drLanding       = "sim/cockpit2/switches/landing_lights_on"
	drPushback      = "sim/flightmodel2/misc/pushback_in_progress"
	drBattery       = "sim/cockpit2/electrical/battery_on"
	drGearHandle    = "sim/cockpit2/controls/gear_handle_down"
	drFlapRatio     = "sim/cockpit2/controls/flap_ratio"
	drAutopilot     = "sim/cockpit2/autopilot/servos_on"
	drParkingBrake  = "sim/cockpit2/controls/parking_brake_ratio"
	drSpeedbrake    = "sim/cockpit2/controls/speedbrake_ratio"
	drAPUGenerator  = "sim/cockpit2/electrical/APU_generator_on"
	drSeatbelts     = "sim/cockpit2/switches/fasten_seat_belts"
	drNoSmoking     = "sim/cockpit2/switches/no_smoking"
)

// subscribed is every dataref the client subscribes to.
var subscribed = []string{
	drLatitude, drLongitude, drElevation, drAltIndicated, drAGL, drGroundSpeed,
	drTrueAirspeed, drHeading, drPitch, drBank, drVerticalSpeed, drOnGround,
	drGForce, drSimSpeed, drPaused, drReplay, drZuluSeconds, drDateDays,
	drCrashed, drStall, drOverspeed,
	drEngineRunning, drBeacon, drNav, drStrobe, drTaxi, drLanding, drPushback,
	drBattery, drGearHandle, drFlapRatio, drAutopilot, drParkingBrake,
	drSpeedbrake, drAPUGenerator, drSeatbelts, drNoSmoking,
}

// decodeValue reduces a dataref value to one number. Arrays (engines,
// batteries) count as their largest element so "any engine running" is > 0.
func decodeValue(raw json.RawMessage) (float64, error) {
	var scalar float64
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return scalar, nil
	}
	var arr []float64
	if err := json.Unmarshal(raw, &arr); err != nil {
		return 0, fmt.Errorf("unsupported dataref value %s", string(raw))
	}
	out := 0.0
	for i, v := range arr {
		if i == 0 || v > out {
			out = v
		}
	}
	if math.IsNaN(out) {
		return 0, nil
	}
	return out, nil
}
