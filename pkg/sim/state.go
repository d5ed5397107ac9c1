// Package sim provides simulator client interfaces and types.
package sim

// State represents the connection and activity state of the simulator.
type State string

const (
	// StateDisconnected indicates no connection to the simulator.
	StateDisconnected State = "disconnected"
	// StateInactive indicates connected but not in active flight (menu/pause/replay).
	StateInactive State = "inactive"
	// StateActive indicates connected and in active flight.
	StateActive State = "active"
)

// IsActive reports whether samples are meaningful in this state.
func (s State) IsActive() bool {
	return s == StateActive
}

// StateFrom derives the state from connection and simulator flags.
func StateFrom(connected, paused, replay bool) State {
	switch {
	case !connected:
		return StateDisconnected
	case paused || replay:
		return StateInactive
	default:
		return StateActive
	}
}
