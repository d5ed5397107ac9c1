package sim

import (
	"context"
	"errors"

	"simtrack/pkg/model"
)

var (
	// ErrNotConnected is returned when a read requires a connection.
	ErrNotConnected = errors.New("simulator not connected")
	// ErrNoData is returned when connected but no values have arrived yet.
	ErrNoData = errors.New("no simulator data yet")
)

// Client defines the interface for simulator interaction.
// Reads return the latest known values and must not block on the simulator.
type Client interface {
	// GetState returns the current simulator connection/activity state.
	GetState() State
	// ReadPrimary captures position, motion and integrity flags.
	ReadPrimary(ctx context.Context) (model.PrimarySample, error)
	// ReadSecondary captures switch and system states.
	ReadSecondary(ctx context.Context) (model.SecondarySample, error)
	// ReadLanding captures touchdown parameters.
	ReadLanding(ctx context.Context) (model.LandingSample, error)
	// Close cleans up resources associated with the client.
	Close() error
}
