package core

import (
	"context"

	"simtrack/pkg/model"
	"simtrack/pkg/sim"
	"simtrack/pkg/tracking"
)

// TelemetrySink is a consumer of the live primary stream and the simulator
// state, e.g. the API.
type TelemetrySink interface {
	Update(p *model.PrimarySample)
	UpdateState(s sim.State)
}

// SampleSubmitter accepts samples read from the simulator.
type SampleSubmitter interface {
	Submit(s model.Sample)
}

// SessionTracker is the part of the tracking controller the scheduler and
// the jobs drive.
type SessionTracker interface {
	Status() model.TrackingStatus
	Disconnected(ctx context.Context)
	RecordPosition(ctx context.Context, p model.PrimarySample)
	PersistableSession() (*tracking.Session, bool)
}

// SessionResettable is implemented by components holding per-connection
// state that must be forgotten when the simulator reconnects.
type SessionResettable interface {
	ResetSession(ctx context.Context)
}
