package store

import (
	"context"

	"simtrack/pkg/model"
)

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// EventStore persists the tracking event log of every session.
type EventStore interface {
	AppendEvent(ctx context.Context, sessionID string, e model.TrackingEvent) error
	ListEvents(ctx context.Context, sessionID string, limit int) ([]model.TrackingEvent, error)
}

// ReportStatus is the submission state of a stored flight report.
type ReportStatus struct {
	ID           string
	FlightNumber string
	Attempts     int
	LastError    string
	Submitted    bool
}

// ReportStore keeps flight reports until they were submitted.
type ReportStore interface {
	SaveReport(ctx context.Context, r *model.FlightReport) error
	GetReport(ctx context.Context, id string) (*model.FlightReport, error)
	PendingReports(ctx context.Context) ([]*model.FlightReport, error)
	MarkReportSubmitted(ctx context.Context, id string) error
	MarkReportFailed(ctx context.Context, id string, cause error) error
	ReportStatus(ctx context.Context, id string) (*ReportStatus, error)
}
