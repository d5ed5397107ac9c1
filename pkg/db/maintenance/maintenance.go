package maintenance

import (
	"context"
	"log/slog"
	"time"

	"simtrack/pkg/db"
	"simtrack/pkg/store"
)

const lastRunStateKey = "maintenance_last_run"

// Retention configures how long rows are kept.
type Retention struct {
	Events  time.Duration
	Reports time.Duration
}

// Run prunes old tracking events and submitted reports. It runs at most once
// per day; the last run is recorded in the state store.
// It blocks until completion.
func Run(ctx context.Context, s store.StateStore, d *db.DB, r Retention) error {
	now := time.Now()
	if last, ok := s.GetState(ctx, lastRunStateKey); ok {
		if t, err := time.Parse(time.RFC3339, last); err == nil && now.Sub(t) < 24*time.Hour {
			slog.Debug("Database maintenance skipped, ran recently", "last_run", last)
			return nil
		}
	}

	slog.Info("Starting database maintenance...")

	if r.Events > 0 {
		if n, err := d.PruneEvents(r.Events); err != nil {
			slog.Error("Event pruning failed", "error", err)
		} else {
			slog.Info("Event pruning completed", "removed", n)
		}
	}
	if r.Reports > 0 {
		if n, err := d.PruneReports(r.Reports); err != nil {
			slog.Error("Report pruning failed", "error", err)
		} else {
			slog.Info("Report pruning completed", "removed", n)
		}
	}

	return s.SetState(ctx, lastRunStateKey, now.UTC().Format(time.RFC3339))
}
