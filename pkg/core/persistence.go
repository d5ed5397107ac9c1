package core

import (
	"context"
	"log/slog"
	"time"

	"simtrack/pkg/tracking"
)

const defaultPersistInterval = 30 * time.Second

// SessionPersistenceJob periodically saves the active session so it can be
// resumed after a crash of the simulator or of this process.
type SessionPersistenceJob struct {
	tracker  SessionTracker
	saver    tracking.SessionSaver
	interval time.Duration
}

// NewSessionPersistenceJob creates a new persistence job.
func NewSessionPersistenceJob(tracker SessionTracker, saver tracking.SessionSaver, interval time.Duration) *SessionPersistenceJob {
	if interval <= 0 {
		interval = defaultPersistInterval
	}
	return &SessionPersistenceJob{
		tracker:  tracker,
		saver:    saver,
		interval: interval,
	}
}

// Start begins the persistence loop.
func (j *SessionPersistenceJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)

	slog.Info("Persistence: Session persistence loop started", "interval", j.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.checkAndSave(ctx)
			}
		}
	}()
}

// checkAndSave stores the session when one is worth saving. The saver skips
// unchanged sessions.
func (j *SessionPersistenceJob) checkAndSave(ctx context.Context) {
	s, ok := j.tracker.PersistableSession()
	if !ok {
		return
	}
	if err := j.saver.SaveSession(ctx, s); err != nil {
		slog.Error("Persistence: Failed to save session state", "error", err)
	}
}
