package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Single connection: the sample analyzers, the persistence job and the
	// report worker all write concurrently.
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// sqliteTime formats t like SQLite's CURRENT_TIMESTAMP (YYYY-MM-DD HH:MM:SS).
func sqliteTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// PruneEvents removes tracking events older than the specified duration.
func (d *DB) PruneEvents(olderThan time.Duration) (int64, error) {
	res, err := d.Exec("DELETE FROM tracking_events WHERE created_at < ?", sqliteTime(time.Now().Add(-olderThan)))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneReports removes submitted flight reports older than the specified
// duration. Pending reports are never pruned.
func (d *DB) PruneReports(olderThan time.Duration) (int64, error) {
	res, err := d.Exec("DELETE FROM flight_reports WHERE submitted_at IS NOT NULL AND created_at < ?",
		sqliteTime(time.Now().Add(-olderThan)))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tracking_events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			ts DATETIME NOT NULL,
			type TEXT,
			severity TEXT,
			message TEXT,
			telemetry TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_events_session ON tracking_events (session_id, ts);`,
		`CREATE TABLE IF NOT EXISTS flight_reports (
			id TEXT PRIMARY KEY,
			flight_number TEXT,
			data BLOB,
			attempts INTEGER DEFAULT 0,
			last_error TEXT,
			submitted_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	return nil
}
