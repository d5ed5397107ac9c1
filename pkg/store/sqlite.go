package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"simtrack/pkg/db"
	"simtrack/pkg/model"
)

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	StateStore
	EventStore
	ReportStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}

// --- Events ---

func (s *SQLiteStore) AppendEvent(ctx context.Context, sessionID string, e model.TrackingEvent) error {
	tel, err := json.Marshal(e.Telemetry)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tracking_events (id, session_id, ts, type, severity, message, telemetry) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), sessionID, e.Timestamp.UTC(), string(e.Type), string(e.Severity), e.Message, string(tel))
	return err
}

// ListEvents returns the events of a session in chronological order. A
// positive limit keeps only the most recent events.
func (s *SQLiteStore) ListEvents(ctx context.Context, sessionID string, limit int) ([]model.TrackingEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, type, severity, message, telemetry FROM (
			SELECT id, ts, type, severity, message, telemetry, rowid AS seq FROM tracking_events
			WHERE session_id = ? ORDER BY ts DESC, seq DESC LIMIT ?
		) ORDER BY ts ASC, seq ASC`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TrackingEvent
	for rows.Next() {
		var (
			e        model.TrackingEvent
			id       string
			typ, sev string
			tel      sql.NullString
		)
		if err := rows.Scan(&id, &e.Timestamp, &typ, &sev, &e.Message, &tel); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("event %s: %w", id, err)
		}
		e.Type, e.Severity = model.EventType(typ), model.Severity(sev)
		if tel.Valid && tel.String != "" {
			if err := json.Unmarshal([]byte(tel.String), &e.Telemetry); err != nil {
				return nil, fmt.Errorf("event %s telemetry: %w", id, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Reports ---

func (s *SQLiteStore) SaveReport(ctx context.Context, r *model.FlightReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if compressed, err := compress(data); err == nil {
		data = compressed
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flight_reports (id, flight_number, data, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, flight_number = excluded.flight_number`,
		r.ID, r.Flight.Number, data, time.Now())
	return err
}

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*model.FlightReport, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM flight_reports WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeReport(data)
}

// PendingReports returns reports that were never submitted, oldest first.
func (s *SQLiteStore) PendingReports(ctx context.Context) ([]*model.FlightReport, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, data FROM flight_reports WHERE submitted_at IS NULL ORDER BY created_at ASC, rowid ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.FlightReport
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		r, err := decodeReport(data)
		if err != nil {
			return nil, fmt.Errorf("report %s: %w", id, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkReportSubmitted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE flight_reports SET submitted_at = ?, attempts = attempts + 1, last_error = NULL WHERE id = ?", time.Now(), id)
	return err
}

func (s *SQLiteStore) MarkReportFailed(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE flight_reports SET attempts = attempts + 1, last_error = ? WHERE id = ?", msg, id)
	return err
}

func (s *SQLiteStore) ReportStatus(ctx context.Context, id string) (*ReportStatus, error) {
	var (
		st        ReportStatus
		lastError sql.NullString
		submitted sql.NullTime
		number    sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, flight_number, attempts, last_error, submitted_at FROM flight_reports WHERE id = ?", id).
		Scan(&st.ID, &number, &st.Attempts, &lastError, &submitted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st.FlightNumber = number.String
	st.LastError = lastError.String
	st.Submitted = submitted.Valid
	return &st, nil
}

func decodeReport(data []byte) (*model.FlightReport, error) {
	// Transparent Decompression
	if len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b {
		if decompressed, err := decompress(data); err == nil {
			data = decompressed
		}
	}
	var r model.FlightReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// --- Compression Pooling ---

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
