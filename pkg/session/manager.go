package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"simtrack/pkg/store"
	"simtrack/pkg/tracking"
)

// StateKey is the state store key holding the saved flight.
const StateKey = "saved_flight"

const persistentVersion = 1

// Manager saves and loads the resumable tracking session. It implements
// tracking.SessionSaver.
type Manager struct {
	store store.StateStore

	mu       sync.Mutex
	lastSave []byte
}

// NewManager creates a Manager backed by st.
func NewManager(st store.StateStore) *Manager {
	return &Manager{store: st}
}

// PersistentState represents the serialized saved flight.
type PersistentState struct {
	Version int               `json:"version"`
	SavedAt time.Time         `json:"saved_at"`
	Lat     float64           `json:"lat"`
	Lon     float64           `json:"lon"`
	Session *tracking.Session `json:"session"`
}

// SaveSession stores s as the saved flight. Saving an unchanged session is a no-op.
func (m *Manager) SaveSession(ctx context.Context, s *tracking.Session) error {
	if s == nil || s.Flight == nil {
		return nil
	}
	ps := PersistentState{
		Version: persistentVersion,
		Session: s,
	}
	if s.LastPrimary != nil {
		ps.Lat, ps.Lon = s.LastPrimary.Latitude, s.LastPrimary.Longitude
	}

	// Compare without the timestamp so an idle session is not rewritten.
	body, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if string(body) == string(m.lastSave) {
		return nil
	}

	ps.SavedAt = time.Now().UTC()
	data, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := m.store.SetState(ctx, StateKey, string(data)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.lastSave = body
	slog.Debug("Session: saved flight", "id", s.ID, "status", s.Status, "events", len(s.Events))
	return nil
}

// LoadSession returns the saved flight, or nil when there is none.
func (m *Manager) LoadSession(ctx context.Context) (*tracking.Session, error) {
	ps, err := m.load(ctx)
	if err != nil || ps == nil {
		return nil, err
	}
	return ps.Session, nil
}

// DeleteSession removes the saved flight.
func (m *Manager) DeleteSession(ctx context.Context) error {
	m.mu.Lock()
	m.lastSave = nil
	m.mu.Unlock()
	if err := m.store.DeleteState(ctx, StateKey); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Saved returns the saved flight together with its metadata, or nil.
func (m *Manager) Saved(ctx context.Context) (*PersistentState, error) {
	return m.load(ctx)
}

func (m *Manager) load(ctx context.Context) (*PersistentState, error) {
	val, found := m.store.GetState(ctx, StateKey)
	if !found || val == "" {
		return nil, nil
	}
	var ps PersistentState
	if err := json.Unmarshal([]byte(val), &ps); err != nil {
		return nil, fmt.Errorf("unmarshal saved flight: %w", err)
	}
	if ps.Version != persistentVersion {
		slog.Warn("Session: ignoring saved flight with unknown version", "version", ps.Version)
		return nil, nil
	}
	if ps.Session == nil || ps.Session.Flight == nil {
		return nil, nil
	}
	return &ps, nil
}
