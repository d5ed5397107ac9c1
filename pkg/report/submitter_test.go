package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simtrack/pkg/db"
	"simtrack/pkg/model"
	"simtrack/pkg/request"
	"simtrack/pkg/store"
	"simtrack/pkg/tracking"
)

var _ tracking.Finalizer = (*Submitter)(nil)

type bannerRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (b *bannerRecorder) Banner(msg string, _ time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
}

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return store.NewSQLiteStore(d)
}

func testReport(id string) *model.FlightReport {
	return &model.FlightReport{
		ID:         id,
		Flight:     model.Flight{Number: "DLH100"},
		FinalPhase: model.PhasePostFlight,
		Events:     []model.TrackingEvent{{Message: "Flight tracking stopped"}},
	}
}

func TestSubmit(t *testing.T) {
	var received atomic.Value
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/flights", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var rep model.FlightReport
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&rep))
		received.Store(rep.ID)
		w.WriteHeader(http.StatusCreated)
	}))
	defer svr.Close()

	st := newStore(t)
	banner := &bannerRecorder{}
	sub := NewSubmitter(st, request.New(nil, request.Options{BaseDelay: time.Millisecond}),
		Config{BaseURL: svr.URL + "/api/", Token: "secret"}, banner)
	ctx := context.Background()

	require.NoError(t, st.SaveReport(ctx, testReport("r1")))
	require.NoError(t, sub.Submit(ctx, "r1"))

	assert.Equal(t, "r1", received.Load())
	status, err := st.ReportStatus(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, status.Submitted)
	assert.Contains(t, banner.msgs, "Flight report DLH100 submitted")

	pending, err := st.PendingReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSubmit_Rejected(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown flight", http.StatusUnprocessableEntity)
	}))
	defer svr.Close()

	st := newStore(t)
	banner := &bannerRecorder{}
	sub := NewSubmitter(st, request.New(nil, request.Options{BaseDelay: time.Millisecond}), Config{BaseURL: svr.URL}, banner)
	ctx := context.Background()
	require.NoError(t, st.SaveReport(ctx, testReport("r1")))

	err := sub.Submit(ctx, "r1")
	assert.ErrorIs(t, err, ErrRejected)

	status, _ := st.ReportStatus(ctx, "r1")
	require.NotNil(t, status)
	assert.False(t, status.Submitted)
	assert.Equal(t, 1, status.Attempts)
	assert.Contains(t, status.LastError, "unknown flight")
	assert.Contains(t, banner.msgs, "Flight report DLH100 was rejected")
}

func TestSubmit_ServerDownIsNotRejection(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer svr.Close()

	st := newStore(t)
	sub := NewSubmitter(st, request.New(nil, request.Options{Retries: 2, BaseDelay: time.Millisecond}), Config{BaseURL: svr.URL}, nil)
	ctx := context.Background()
	require.NoError(t, st.SaveReport(ctx, testReport("r1")))

	err := sub.Submit(ctx, "r1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, request.ErrMaxRetries)
}

func TestSubmit_Disabled(t *testing.T) {
	var calls int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer svr.Close()

	st := newStore(t)
	sub := NewSubmitter(st, request.New(nil, request.Options{}), Config{
		BaseURL: svr.URL,
		Enabled: func(context.Context) bool { return false },
	}, nil)
	ctx := context.Background()
	require.NoError(t, st.SaveReport(ctx, testReport("r1")))

	require.NoError(t, sub.Submit(ctx, "r1"))
	assert.Zero(t, atomic.LoadInt32(&calls))
	pending, _ := st.PendingReports(ctx)
	assert.Len(t, pending, 1)
}

func TestFinishAndRetryPending(t *testing.T) {
	var mu sync.Mutex
	var ids []string
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rep model.FlightReport
		_ = json.NewDecoder(r.Body).Decode(&rep)
		mu.Lock()
		ids = append(ids, rep.ID)
		mu.Unlock()
	}))
	defer svr.Close()

	st := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A report left over from a previous run.
	require.NoError(t, st.SaveReport(ctx, testReport("old")))

	sub := NewSubmitter(st, request.New(nil, request.Options{}), Config{BaseURL: svr.URL}, nil)
	n, err := sub.RetryPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = sub.RetryPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "already queued")

	sub.FinishUpFlightTracking(ctx, testReport("new"))
	sub.FinishUpFlightTracking(ctx, &model.FlightReport{})

	go sub.Run(ctx)

	assert.Eventually(t, func() bool {
		pending, err := st.PendingReports(ctx)
		return err == nil && len(pending) == 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"old", "new"}, ids)
}
