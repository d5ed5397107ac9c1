package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simtrack/pkg/config"
	"simtrack/pkg/tracker"
	"simtrack/pkg/tracking"
	"simtrack/pkg/version"
)

type fixedQueues map[string]int

func (q fixedQueues) QueueLengths() map[string]int { return q }

func newTestServer(t *testing.T, shutdown func()) (*httptest.Server, *tracker.Tracker) {
	t.Helper()
	st := &mockStore{}
	ctrl := tracking.NewController(tracking.DefaultConfig(), tracking.Sinks{})
	ctrl.Start(context.Background())
	stats := tracker.New()
	hub := NewHub(nil)

	srv := NewServer("",
		NewTelemetryHandler(hub),
		NewTrackingHandler(ctrl, nil, nil, nil, 2),
		NewConfigHandler(st, config.NewProvider(config.DefaultConfig(), st), nil),
		NewStatsHandler(stats, fixedQueues{"primary": 3, "secondary": 0, "landing": 1}, hub),
		hub,
		shutdown,
	)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, stats
}

func TestServer_Routes(t *testing.T) {
	ts, _ := newTestServer(t, func() {})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/version", http.StatusOK},
		{http.MethodGet, "/api/status", http.StatusOK},
		{http.MethodGet, "/api/telemetry", http.StatusOK},
		{http.MethodGet, "/api/events", http.StatusOK},
		{http.MethodGet, "/api/config", http.StatusOK},
		{http.MethodGet, "/api/stats", http.StatusOK},
		{http.MethodGet, "/api/log/latest", http.StatusOK},
		{http.MethodPost, "/api/tracking/stop", http.StatusConflict},
		{http.MethodPost, "/api/tracking/speed-up", http.StatusOK},
		{http.MethodGet, "/api/tracking/start", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, http.NoBody)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestServer_Version(t *testing.T) {
	ts, _ := newTestServer(t, func() {})

	resp, err := http.Get(ts.URL + "/api/version")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, version.Version, body["version"])
}

func TestServer_Stats(t *testing.T) {
	ts, stats := newTestServer(t, func() {})
	stats.TrackSuccess("primary")
	stats.TrackSuccess("primary")
	stats.TrackSuccess("primary")
	stats.TrackFailure("primary")
	stats.TrackSkipped("primary")

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	primary := body.Sources["primary"]
	assert.Equal(t, int64(3), primary.Success)
	assert.Equal(t, int64(1), primary.Skipped)
	assert.Equal(t, int64(75), primary.SuccessRate)
	assert.Equal(t, 3, body.Queues["primary"])
	assert.Positive(t, body.Diagnostics.Goroutines)
}

func TestServer_Shutdown(t *testing.T) {
	called := make(chan struct{})
	ts, _ := newTestServer(t, func() { close(called) })

	resp, err := http.Post(ts.URL+"/api/shutdown", "text/plain", strings.NewReader(""))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown func not called")
	}
}
