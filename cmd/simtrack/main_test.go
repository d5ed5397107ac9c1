package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"simtrack/pkg/config"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	tempConfig := `
server:
    address: localhost:0  # 0 lets OS choose free port
log:
    server:
        path: "` + filepath.ToSlash(filepath.Join(dir, "server.log")) + `"
        level: "debug"
    requests:
        path: "` + filepath.ToSlash(filepath.Join(dir, "requests.log")) + `"
        level: "info"
    events:
        path: "` + filepath.ToSlash(filepath.Join(dir, "events.log")) + `"
        level: "info"
db:
    path: ":memory:" # Use in-memory DB for test
sim:
    provider: mock
report:
    enabled: false
audio:
    enabled: false
    engine: none
`
	path := filepath.Join(dir, "simtrack_test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tempConfig), 0o644))

	// Cancel quickly to verify the startup sequence
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, run(ctx, path))
}

func TestRun_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sim:\n    provider: msfs\n"), 0o644))

	err := run(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load config")
}

func TestStartupProbes(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.Audio.Enabled = false
	cfg.Report.Enabled = false
	require.Len(t, startupProbes(cfg, nil, nil), 1)

	cfg.Audio.Enabled = true
	cfg.Report.Enabled = true
	probes := startupProbes(cfg, nil, nil)
	require.Len(t, probes, 3)
	require.True(t, probes[0].Critical)
	require.False(t, probes[1].Critical)
	require.False(t, probes[2].Critical)
}

func TestDetectorConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tracking.DebounceWindow = config.Duration(20 * time.Second)
	cfg.Tracking.HardLandingFPM = 450

	det := detectorConfig(cfg)
	require.Equal(t, 20*time.Second, det.DebounceWindow)
	require.Equal(t, 450.0, det.HardLandingFPM)
}
