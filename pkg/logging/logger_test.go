package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"simtrack/pkg/config"
	"simtrack/pkg/model"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	serverLog := filepath.Join(tempDir, "server.log")
	requestLog := filepath.Join(tempDir, "requests.log")
	eventLog := filepath.Join(tempDir, "events.log")

	cfg := &config.LogConfig{
		Server:   config.LogSettings{Path: serverLog, Level: "DEBUG"},
		Requests: config.LogSettings{Path: requestLog, Level: "INFO"},
		Events:   config.LogSettings{Path: eventLog, Level: "INFO"},
	}

	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer cleanup()
	defer SetEventLogPath("")

	if _, err := os.Stat(serverLog); os.IsNotExist(err) {
		t.Error("Server log file not created")
	}
	if _, err := os.Stat(requestLog); os.IsNotExist(err) {
		t.Error("Request log file not created")
	}
	if RequestLogger == nil {
		t.Error("RequestLogger was not initialized")
	}
}

func TestRotatePaths(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "server.log")
	if err := os.WriteFile(p, []byte("previous run"), 0o644); err != nil {
		t.Fatal(err)
	}

	rotatePaths(p, "")

	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("current log should have been moved away")
	}
	old, err := os.ReadFile(p + ".old")
	if err != nil {
		t.Fatalf("expected .old file: %v", err)
	}
	if string(old) != "previous run" {
		t.Errorf("rotated content = %q", old)
	}
}

func TestLogEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")
	SetEventLogPath(path)
	defer SetEventLogPath("")

	e := &model.TrackingEvent{
		Timestamp: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Type:      model.EventWarning,
		Severity:  model.SeverityWarning,
		Message:   "Beacon light off while engine running",
		Telemetry: model.TelemetrySnapshot{Phase: model.PhaseTaxiOut},
	}
	LogEvent(e)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read event log: %v", err)
	}
	want := "[2024-05-01 12:30:00] [warning] [warning] Beacon light off while engine running (TaxiOut)"
	if strings.TrimSpace(string(data)) != want {
		t.Errorf("event line = %q, want %q", strings.TrimSpace(string(data)), want)
	}
	if got := GlobalEventCapture.GetLastLine(); got != want {
		t.Errorf("capture = %q, want %q", got, want)
	}
}

func TestLogEvent_LevelFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")
	SetEventLogPath(path)
	SetEventLevel("WARN")
	defer SetEventLogPath("")
	defer SetEventLevel("INFO")

	LogEvent(&model.TrackingEvent{Type: model.EventLights, Severity: model.SeverityInfo, Message: "Beacon on"})
	LogEvent(&model.TrackingEvent{Type: model.EventViolation, Severity: model.SeverityViolation, Message: "Overspeed"})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read event log: %v", err)
	}
	if strings.Contains(string(data), "Beacon on") {
		t.Error("info event should be filtered from the file")
	}
	if !strings.Contains(string(data), "Overspeed") {
		t.Error("violation should be written")
	}
	if got := GlobalEventCapture.GetLastLine(); !strings.Contains(got, "Overspeed") {
		t.Errorf("capture = %q", got)
	}
	if lines := GlobalEventCapture.Lines(2); len(lines) != 2 || !strings.Contains(lines[0], "Beacon on") {
		t.Errorf("filtered events must still be captured, got %v", lines)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
