package logging

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"simtrack/pkg/model"
)

var events struct {
	mu      sync.Mutex
	path    string
	minRank int
}

func severityRank(s model.Severity) int {
	switch s {
	case model.SeverityViolation:
		return 2
	case model.SeverityWarning:
		return 1
	default:
		return 0
	}
}

// SetEventLogPath configures the path for the event log file. Empty disables the file.
func SetEventLogPath(path string) {
	events.mu.Lock()
	defer events.mu.Unlock()
	events.path = path
}

// SetEventLevel filters the event log file: WARN keeps warnings and
// violations, ERROR keeps violations only. Anything else keeps all events.
func SetEventLevel(level string) {
	rank := 0
	switch strings.ToUpper(level) {
	case "WARN":
		rank = 1
	case "ERROR":
		rank = 2
	}
	events.mu.Lock()
	defer events.mu.Unlock()
	events.minRank = rank
}

// LogEvent writes a tracking event to the event log file. Every event is
// captured for the API regardless of the file filter.
func LogEvent(event *model.TrackingEvent) {
	line := formatEvent(event)
	_, _ = GlobalEventCapture.Write([]byte(line))

	events.mu.Lock()
	defer events.mu.Unlock()
	if events.path == "" || severityRank(event.Severity) < events.minRank {
		return
	}

	f, err := openLog(events.path)
	if err != nil {
		slog.Error("Logging: failed to open event log", "path", events.path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		slog.Error("Logging: failed to write event log", "error", err)
	}
}

// formatEvent renders [2006-01-02 15:04:05] [severity] [type] Message (phase).
func formatEvent(event *model.TrackingEvent) string {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("[%s] [%s] [%s] %s", ts.Format("2006-01-02 15:04:05"), event.Severity, event.Type, event.Message)
	if event.Telemetry.Phase != model.PhaseUnTracked {
		line += " (" + event.Telemetry.Phase.String() + ")"
	}
	return strings.TrimSpace(line)
}
