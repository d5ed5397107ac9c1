package logging

import (
	"log/slog"
	"sync/atomic"
)

var traceEnabled atomic.Bool

// SetTrace switches per-sample trace logging on or off. Init enables it for
// the TRACE server log level.
func SetTrace(on bool) {
	traceEnabled.Store(on)
}

// TraceEnabled reports whether trace logging is on.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// Trace logs a message at DEBUG level, but only if tracing is enabled.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if traceEnabled.Load() {
		logger.Debug(msg, args...)
	}
}

// TraceDefault logs to the default logger if tracing is enabled.
func TraceDefault(msg string, args ...any) {
	if traceEnabled.Load() {
		slog.Debug(msg, args...)
	}
}
