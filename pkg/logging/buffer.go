package logging

import (
	"strings"
	"sync"
)

const defaultCaptureLines = 50

// LogCaptureWriter is a thread-safe writer keeping the most recent lines in a
// small ring buffer.
type LogCaptureWriter struct {
	mu    sync.RWMutex
	lines []string
	next  int
	full  bool
}

// NewLogCaptureWriter creates a writer keeping up to size lines.
func NewLogCaptureWriter(size int) *LogCaptureWriter {
	if size <= 0 {
		size = defaultCaptureLines
	}
	return &LogCaptureWriter{lines: make([]string, size)}
}

// GlobalLogCapture captures server log lines for the overlay and the API.
var GlobalLogCapture = NewLogCaptureWriter(defaultCaptureLines)

// GlobalEventCapture captures formatted tracking events.
var GlobalEventCapture = NewLogCaptureWriter(defaultCaptureLines)

// Write implements io.Writer. Every call is stored as one line.
func (w *LogCaptureWriter) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\r\n")
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines[w.next] = line
	w.next = (w.next + 1) % len(w.lines)
	if w.next == 0 {
		w.full = true
	}
	return len(p), nil
}

// GetLastLine returns the most recent log line.
func (w *LogCaptureWriter) GetLastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.full && w.next == 0 {
		return ""
	}
	return w.lines[(w.next-1+len(w.lines))%len(w.lines)]
}

// Lines returns up to n of the most recent lines, oldest first.
func (w *LogCaptureWriter) Lines(n int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	count := w.next
	if w.full {
		count = len(w.lines)
	}
	if n <= 0 || n > count {
		n = count
	}
	out := make([]string, 0, n)
	start := (w.next - n + len(w.lines)) % len(w.lines)
	for i := 0; i < n; i++ {
		out = append(out, w.lines[(start+i)%len(w.lines)])
	}
	return out
}
