package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one synthesis attempt recorded in the speech log.
type Entry struct {
	Engine string
	Voice  string
	Text   string
	Took   time.Duration
	Err    error
}

var speechLog = struct {
	mu   sync.Mutex
	path string
}{path: "logs/speech.log"}

// SetLogPath configures the speech log file. Empty disables it.
func SetLogPath(path string) {
	speechLog.mu.Lock()
	defer speechLog.mu.Unlock()
	speechLog.path = path
}

// Log appends e to the speech log as
// [2006-01-02 15:04:05] [engine/voice] OK 420ms | text
func Log(e Entry) {
	speechLog.mu.Lock()
	defer speechLog.mu.Unlock()
	if speechLog.path == "" {
		return
	}

	_ = os.MkdirAll(filepath.Dir(speechLog.path), 0o755)
	f, err := os.OpenFile(speechLog.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	who := e.Engine
	if e.Voice != "" {
		who += "/" + e.Voice
	}
	status := "OK"
	if e.Err != nil {
		status = fmt.Sprintf("ERROR(%v)", e.Err)
	}
	_, _ = fmt.Fprintf(f, "[%s] [%s] %s %s | %s\n",
		time.Now().Format("2006-01-02 15:04:05"), who, status, e.Took.Round(time.Millisecond), e.Text)
}
