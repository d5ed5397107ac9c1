package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"

	"simtrack/pkg/tracker"
)

// QueueReporter reports the pending pair count per sample category.
type QueueReporter interface {
	QueueLengths() map[string]int
}

type StatsHandler struct {
	tracker *tracker.Tracker
	queues  QueueReporter
	hub     *Hub
	mu      sync.Mutex
	maxHeap uint64
}

// NewStatsHandler creates a stats handler. queues and hub may be nil.
func NewStatsHandler(t *tracker.Tracker, queues QueueReporter, hub *Hub) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		queues:  queues,
		hub:     hub,
	}
}

type SourceStatsDTO struct {
	Success     int64 `json:"success"`
	Failures    int64 `json:"failures"`
	Retries     int64 `json:"retries"`
	Skipped     int64 `json:"skipped"`
	SuccessRate int64 `json:"success_rate"`
}

type Diagnostics struct {
	HeapMB     uint64 `json:"heap_mb"`
	HeapMaxMB  uint64 `json:"heap_max_mb"`
	Goroutines int    `json:"goroutines"`
}

type StatsResponse struct {
	Diagnostics Diagnostics               `json:"diagnostics"`
	Sources     map[string]SourceStatsDTO `json:"sources"`
	Queues      map[string]int            `json:"queues"`
	Clients     int                       `json:"clients"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	h.mu.Lock()
	diagnostics := h.gatherDiagnostics()
	h.mu.Unlock()

	resp := StatsResponse{
		Diagnostics: diagnostics,
		Sources:     make(map[string]SourceStatsDTO, len(snapshot)),
		Queues:      map[string]int{},
	}

	for source, stats := range snapshot {
		total := stats.Success + stats.Failures
		rate := int64(0)
		if total > 0 {
			rate = (stats.Success * 100) / total
		}
		resp.Sources[source] = SourceStatsDTO{
			Success:     stats.Success,
			Failures:    stats.Failures,
			Retries:     stats.Retries,
			Skipped:     stats.Skipped,
			SuccessRate: rate,
		}
	}
	if h.queues != nil {
		resp.Queues = h.queues.QueueLengths()
	}
	if h.hub != nil {
		resp.Clients = h.hub.ClientCount()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// gatherDiagnostics must be called with h.mu held.
func (h *StatsHandler) gatherDiagnostics() Diagnostics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.HeapAlloc > h.maxHeap {
		h.maxHeap = m.HeapAlloc
	}
	return Diagnostics{
		HeapMB:     bToMb(m.HeapAlloc),
		HeapMaxMB:  bToMb(h.maxHeap),
		Goroutines: runtime.NumGoroutine(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
