package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"simtrack/pkg/model"
	"simtrack/pkg/sim"
)

// TelemetryResponse is the API response structure.
type TelemetryResponse struct {
	model.PrimarySample
	SimState sim.State `json:"sim_state"`
	Valid    bool      `json:"valid"`
}

// TelemetryHandler keeps the latest primary sample for the GUI.
type TelemetryHandler struct {
	mu       sync.RWMutex
	sample   model.PrimarySample
	valid    bool
	simState sim.State
	hub      *Hub
}

// NewTelemetryHandler creates a handler. State changes are pushed to hub
// when it is not nil.
func NewTelemetryHandler(hub *Hub) *TelemetryHandler {
	return &TelemetryHandler{simState: sim.StateDisconnected, hub: hub}
}

// Update implements core.TelemetrySink.
func (h *TelemetryHandler) Update(p *model.PrimarySample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sample = *p
	h.valid = true
}

// UpdateState updates the simulator state.
func (h *TelemetryHandler) UpdateState(s sim.State) {
	h.mu.Lock()
	changed := h.simState != s
	h.simState = s
	if s == sim.StateDisconnected {
		h.valid = false
	}
	h.mu.Unlock()

	if changed && h.hub != nil {
		h.hub.Broadcast(&Message{Type: MessageTypeSimState, Data: map[string]any{"state": s}})
	}
}

func (h *TelemetryHandler) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	resp := TelemetryResponse{
		PrimarySample: h.sample,
		SimState:      h.simState,
		Valid:         h.valid,
	}
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode telemetry response", "error", err)
	}
}
