package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"simtrack/pkg/model"
	"simtrack/pkg/sim"
)

func TestTelemetryHandler_HandleTelemetry(t *testing.T) {
	sample := model.PrimarySample{
		Latitude:     51.5,
		Longitude:    -0.1,
		AltitudeTrue: 1000,
		OnGround:     false,
	}

	tests := []struct {
		name      string
		setup     func(*TelemetryHandler)
		wantLat   float64
		wantState sim.State
		wantValid bool
	}{
		{
			name: "Success_WithData",
			setup: func(h *TelemetryHandler) {
				h.UpdateState(sim.StateActive)
				h.Update(&sample)
			},
			wantLat:   51.5,
			wantState: sim.StateActive,
			wantValid: true,
		},
		{
			name:      "Success_EmptyInitial",
			wantState: sim.StateDisconnected,
		},
		{
			name: "DisconnectInvalidates",
			setup: func(h *TelemetryHandler) {
				h.Update(&sample)
				h.UpdateState(sim.StateDisconnected)
			},
			wantLat:   51.5,
			wantState: sim.StateDisconnected,
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTelemetryHandler(nil)
			if tt.setup != nil {
				tt.setup(handler)
			}

			req := httptest.NewRequest("GET", "/api/telemetry", http.NoBody)
			w := httptest.NewRecorder()

			handler.handleTelemetry(w, req)

			resp := w.Result()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("StatusCode: got %v, want %v", resp.StatusCode, http.StatusOK)
			}

			var got TelemetryResponse
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode JSON: %v", err)
			}
			if got.Latitude != tt.wantLat {
				t.Errorf("got Lat %v, want %v", got.Latitude, tt.wantLat)
			}
			if got.SimState != tt.wantState {
				t.Errorf("got state %v, want %v", got.SimState, tt.wantState)
			}
			if got.Valid != tt.wantValid {
				t.Errorf("got valid %v, want %v", got.Valid, tt.wantValid)
			}
		})
	}
}

func TestTelemetryHandler_BroadcastsStateChanges(t *testing.T) {
	hub := NewHub(nil)
	handler := NewTelemetryHandler(hub)

	handler.UpdateState(sim.StateActive)
	handler.UpdateState(sim.StateActive)
	handler.UpdateState(sim.StateInactive)

	if got := len(hub.broadcast); got != 2 {
		t.Fatalf("queued broadcasts = %d, want 2", got)
	}
	msg := <-hub.broadcast
	if msg.Type != MessageTypeSimState || msg.Data["state"] != sim.StateActive {
		t.Errorf("first message = %+v", msg)
	}
}
