package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"simtrack/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, tel *TelemetryHandler, trk *TrackingHandler, cfg *ConfigHandler, stats *StatsHandler, hub *Hub, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health and version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Simulator and session state
	mux.HandleFunc("GET /api/telemetry", tel.handleTelemetry)
	mux.HandleFunc("GET /api/status", trk.HandleStatus)
	mux.HandleFunc("GET /api/events", trk.HandleEvents)

	// 3. Session control
	mux.HandleFunc("POST /api/tracking/start", trk.HandleStart)
	mux.HandleFunc("POST /api/tracking/resume", trk.HandleResume)
	mux.HandleFunc("POST /api/tracking/stop", trk.HandleStop)
	mux.HandleFunc("POST /api/tracking/skip-ground-handling", trk.HandleSkipGroundHandling)
	mux.HandleFunc("POST /api/tracking/speed-up", trk.HandleSpeedUp)
	mux.HandleFunc("POST /api/tracking/taxi-in-turned", trk.HandleTaxiInTurned)

	// 4. Config, stats and logs
	mux.HandleFunc("/api/config", cfg.HandleConfig)
	mux.Handle("GET /api/stats", stats)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 5. GUI stream
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleConnection)
	}

	// 6. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
