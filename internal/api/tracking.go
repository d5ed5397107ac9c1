package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"simtrack/pkg/model"
	"simtrack/pkg/session"
	"simtrack/pkg/store"
	"simtrack/pkg/tracking"
)

const defaultEventLimit = 200

// TrackingHandler exposes the session controller to the GUI.
type TrackingHandler struct {
	ctrl        *tracking.Controller
	sessions    *session.Manager
	events      store.EventStore
	latest      func() *model.PrimarySample
	resumeMaxNM float64
}

// NewTrackingHandler creates a handler. sessions, events and latest may be nil.
func NewTrackingHandler(ctrl *tracking.Controller, sessions *session.Manager, events store.EventStore, latest func() *model.PrimarySample, resumeMaxNM float64) *TrackingHandler {
	return &TrackingHandler{
		ctrl:        ctrl,
		sessions:    sessions,
		events:      events,
		latest:      latest,
		resumeMaxNM: resumeMaxNM,
	}
}

// GroundHandlingStatus is the loading progress shown during ground operations.
type GroundHandlingStatus struct {
	Complete               bool  `json:"complete"`
	FuelLoadingComplete    bool  `json:"fuel_loading_complete"`
	FuelEstimateMinutes    int   `json:"fuel_estimate_minutes"`
	PayloadLoadingComplete bool  `json:"payload_loading_complete"`
	PayloadEstimateMinutes int   `json:"payload_estimate_minutes"`
	TimeWarpSeconds        int64 `json:"time_warp_seconds"`
}

// StatusResponse is the session summary returned by GET /api/status.
type StatusResponse struct {
	SessionID        string               `json:"session_id,omitempty"`
	Status           model.TrackingStatus `json:"status"`
	Phase            model.FlightPhase    `json:"phase"`
	NextFlightStep   string               `json:"next_flight_step"`
	NextStepFlashing bool                 `json:"next_step_flashing"`
	WasAirborne      bool                 `json:"was_airborne"`
	Flight           *model.Flight        `json:"flight,omitempty"`
	GroundHandling   GroundHandlingStatus `json:"ground_handling"`
	EventCount       int                  `json:"event_count"`
	TrackPoints      int                  `json:"track_points"`
	Touchdown        *model.LandingSample `json:"touchdown,omitempty"`
	Resume           session.ResumeInfo   `json:"resume"`
}

// HandleStatus returns the current session summary.
func (h *TrackingHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	s := h.ctrl.Snapshot()
	now := time.Now()
	g := s.GroundHandling

	resp := StatusResponse{
		SessionID:        s.ID,
		Status:           s.Status,
		Phase:            s.Phase,
		NextFlightStep:   s.NextFlightStep,
		NextStepFlashing: s.NextStepFlashing,
		WasAirborne:      s.WasAirborne,
		Flight:           s.Flight,
		GroundHandling: GroundHandlingStatus{
			Complete:               g.Complete(),
			FuelLoadingComplete:    g.FuelComplete,
			FuelEstimateMinutes:    g.FuelEstimateMinutes(now),
			PayloadLoadingComplete: g.PayloadComplete,
			PayloadEstimateMinutes: g.PayloadEstimateMinutes(now),
			TimeWarpSeconds:        int64(g.TimeWarp / time.Second),
		},
		EventCount:  len(s.Events),
		TrackPoints: len(s.Track),
		Touchdown:   s.Touchdown,
	}
	if s.Status == model.StatusNotTracking && h.sessions != nil {
		var cur *model.PrimarySample
		if h.latest != nil {
			cur = h.latest()
		}
		resp.Resume = session.CheckResume(r.Context(), h.sessions, cur, h.resumeMaxNM)
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleEvents returns the event log of the current session, or of the
// session named by the "session" query parameter.
func (h *TrackingHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	id := r.URL.Query().Get("session")
	if id == "" {
		events := h.ctrl.Events()
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
		writeJSON(w, http.StatusOK, events)
		return
	}

	if h.events == nil {
		http.Error(w, "event history unavailable", http.StatusNotFound)
		return
	}
	events, err := h.events.ListEvents(r.Context(), id, limit)
	if err != nil {
		slog.Error("API: failed to list events", "session", id, "error", err)
		http.Error(w, "failed to list events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []model.TrackingEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleStart binds the posted flight to a new session.
func (h *TrackingHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var f model.Flight
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validateFlight(&f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.ctrl.StartTracking(r.Context(), f); err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.HandleStatus(w, r)
}

// HandleResume restores the saved flight.
func (h *TrackingHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.ResumeTracking(r.Context()); err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.HandleStatus(w, r)
}

// HandleStop ends the session. ?discard=true drops the saved flight.
func (h *TrackingHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	discard, _ := strconv.ParseBool(r.URL.Query().Get("discard"))
	if err := h.ctrl.StopTracking(r.Context(), discard); err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.HandleStatus(w, r)
}

type skipRequest struct {
	StartTracking bool `json:"start_tracking"`
}

// HandleSkipGroundHandling completes both loading timers.
func (h *TrackingHandler) HandleSkipGroundHandling(w http.ResponseWriter, r *http.Request) {
	var req skipRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}
	ok := h.ctrl.SkipGroundHandling(r.Context(), req.StartTracking)
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": ok})
}

// HandleSpeedUp halves the remaining loading time.
func (h *TrackingHandler) HandleSpeedUp(w http.ResponseWriter, r *http.Request) {
	ok := h.ctrl.SpeedUpGroundHandling(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": ok})
}

// HandleTaxiInTurned records that the aircraft left the runway after landing.
func (h *TrackingHandler) HandleTaxiInTurned(w http.ResponseWriter, r *http.Request) {
	h.ctrl.MarkTaxiInTurned(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *TrackingHandler) writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracking.ErrAlreadyTracking), errors.Is(err, tracking.ErrNotTracking):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, tracking.ErrNoSavedFlight):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error("API: tracking request failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func validateFlight(f *model.Flight) error {
	f.Number = strings.TrimSpace(f.Number)
	f.Origin.ICAO = strings.ToUpper(strings.TrimSpace(f.Origin.ICAO))
	f.Destination.ICAO = strings.ToUpper(strings.TrimSpace(f.Destination.ICAO))
	switch {
	case f.Number == "":
		return errors.New("flight number is required")
	case f.Origin.ICAO == "" || f.Destination.ICAO == "":
		return errors.New("origin and destination are required")
	case f.FuelKg < 0 || f.PayloadKg < 0:
		return errors.New("fuel and payload must not be negative")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
