package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"simtrack/pkg/config"
	"simtrack/pkg/store"
)

var (
	errInvalidSimSource = errors.New("sim_source must be \"mock\" or \"xplane\"")
	errInvalidInterval  = errors.New("sampling intervals must be positive durations")
	errInvalidVolume    = errors.New("volume must be between 0 and 1")
)

// VolumeSetter applies a volume change to the audio output right away.
type VolumeSetter interface {
	SetVolume(vol float64)
}

// ConfigHandler handles configuration API requests.
type ConfigHandler struct {
	store   store.StateStore
	cfgProv config.Provider
	appCfg  *config.Config
	volume  VolumeSetter
}

// NewConfigHandler creates a new ConfigHandler. vol may be nil.
func NewConfigHandler(st store.StateStore, cfg config.Provider, vol VolumeSetter) *ConfigHandler {
	return &ConfigHandler{
		store:   st,
		cfgProv: cfg,
		appCfg:  cfg.AppConfig(),
		volume:  vol,
	}
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	SimSource         string  `json:"sim_source"`
	PrimaryInterval   string  `json:"sampling_primary"`
	SecondaryInterval string  `json:"sampling_secondary"`
	LandingInterval   string  `json:"sampling_landing"`
	AudioEnabled      bool    `json:"audio_enabled"`
	SpeechEngine      string  `json:"speech_engine"`
	Volume            float64 `json:"volume"`
	ReportEnabled     bool    `json:"report_enabled"`
	ServerAddress     string  `json:"server_address"`
}

// ConfigRequest represents the config API request for updates.
type ConfigRequest struct {
	SimSource         string   `json:"sim_source,omitempty"`
	PrimaryInterval   string   `json:"sampling_primary,omitempty"`
	SecondaryInterval string   `json:"sampling_secondary,omitempty"`
	LandingInterval   string   `json:"sampling_landing,omitempty"`
	AudioEnabled      *bool    `json:"audio_enabled,omitempty"` // Pointer to detect false vs missing
	Volume            *float64 `json:"volume,omitempty"`
	ReportEnabled     *bool    `json:"report_enabled,omitempty"`
}

// HandleConfig is a unified handler for all config-related methods, facilitating CORS/OPTIONS.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.HandleGetConfig(w, r)
	case http.MethodPut, http.MethodPost:
		h.HandleSetConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetConfig returns the current configuration.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	resp := h.getConfigResponse(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode config response", "error", err)
	}
}

func (h *ConfigHandler) getConfigResponse(ctx context.Context) ConfigResponse {
	return ConfigResponse{
		SimSource:         h.cfgProv.SimProvider(ctx),
		PrimaryInterval:   h.cfgProv.PrimaryInterval(ctx).String(),
		SecondaryInterval: h.cfgProv.SecondaryInterval(ctx).String(),
		LandingInterval:   h.cfgProv.LandingInterval(ctx).String(),
		AudioEnabled:      h.cfgProv.AudioEnabled(ctx),
		SpeechEngine:      h.appCfg.Audio.Engine,
		Volume:            h.cfgProv.Volume(ctx),
		ReportEnabled:     h.cfgProv.ReportEnabled(ctx),
		ServerAddress:     h.appCfg.Server.Address,
	}
}

// HandleSetConfig validates the request, persists every changed setting and
// returns the effective configuration.
func (h *ConfigHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.Body.Close() }()

	var req ConfigRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validateConfigRequest(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.apply(ctx, &req); err != nil {
		slog.Error("Failed to save config", "error", err)
		http.Error(w, "Failed to save config", http.StatusInternalServerError)
		return
	}

	h.HandleGetConfig(w, r)
}

func validateConfigRequest(req *ConfigRequest) error {
	if req.SimSource != "" && req.SimSource != "mock" && req.SimSource != "xplane" {
		return errInvalidSimSource
	}
	for _, v := range []string{req.PrimaryInterval, req.SecondaryInterval, req.LandingInterval} {
		if v == "" {
			continue
		}
		if d, err := config.ParseDuration(v); err != nil || d <= 0 {
			return errInvalidInterval
		}
	}
	if req.Volume != nil && (*req.Volume < 0 || *req.Volume > 1) {
		return errInvalidVolume
	}
	return nil
}

func (h *ConfigHandler) apply(ctx context.Context, req *ConfigRequest) error {
	updates := map[string]string{}
	if req.SimSource != "" {
		updates[config.KeySimSource] = req.SimSource
	}
	if req.PrimaryInterval != "" {
		updates[config.KeyPrimaryInterval] = req.PrimaryInterval
	}
	if req.SecondaryInterval != "" {
		updates[config.KeySecondaryInterval] = req.SecondaryInterval
	}
	if req.LandingInterval != "" {
		updates[config.KeyLandingInterval] = req.LandingInterval
	}
	if req.AudioEnabled != nil {
		updates[config.KeyAudioEnabled] = strconv.FormatBool(*req.AudioEnabled)
	}
	if req.Volume != nil {
		updates[config.KeyVolume] = fmt.Sprintf("%.2f", *req.Volume)
	}
	if req.ReportEnabled != nil {
		updates[config.KeyReportEnabled] = strconv.FormatBool(*req.ReportEnabled)
	}

	for key, val := range updates {
		if err := h.store.SetState(ctx, key, val); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		slog.Debug("Config updated", key, val)
	}

	if req.Volume != nil && h.volume != nil {
		h.volume.SetVolume(*req.Volume)
	}
	if req.SimSource != "" {
		slog.Info("Config: simulator source changed, takes effect after restart", "sim_source", req.SimSource)
	}
	return nil
}
