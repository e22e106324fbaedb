package handlers

import (
	"net/http"

	"github.com/kozaktomas/tracelens/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config          *config.Config
	externalEnabled bool
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, externalEnabled bool) *ConfigHandler {
	return &ConfigHandler{
		config:          cfg,
		externalEnabled: externalEnabled,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	AIThreshold                  float64 `json:"ai_threshold"`
	UncertainThreshold           float64 `json:"uncertain_threshold"`
	DuplicateThresholdBits       int     `json:"duplicate_threshold_bits"`
	ReverseFallbackThresholdBits int     `json:"reverse_fallback_threshold_bits"`
	MaxFileSize                  int64   `json:"max_file_size"`
	ExternalSearchEnabled        bool    `json:"external_search_enabled"`
}

// Get returns the active configuration. Secrets are never included.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		AIThreshold:                  h.config.Detection.AIThreshold,
		UncertainThreshold:           h.config.Detection.UncertainThreshold,
		DuplicateThresholdBits:       h.config.Index.DuplicateThresholdBits,
		ReverseFallbackThresholdBits: h.config.Index.ReverseFallbackThresholdBits,
		MaxFileSize:                  h.config.Upload.MaxFileSize,
		ExternalSearchEnabled:        h.externalEnabled,
	})
}
