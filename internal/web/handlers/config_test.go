package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConfigHandler_Get(t *testing.T) {
	cfg := testConfig()
	cfg.ReverseSearch.APIKey = "super-secret"
	handler := NewConfigHandler(cfg, true)

	req := httptest.NewRequest("GET", "/api/v1/config", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var result ConfigResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if result.AIThreshold != 0.7 {
		t.Errorf("expected ai_threshold 0.7, got %v", result.AIThreshold)
	}
	if result.UncertainThreshold != 0.5 {
		t.Errorf("expected uncertain_threshold 0.5, got %v", result.UncertainThreshold)
	}
	if result.DuplicateThresholdBits != 10 || result.ReverseFallbackThresholdBits != 15 {
		t.Errorf("unexpected thresholds: %+v", result)
	}
	if result.MaxFileSize != 10<<20 {
		t.Errorf("expected max_file_size %d, got %d", 10<<20, result.MaxFileSize)
	}
	if !result.ExternalSearchEnabled {
		t.Error("expected external search to be reported enabled")
	}
	if strings.Contains(recorder.Body.String(), "super-secret") {
		t.Error("API key must never be exposed")
	}
}
