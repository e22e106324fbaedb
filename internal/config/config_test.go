package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Detection.AIThreshold != 0.70 {
		t.Errorf("expected AI threshold 0.70, got %f", cfg.Detection.AIThreshold)
	}
	if cfg.Detection.UncertainThreshold != 0.50 {
		t.Errorf("expected uncertain threshold 0.50, got %f", cfg.Detection.UncertainThreshold)
	}
	if cfg.Index.DuplicateThresholdBits != 10 {
		t.Errorf("expected duplicate threshold 10, got %d", cfg.Index.DuplicateThresholdBits)
	}
	if cfg.Index.ReverseFallbackThresholdBits != 15 {
		t.Errorf("expected fallback threshold 15, got %d", cfg.Index.ReverseFallbackThresholdBits)
	}
	if cfg.ReverseSearch.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.ReverseSearch.Timeout)
	}
	if cfg.Upload.MaxFileSize != 10<<20 {
		t.Errorf("expected max file size 10MB, got %d", cfg.Upload.MaxFileSize)
	}
	if len(cfg.Web.AllowedOrigins) != 3 {
		t.Errorf("expected 3 default origins, got %v", cfg.Web.AllowedOrigins)
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"AI_DETECTION_THRESHOLD", "UNCERTAIN_THRESHOLD", "DUPLICATE_THRESHOLD_BITS",
		"REVERSE_FALLBACK_THRESHOLD_BITS", "REVSEARCH_API_URL", "REVSEARCH_API_KEY",
		"REVSEARCH_TIMEOUT", "MAX_FILE_SIZE", "WEB_ALLOWED_ORIGINS", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ReverseSearch.Enabled() {
		t.Error("expected reverse search to be disabled without an API key")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %q", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AI_DETECTION_THRESHOLD", "0.8")
	t.Setenv("UNCERTAIN_THRESHOLD", "0.4")
	t.Setenv("DUPLICATE_THRESHOLD_BITS", "6")
	t.Setenv("REVERSE_FALLBACK_THRESHOLD_BITS", "20")
	t.Setenv("REVSEARCH_API_URL", "https://search.example.com/v2")
	t.Setenv("REVSEARCH_API_KEY", "secret")
	t.Setenv("REVSEARCH_TIMEOUT", "3s")
	t.Setenv("MAX_FILE_SIZE", "2048")
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.Detection.AIThreshold != 0.8 {
		t.Errorf("expected AI threshold 0.8, got %f", cfg.Detection.AIThreshold)
	}
	if cfg.Detection.UncertainThreshold != 0.4 {
		t.Errorf("expected uncertain threshold 0.4, got %f", cfg.Detection.UncertainThreshold)
	}
	if cfg.Index.DuplicateThresholdBits != 6 {
		t.Errorf("expected duplicate bits 6, got %d", cfg.Index.DuplicateThresholdBits)
	}
	if cfg.Index.ReverseFallbackThresholdBits != 20 {
		t.Errorf("expected fallback bits 20, got %d", cfg.Index.ReverseFallbackThresholdBits)
	}
	if !cfg.ReverseSearch.Enabled() {
		t.Error("expected reverse search to be enabled")
	}
	if cfg.ReverseSearch.URL != "https://search.example.com/v2" {
		t.Errorf("unexpected URL %q", cfg.ReverseSearch.URL)
	}
	if cfg.ReverseSearch.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", cfg.ReverseSearch.Timeout)
	}
	if cfg.Upload.MaxFileSize != 2048 {
		t.Errorf("expected max file size 2048, got %d", cfg.Upload.MaxFileSize)
	}
	if len(cfg.Web.AllowedOrigins) != 2 || cfg.Web.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("unexpected origins %v", cfg.Web.AllowedOrigins)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Log.Level)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("AI_DETECTION_THRESHOLD", "high")
	t.Setenv("DUPLICATE_THRESHOLD_BITS", "-3")
	t.Setenv("REVSEARCH_TIMEOUT", "soon")
	t.Setenv("MAX_FILE_SIZE", "0")

	cfg := Load()

	if cfg.Detection.AIThreshold != 0.70 {
		t.Errorf("expected fallback AI threshold 0.70, got %f", cfg.Detection.AIThreshold)
	}
	if cfg.Index.DuplicateThresholdBits != 10 {
		t.Errorf("expected fallback duplicate bits 10, got %d", cfg.Index.DuplicateThresholdBits)
	}
	if cfg.ReverseSearch.Timeout != 10*time.Second {
		t.Errorf("expected fallback timeout 10s, got %v", cfg.ReverseSearch.Timeout)
	}
	if cfg.Upload.MaxFileSize != 10<<20 {
		t.Errorf("expected fallback max size, got %d", cfg.Upload.MaxFileSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"ai threshold above 1", func(c *Config) { c.Detection.AIThreshold = 1.5 }, true},
		{"negative uncertain threshold", func(c *Config) { c.Detection.UncertainThreshold = -0.1 }, true},
		{"uncertain above ai", func(c *Config) { c.Detection.UncertainThreshold = 0.9 }, true},
		{"uncertain equals ai", func(c *Config) { c.Detection.UncertainThreshold = 0.7 }, false},
		{"bits above 64", func(c *Config) { c.Index.DuplicateThresholdBits = 65 }, true},
		{"zero bits", func(c *Config) { c.Index.ReverseFallbackThresholdBits = 0 }, false},
		{"zero timeout", func(c *Config) { c.ReverseSearch.Timeout = 0 }, true},
		{"bad url", func(c *Config) { c.ReverseSearch.URL = "not a url" }, true},
		{"empty url", func(c *Config) { c.ReverseSearch.URL = "" }, false},
		{"zero max file size", func(c *Config) { c.Upload.MaxFileSize = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestReverseSearchEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  ReverseSearchConfig
		want bool
	}{
		{"no key", ReverseSearchConfig{URL: "https://x.example.com"}, false},
		{"no url", ReverseSearchConfig{APIKey: "k"}, false},
		{"both", ReverseSearchConfig{URL: "https://x.example.com", APIKey: "k"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Enabled(); got != tc.want {
				t.Errorf("Enabled() = %v, want %v", got, tc.want)
			}
		})
	}
}
