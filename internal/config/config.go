package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Detection     DetectionConfig     `yaml:"detection"`
	Index         IndexConfig         `yaml:"index"`
	ReverseSearch ReverseSearchConfig `yaml:"reverse_search"`
	Upload        UploadConfig        `yaml:"upload"`
	Web           WebConfig           `yaml:"web"`
	Log           LogConfig           `yaml:"log"`
}

type DetectionConfig struct {
	AIThreshold        float64 `yaml:"ai_threshold" validate:"gte=0,lte=1"`
	UncertainThreshold float64 `yaml:"uncertain_threshold" validate:"gte=0,lte=1,ltefield=AIThreshold"`
}

type IndexConfig struct {
	DuplicateThresholdBits       int `yaml:"duplicate_threshold_bits" validate:"gte=0,lte=64"`
	ReverseFallbackThresholdBits int `yaml:"reverse_fallback_threshold_bits" validate:"gte=0,lte=64"`
}

type ReverseSearchConfig struct {
	URL     string        `yaml:"url" validate:"omitempty,url"`
	APIKey  string        `yaml:"-"` // only from REVSEARCH_API_KEY, never from files
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// Enabled reports whether an external reverse-search provider should be tried.
func (c *ReverseSearchConfig) Enabled() bool {
	return c.APIKey != "" && c.URL != ""
}

type UploadConfig struct {
	MaxFileSize int64 `yaml:"max_file_size" validate:"gt=0"`
}

type WebConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envInt64 is envInt for byte sizes. Zero is rejected.
func envInt64(key string, defaultVal int64) int64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults returns the configuration embedded in defaults.yaml.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

// Load builds the configuration from embedded defaults overridden by environment variables.
// The .env file, if any, is loaded by the caller before Load runs.
func Load() *Config {
	d := Defaults()

	return &Config{
		Detection: DetectionConfig{
			AIThreshold:        envFloat("AI_DETECTION_THRESHOLD", d.Detection.AIThreshold),
			UncertainThreshold: envFloat("UNCERTAIN_THRESHOLD", d.Detection.UncertainThreshold),
		},
		Index: IndexConfig{
			DuplicateThresholdBits:       envInt("DUPLICATE_THRESHOLD_BITS", d.Index.DuplicateThresholdBits),
			ReverseFallbackThresholdBits: envInt("REVERSE_FALLBACK_THRESHOLD_BITS", d.Index.ReverseFallbackThresholdBits),
		},
		ReverseSearch: ReverseSearchConfig{
			URL:     envString("REVSEARCH_API_URL", d.ReverseSearch.URL),
			APIKey:  os.Getenv("REVSEARCH_API_KEY"),
			Timeout: envDuration("REVSEARCH_TIMEOUT", d.ReverseSearch.Timeout),
		},
		Upload: UploadConfig{
			MaxFileSize: envInt64("MAX_FILE_SIZE", d.Upload.MaxFileSize),
		},
		Web: WebConfig{
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS", d.Web.AllowedOrigins),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", d.Log.Level),
		},
	}
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
