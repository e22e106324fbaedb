// Package analysis runs the full image pipeline for one upload: screening,
// metadata, AI detection, fingerprinting, duplicate lookup and reverse search.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/tracelens/internal/config"
	"github.com/kozaktomas/tracelens/internal/database"
	"github.com/kozaktomas/tracelens/internal/detector"
	"github.com/kozaktomas/tracelens/internal/fingerprint"
	"github.com/kozaktomas/tracelens/internal/imaging"
	"github.com/kozaktomas/tracelens/internal/metadata"
	"github.com/kozaktomas/tracelens/internal/moderation"
	"github.com/kozaktomas/tracelens/internal/revsearch"
	"github.com/rs/zerolog/log"
)

var (
	// ErrTooLarge is returned for uploads over the configured size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrInvalidImage wraps decoding failures.
	ErrInvalidImage = errors.New("invalid image file")
	// ErrExplicitContent is returned when screening refuses the upload.
	ErrExplicitContent = errors.New(moderation.ExplicitMessage)
)

// Result is the full analysis of one image.
type Result struct {
	ID             uuid.UUID                 `json:"id"`
	Filename       string                    `json:"filename"`
	Metadata       *metadata.Metadata        `json:"metadata"`
	AIDetection    detector.Verdict          `json:"ai_detection"`
	PerceptualHash string                    `json:"perceptual_hash"`
	Duplicates     []database.DuplicateMatch `json:"duplicates"`
	ReverseSearch  []revsearch.Match         `json:"reverse_search"`
	AnalyzedAt     time.Time                 `json:"analyzed_at"`
}

// Service wires the analysis collaborators together. It is safe for
// concurrent use; the fingerprint index is the only shared state.
type Service struct {
	detector      *detector.Detector
	index         *database.FingerprintIndex
	search        *revsearch.Orchestrator
	duplicateBits int
	maxFileSize   int64
	screen        func(*imaging.Buffer) bool
}

type options struct {
	provider    revsearch.Provider
	hasProvider bool
	screen      func(*imaging.Buffer) bool
}

// Option customizes a Service.
type Option func(*options)

// WithProvider overrides the reverse search provider built from config.
// A nil provider disables external search.
func WithProvider(p revsearch.Provider) Option {
	return func(o *options) {
		o.provider = p
		o.hasProvider = true
	}
}

// WithScreen overrides the explicit content check.
func WithScreen(screen func(*imaging.Buffer) bool) Option {
	return func(o *options) {
		o.screen = screen
	}
}

// NewService builds a pipeline from cfg around a shared index.
func NewService(cfg *config.Config, index *database.FingerprintIndex, opts ...Option) *Service {
	o := options{screen: moderation.IsExplicit}
	for _, opt := range opts {
		opt(&o)
	}

	provider := o.provider
	if !o.hasProvider && cfg.ReverseSearch.Enabled() {
		provider = revsearch.NewHTTPProvider(cfg.ReverseSearch.URL, cfg.ReverseSearch.APIKey, nil)
	}

	var local revsearch.LocalIndex
	if index != nil {
		local = index
	}

	return &Service{
		detector:      detector.NewDetector(cfg.Detection.AIThreshold, cfg.Detection.UncertainThreshold),
		index:         index,
		search:        revsearch.NewOrchestrator(provider, local, revsearch.WithTimeout(cfg.ReverseSearch.Timeout), revsearch.WithFallbackThreshold(cfg.Index.ReverseFallbackThresholdBits)),
		duplicateBits: cfg.Index.DuplicateThresholdBits,
		maxFileSize:   cfg.Upload.MaxFileSize,
		screen:        o.screen,
	}
}

// ExternalSearchEnabled reports whether an external provider is consulted.
func (s *Service) ExternalSearchEnabled() bool {
	return s.search.HasProvider()
}

// Decode validates the upload size and decodes it.
func (s *Service) Decode(data []byte) (*imaging.Buffer, error) {
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, len(data), s.maxFileSize)
	}
	buf, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return buf, nil
}

// Analyze runs the whole pipeline on raw upload bytes. Only size, decoding
// and screening failures are returned as errors; every later step degrades
// to a neutral or empty section instead.
func (s *Service) Analyze(ctx context.Context, filename string, data []byte) (*Result, error) {
	buf, err := s.Decode(data)
	if err != nil {
		return nil, err
	}
	if s.screen != nil && s.screen(buf) {
		return nil, ErrExplicitContent
	}

	start := time.Now()
	log.Info().Str("filename", filename).Str("format", buf.Format()).
		Int("width", buf.Width()).Int("height", buf.Height()).Msg("analyzing image")

	result := &Result{
		ID:         uuid.New(),
		Filename:   filename,
		Metadata:   metadata.Extract(data, buf),
		AnalyzedAt: start.UTC(),
	}
	result.AIDetection = s.detector.Detect(buf)
	result.PerceptualHash = fingerprint.ComputeBuffer(buf)
	result.Duplicates = s.duplicates(result.PerceptualHash)
	result.ReverseSearch = s.search.Search(ctx, buf.Image(), result.PerceptualHash)

	log.Info().
		Str("id", result.ID.String()).
		Str("verdict", string(result.AIDetection.Verdict)).
		Float64("score", result.AIDetection.Score).
		Str("phash", result.PerceptualHash).
		Int("duplicates", len(result.Duplicates)).
		Dur("elapsed", time.Since(start)).
		Msg("analysis complete")

	return result, nil
}

// duplicates indexes hash and returns the other stored fingerprints near it.
func (s *Service) duplicates(hash string) []database.DuplicateMatch {
	if hash == "" || s.index == nil {
		return []database.DuplicateMatch{}
	}
	s.index.Insert(hash)
	return s.index.Scan(hash, s.duplicateBits)
}
