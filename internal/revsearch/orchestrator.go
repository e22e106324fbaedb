package revsearch

import (
	"context"
	"image"
	"time"

	"github.com/kozaktomas/tracelens/internal/constants"
	"github.com/kozaktomas/tracelens/internal/database"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single external provider call.
const DefaultTimeout = 10 * time.Second

// LocalIndex is the part of the fingerprint index used for fallback search.
type LocalIndex interface {
	Scan(query string, thresholdBits int) []database.DuplicateMatch
}

// Orchestrator runs reverse searches against an optional external provider
// and the local fingerprint index.
type Orchestrator struct {
	provider     Provider
	index        LocalIndex
	timeout      time.Duration
	fallbackBits int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout sets the deadline for provider calls.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithFallbackThreshold sets the Hamming threshold for local fallback scans.
func WithFallbackThreshold(bits int) Option {
	return func(o *Orchestrator) {
		if bits >= 0 {
			o.fallbackBits = bits
		}
	}
}

// NewOrchestrator creates an orchestrator. A nil provider means only the
// local index is consulted.
func NewOrchestrator(provider Provider, index LocalIndex, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:     provider,
		index:        index,
		timeout:      DefaultTimeout,
		fallbackBits: database.ReverseFallbackThresholdBits,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Search returns up to five matches for img. External results are preferred;
// provider errors, timeouts and empty results fall back to the local index.
// The result is never empty: with nothing found it holds a single sentinel
// (see IsSentinel).
func (o *Orchestrator) Search(ctx context.Context, img image.Image, hash string) []Match {
	if o.provider != nil {
		if matches := o.searchExternal(ctx, img); len(matches) > 0 {
			return matches
		}
	}
	return o.searchLocal(hash)
}

// HasProvider reports whether an external provider is configured.
func (o *Orchestrator) HasProvider() bool {
	return o.provider != nil
}

func (o *Orchestrator) searchExternal(ctx context.Context, img image.Image) []Match {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	matches, err := o.provider.Search(ctx, img)
	if err != nil {
		log.Warn().Err(err).Str("provider", o.provider.Name()).Dur("elapsed", time.Since(start)).
			Msg("external reverse search failed, using local index")
		return nil
	}
	if len(matches) == 0 {
		log.Debug().Str("provider", o.provider.Name()).Msg("external reverse search returned nothing, using local index")
		return nil
	}
	if len(matches) > constants.MaxReverseSearchResults {
		matches = matches[:constants.MaxReverseSearchResults]
	}
	for i := range matches {
		matches[i].Similarity = clampSimilarity(matches[i].Similarity)
	}
	return matches
}

func (o *Orchestrator) searchLocal(hash string) []Match {
	var dups []database.DuplicateMatch
	if o.index != nil {
		dups = o.index.Scan(hash, o.fallbackBits)
	}
	if len(dups) == 0 {
		return []Match{sentinel()}
	}

	n := min(len(dups), constants.MaxReverseSearchResults)
	matches := make([]Match, 0, n)
	for _, d := range dups[:n] {
		matches = append(matches, Match{
			Source:     constants.LocalSourceName,
			Similarity: clampSimilarity(d.SimilarityPercentage / 100),
		})
	}
	return matches
}
