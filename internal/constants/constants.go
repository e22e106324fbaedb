// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Verdict thresholds
const (
	// DefaultAIThreshold is the fused score at or above which an image is classified as AI-generated
	DefaultAIThreshold = 0.70

	// DefaultUncertainThreshold is the fused score at or below which an image is classified as human-made
	DefaultUncertainThreshold = 0.50

	// NeutralScore is returned by a signal or the whole detector when it cannot measure anything
	NeutralScore = 0.5

	// SignalHighlightScore is the per-signal score above which a signal is named in an AI explanation
	SignalHighlightScore = 0.6
)

// Fingerprint index constants
const (
	// HashBits is the width of every perceptual fingerprint
	HashBits = 64

	// DefaultDuplicateThresholdBits is the max Hamming distance for duplicate detection
	DefaultDuplicateThresholdBits = 10

	// DefaultReverseFallbackThresholdBits is the max Hamming distance for the local reverse-search fallback.
	// Looser than duplicate detection since it stands in for a real reverse image search.
	DefaultReverseFallbackThresholdBits = 15
)

// Reverse search constants
const (
	// MaxReverseSearchResults caps both external and local reverse-search result lists
	MaxReverseSearchResults = 5

	// LocalSourceName labels matches produced by the local fingerprint index
	LocalSourceName = "Local Database"

	// UnknownSourceName labels external matches that did not report a source
	UnknownSourceName = "Unknown"
)

// Processing constants
const (
	// MaxAnalysisSize is the maximum dimension (width or height) used for signal extraction.
	// Larger images are subsampled, not smoothed, before analysis.
	MaxAnalysisSize = 1024

	// NoiseReferenceVariance is the empirical local-variance ceiling of camera sensor noise
	NoiseReferenceVariance = 2000.0
)
