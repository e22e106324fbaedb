package database

import "github.com/kozaktomas/tracelens/internal/constants"

// Hamming thresholds used by the analysis pipeline.
const (
	// DuplicateThresholdBits is the maximum distance reported as a duplicate.
	DuplicateThresholdBits = constants.DefaultDuplicateThresholdBits

	// ReverseFallbackThresholdBits is the looser distance used when reverse
	// search falls back to the local index.
	ReverseFallbackThresholdBits = constants.DefaultReverseFallbackThresholdBits
)
