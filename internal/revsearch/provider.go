// Package revsearch finds where an image appears elsewhere, preferring an
// external provider and falling back to the local fingerprint index.
package revsearch

import (
	"context"
	"image"

	"github.com/kozaktomas/tracelens/internal/constants"
)

// Match is one reverse search hit. URL and Thumbnail are nil for local matches.
type Match struct {
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
	URL        *string `json:"url"`
	Thumbnail  *string `json:"thumbnail"`
}

// Provider is an external reverse image search service.
type Provider interface {
	Name() string
	Search(ctx context.Context, img image.Image) ([]Match, error)
}

// IsSentinel reports whether m is the placeholder returned when neither the
// provider nor the local index produced a match.
func IsSentinel(m Match) bool {
	return m.Source == constants.LocalSourceName && m.Similarity == 0 && m.URL == nil && m.Thumbnail == nil
}

func sentinel() Match {
	return Match{Source: constants.LocalSourceName}
}

func clampSimilarity(v float64) float64 {
	if v != v {
		return 0
	}
	return max(0, min(1, v))
}
