// Package moderation screens uploads before analysis.
package moderation

import (
	"fmt"

	"github.com/kozaktomas/tracelens/internal/constants"
	"github.com/kozaktomas/tracelens/internal/imaging"
	"github.com/rs/zerolog/log"
)

// ExplicitMessage is the refusal returned for flagged uploads.
const ExplicitMessage = "Image flagged as potentially explicit content. Analysis refused for ethical reasons."

// SkinRatio returns the fraction of pixels in a 64x64 downsample whose color
// falls in a coarse skin-tone box.
func SkinRatio(buf *imaging.Buffer) (float64, error) {
	if buf == nil {
		return 0, imaging.ErrNilImage
	}

	small := imaging.Resize(buf.Image(), constants.SkinSampleSize, constants.SkinSampleSize)
	channels := imaging.ChannelValues(small)
	r, g, b := channels[0], channels[1], channels[2]
	if len(r) == 0 {
		return 0, imaging.ErrEmptyImage
	}

	skin := 0
	for i := range r {
		if isSkinTone(r[i], g[i], b[i]) {
			skin++
		}
	}
	return float64(skin) / float64(len(r)), nil
}

func isSkinTone(r, g, b uint8) bool {
	return r > 180 && r < 255 &&
		g > 120 && g < 200 &&
		b > 100 && b < 180
}

// IsExplicit reports whether the upload should be refused. Failures are
// logged and treated as not explicit.
func IsExplicit(buf *imaging.Buffer) bool {
	ratio, err := SkinRatio(buf)
	if err != nil {
		log.Error().Err(err).Msg("explicit content check failed")
		return false
	}
	if ratio > constants.SkinRatioLimit {
		log.Warn().Str("skin", fmt.Sprintf("%.2f%%", ratio*100)).Msg("image flagged as potentially explicit")
		return true
	}
	return false
}
