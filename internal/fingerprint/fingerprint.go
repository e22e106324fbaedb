package fingerprint

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/bits"
	"strconv"

	"github.com/corona10/goimagehash"
	"github.com/kozaktomas/tracelens/internal/constants"
	"github.com/kozaktomas/tracelens/internal/imaging"
	"github.com/rs/zerolog/log"
)

// HexLength is the length of a rendered fingerprint.
const HexLength = constants.HashBits / 4

// ErrInvalidHash is returned when a string is not a 16-digit hex fingerprint.
var ErrInvalidHash = errors.New("invalid perceptual hash")

// Compute returns the 64-bit DCT perceptual hash of img as 16 lowercase hex digits.
// On any failure it returns the empty string, which callers must treat as
// "fingerprint unavailable" and never index or query with.
func Compute(img image.Image) (hash string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("failed to compute pHash")
			hash = ""
		}
	}()

	if img == nil || img.Bounds().Empty() {
		log.Warn().Msg("failed to compute pHash: empty image")
		return ""
	}

	phash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		log.Warn().Err(err).Msg("failed to compute pHash")
		return ""
	}

	hash = Format(phash.GetHash())
	log.Debug().Str("phash", hash).Msg("computed pHash")
	return hash
}

// ComputeBuffer is Compute for a decoded buffer.
func ComputeBuffer(buf *imaging.Buffer) string {
	if buf == nil {
		log.Warn().Msg("failed to compute pHash: nil buffer")
		return ""
	}
	return Compute(buf.Image())
}

// Format renders a raw hash value.
func Format(value uint64) string {
	return fmt.Sprintf("%016x", value)
}

// Parse converts a rendered fingerprint back to its 64-bit value. Only the
// canonical form produced by Format (16 lowercase hex digits) is accepted.
func Parse(hash string) (uint64, error) {
	if len(hash) != HexLength {
		return 0, fmt.Errorf("%w: %q has length %d", ErrInvalidHash, hash, len(hash))
	}
	for i := 0; i < len(hash); i++ {
		c := hash[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return 0, fmt.Errorf("%w: %q is not lowercase hex", ErrInvalidHash, hash)
		}
	}
	value, err := strconv.ParseUint(hash, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}
	return value, nil
}

// HammingDistance computes the Hamming distance between two 64-bit hashes.
func HammingDistance(hash1, hash2 uint64) int {
	return bits.OnesCount64(hash1 ^ hash2)
}

// Similar returns true if two hashes are within the given threshold.
// A threshold of 10 is typically used for near-duplicate detection.
func Similar(hash1, hash2 uint64, threshold int) bool {
	return HammingDistance(hash1, hash2) <= threshold
}

// SimilarityPercentage maps a Hamming distance linearly onto [0,100]:
// distance 0 is 100%, distance 64 is 0%. The result is rounded to 2 decimals.
func SimilarityPercentage(distance int) float64 {
	distance = max(0, min(distance, constants.HashBits))
	pct := (1 - float64(distance)/constants.HashBits) * 100
	return math.Round(pct*100) / 100
}
