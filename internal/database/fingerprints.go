package database

import (
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/tracelens/internal/fingerprint"
	"github.com/rs/zerolog/log"
)

// FingerprintIndex is an append-only, in-memory catalog of perceptual
// fingerprints scanned linearly by Hamming distance. It is safe for
// concurrent use.
type FingerprintIndex struct {
	mu      sync.RWMutex
	records []FingerprintRecord
	nextSeq uint64
	closed  bool
	now     func() time.Time
}

// NewFingerprintIndex creates an empty index.
func NewFingerprintIndex() *FingerprintIndex {
	return &FingerprintIndex{now: time.Now}
}

// Insert appends hash to the index. Empty or malformed hashes are ignored and
// reported with ok=false. Duplicate hashes are stored again.
func (idx *FingerprintIndex) Insert(hash string) (FingerprintRecord, bool) {
	if hash == "" {
		return FingerprintRecord{}, false
	}
	value, err := fingerprint.Parse(hash)
	if err != nil {
		log.Warn().Err(err).Msg("refusing to index malformed fingerprint")
		return FingerprintRecord{}, false
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return FingerprintRecord{}, false
	}

	idx.nextSeq++
	rec := FingerprintRecord{
		Hash:      hash,
		Value:     value,
		Seq:       idx.nextSeq,
		CreatedAt: idx.now(),
	}
	idx.records = append(idx.records, rec)
	return rec, true
}

// Seed inserts every hash and returns how many were accepted.
func (idx *FingerprintIndex) Seed(hashes []string) int {
	added := 0
	for _, h := range hashes {
		if _, ok := idx.Insert(h); ok {
			added++
		}
	}
	log.Debug().Int("seeded", added).Int("given", len(hashes)).Msg("seeded fingerprint index")
	return added
}

// Scan returns every distinct stored fingerprint within thresholdBits of query,
// nearest first. A hash inserted more than once is reported once, for its
// earliest record. Records whose hash string equals query are skipped, so an
// image never matches itself; this also hides distinct images that share a
// fingerprint. An empty or malformed query yields an empty result.
func (idx *FingerprintIndex) Scan(query string, thresholdBits int) []DuplicateMatch {
	matches := []DuplicateMatch{}
	if query == "" {
		return matches
	}
	qv, err := fingerprint.Parse(query)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring scan with malformed fingerprint")
		return matches
	}

	// Records are immutable values; a snapshot of the slice header is enough.
	idx.mu.RLock()
	snapshot := idx.records
	idx.mu.RUnlock()

	seen := make(map[uint64]struct{}, len(snapshot))
	for _, rec := range snapshot {
		if rec.Hash == query {
			continue
		}
		// Re-parse so a corrupt stored value never produces a bogus distance.
		value, err := fingerprint.Parse(rec.Hash)
		if err != nil || value != rec.Value {
			log.Warn().Uint64("seq", rec.Seq).Str("hash", rec.Hash).Msg("skipping corrupt fingerprint record")
			continue
		}

		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}

		if !fingerprint.Similar(qv, value, thresholdBits) {
			continue
		}
		distance := fingerprint.HammingDistance(qv, value)
		matches = append(matches, DuplicateMatch{
			Hash:                 rec.Hash,
			Distance:             distance,
			SimilarityPercentage: fingerprint.SimilarityPercentage(distance),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches
}

// Len returns the number of stored fingerprints.
func (idx *FingerprintIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Reset drops every stored fingerprint. It is an administrative operation.
func (idx *FingerprintIndex) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	n := len(idx.records)
	idx.records = nil
	log.Info().Int("dropped", n).Msg("fingerprint index reset")
}

// Close releases the index. Later inserts are ignored and scans return empty.
func (idx *FingerprintIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.records = nil
	idx.closed = true
	return nil
}
