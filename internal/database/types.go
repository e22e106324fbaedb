package database

import (
	"time"
)

// FingerprintRecord is one stored fingerprint. Records are never mutated.
type FingerprintRecord struct {
	Hash      string    `json:"hash"`
	Value     uint64    `json:"-"`
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// DuplicateMatch is a stored fingerprint within a scan threshold.
type DuplicateMatch struct {
	Hash                 string  `json:"hash"`
	Distance             int     `json:"distance"`
	SimilarityPercentage float64 `json:"similarity_percentage"`
}
