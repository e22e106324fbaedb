package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/tracelens/internal/database"
	"github.com/kozaktomas/tracelens/internal/fingerprint"
	"github.com/rs/zerolog/log"
)

// HashesHandler exposes the fingerprint index.
type HashesHandler struct {
	index            *database.FingerprintIndex
	defaultThreshold int
	validate         *validator.Validate
}

// NewHashesHandler creates a new hashes handler.
func NewHashesHandler(index *database.FingerprintIndex, defaultThreshold int) *HashesHandler {
	return &HashesHandler{
		index:            index,
		defaultThreshold: defaultThreshold,
		validate:         validator.New(),
	}
}

const errInvalidDuplicatesRequest = "hash must be 16 lowercase hex characters and threshold between 0 and 64"

// CountResponse is the body of GET /hashes.
type CountResponse struct {
	Count int `json:"count"`
}

// DuplicatesRequest is the body of POST /hashes/duplicates.
type DuplicatesRequest struct {
	Hash      string `json:"hash" validate:"required,len=16,hexadecimal,lowercase"`
	Threshold *int   `json:"threshold" validate:"omitempty,gte=0,lte=64"`
}

// DuplicatesResponse is the body returned for a duplicate scan.
type DuplicatesResponse struct {
	Hash       string                    `json:"hash"`
	Threshold  int                       `json:"threshold"`
	Duplicates []database.DuplicateMatch `json:"duplicates"`
}

// Count returns the number of stored fingerprints.
func (h *HashesHandler) Count(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CountResponse{Count: h.index.Len()})
}

// Reset drops every stored fingerprint.
func (h *HashesHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.index.Reset()
	log.Warn().Str("remote", sanitizeForLog(r.RemoteAddr)).Msg("fingerprint index reset via API")
	w.WriteHeader(http.StatusNoContent)
}

// Duplicates scans the index for fingerprints near the given hash without
// inserting it.
func (h *HashesHandler) Duplicates(w http.ResponseWriter, r *http.Request) {
	var req DuplicatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidDuplicatesRequest)
		return
	}
	// The hexadecimal tag tolerates a 0x prefix; the index only stores canonical hashes.
	if _, err := fingerprint.Parse(req.Hash); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidDuplicatesRequest)
		return
	}

	threshold := h.defaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	respondJSON(w, http.StatusOK, DuplicatesResponse{
		Hash:       req.Hash,
		Threshold:  threshold,
		Duplicates: h.index.Scan(req.Hash, threshold),
	})
}
