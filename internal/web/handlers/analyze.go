package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kozaktomas/tracelens/internal/analysis"
	"github.com/kozaktomas/tracelens/internal/constants"
	"github.com/rs/zerolog/log"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file size limit.
const multipartOverhead = 1 << 20

// AnalyzeHandler handles image analysis uploads.
type AnalyzeHandler struct {
	service     *analysis.Service
	maxFileSize int64
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(service *analysis.Service, maxFileSize int64) *AnalyzeHandler {
	if maxFileSize <= 0 {
		maxFileSize = constants.DefaultMaxFileSize
	}
	return &AnalyzeHandler{
		service:     service,
		maxFileSize: maxFileSize,
	}
}

func (h *AnalyzeHandler) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Max size: %.1fMB", float64(h.maxFileSize)/(1<<20))
}

// Analyze handles POST /analyze with the image in the "file" form field.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxFileSize + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
			return
		}
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile(constants.UploadFormField)
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	// Read one byte past the limit so oversize uploads are detected without
	// buffering them whole.
	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	if int64(len(data)) > h.maxFileSize {
		respondError(w, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
		return
	}

	result, err := h.service.Analyze(r.Context(), header.Filename, data)
	if err != nil {
		h.respondAnalysisError(w, header.Filename, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *AnalyzeHandler) respondAnalysisError(w http.ResponseWriter, filename string, err error) {
	switch {
	case errors.Is(err, analysis.ErrTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
	case errors.Is(err, analysis.ErrInvalidImage):
		cause := strings.TrimPrefix(err.Error(), analysis.ErrInvalidImage.Error()+": ")
		respondError(w, http.StatusBadRequest, "Invalid image file: "+cause)
	case errors.Is(err, analysis.ErrExplicitContent):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("filename", sanitizeForLog(filename)).Msg("error analyzing image")
		respondError(w, http.StatusInternalServerError, "Analysis failed: "+err.Error())
	}
}
