package handlers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/tracelens/internal/analysis"
	"github.com/kozaktomas/tracelens/internal/config"
	"github.com/kozaktomas/tracelens/internal/database"
)

// testConfig creates the default config for testing
func testConfig() *config.Config {
	return config.Defaults()
}

// testService creates an analysis service without an external provider
func testService(t *testing.T, cfg *config.Config) (*analysis.Service, *database.FingerprintIndex) {
	t.Helper()
	idx := database.NewFingerprintIndex()
	return analysis.NewService(cfg, idx, analysis.WithProvider(nil)), idx
}

// createTestPNG encodes a small gradient image
func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), 60, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a POST request with data in the given form field
func multipartRequest(t *testing.T, path, field, filename string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	} else if err := writer.WriteField("other", "value"); err != nil {
		t.Fatalf("failed to write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
