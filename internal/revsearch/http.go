package revsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kozaktomas/tracelens/internal/constants"
)

const (
	formField    = "image"
	formFilename = "query.jpg"
	jpegQuality  = 90
)

// maxResponseBytes bounds how much of a provider reply is read.
const maxResponseBytes = 4 << 20

// ErrNotConfigured is returned by a provider without an endpoint or API key.
var ErrNotConfigured = errors.New("reverse search provider not configured")

// HTTPProvider queries a reverse image search API over HTTP.
type HTTPProvider struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPProvider creates a provider posting to url with a bearer apiKey.
// A nil client uses a default one; request deadlines come from the context.
func NewHTTPProvider(url, apiKey string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProvider{
		url:    strings.TrimSpace(url),
		apiKey: apiKey,
		client: client,
	}
}

// Name implements Provider.
func (p *HTTPProvider) Name() string { return "http" }

// searchResponse is the provider's reply body.
type searchResponse struct {
	Matches []struct {
		Source     string  `json:"source"`
		Similarity float64 `json:"similarity"`
		URL        *string `json:"url"`
		Thumbnail  *string `json:"thumbnail"`
	} `json:"matches"`
}

// Search implements Provider.
func (p *HTTPProvider) Search(ctx context.Context, img image.Image) ([]Match, error) {
	if p.url == "" || p.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if img == nil {
		return nil, errors.New("nil image")
	}

	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode query image: %w", err)
	}

	body, err := p.postMultipartImage(ctx, encoded.Bytes())
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	n := min(len(resp.Matches), constants.MaxReverseSearchResults)
	matches := make([]Match, 0, n)
	for _, m := range resp.Matches[:n] {
		source := m.Source
		if source == "" {
			source = constants.UnknownSourceName
		}
		matches = append(matches, Match{
			Source:     source,
			Similarity: clampSimilarity(m.Similarity),
			URL:        m.URL,
			Thumbnail:  m.Thumbnail,
		})
	}
	return matches, nil
}

// postMultipartImage posts the JPEG bytes as a multipart form and returns the
// body of a 200 response.
func (p *HTTPProvider) postMultipartImage(ctx context.Context, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(formField, formFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
