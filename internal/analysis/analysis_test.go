package analysis

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/kozaktomas/tracelens/internal/config"
	"github.com/kozaktomas/tracelens/internal/database"
	"github.com/kozaktomas/tracelens/internal/detector"
	"github.com/kozaktomas/tracelens/internal/imaging"
	"github.com/kozaktomas/tracelens/internal/revsearch"
	"github.com/kozaktomas/tracelens/internal/revsearch/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradientPNG(t *testing.T, w, h int, invert bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			v := uint8(x * 255 / w)
			if invert {
				v = 255 - v
			}
			img.Set(x, y, color.RGBA{v, uint8(y * 255 / h), 90, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService(t *testing.T, opts ...Option) (*Service, *database.FingerprintIndex) {
	t.Helper()
	idx := database.NewFingerprintIndex()
	opts = append([]Option{WithProvider(nil)}, opts...)
	return NewService(config.Defaults(), idx, opts...), idx
}

func TestAnalyze(t *testing.T) {
	svc, idx := newTestService(t)
	data := gradientPNG(t, 120, 80, false)

	res, err := svc.Analyze(context.Background(), "photo.png", data)
	require.NoError(t, err)

	assert.NotEqual(t, [16]byte{}, [16]byte(res.ID))
	assert.Equal(t, "photo.png", res.Filename)
	assert.Len(t, res.PerceptualHash, 16)
	assert.Equal(t, 1, idx.Len())

	require.NotNil(t, res.Metadata)
	assert.Equal(t, "png", res.Metadata.Basic.Format)
	assert.Equal(t, 120, res.Metadata.Basic.Width)

	assert.Contains(t, []detector.Label{detector.LabelHuman, detector.LabelAI, detector.LabelUncertain}, res.AIDetection.Verdict)
	assert.Len(t, res.AIDetection.Signals, 4)

	assert.NotNil(t, res.Duplicates)
	assert.Empty(t, res.Duplicates)

	require.Len(t, res.ReverseSearch, 1)
	assert.True(t, revsearch.IsSentinel(res.ReverseSearch[0]))
}

func TestAnalyzeSameImageTwice(t *testing.T) {
	svc, idx := newTestService(t)
	data := gradientPNG(t, 64, 64, false)

	first, err := svc.Analyze(context.Background(), "a.png", data)
	require.NoError(t, err)
	second, err := svc.Analyze(context.Background(), "b.png", data)
	require.NoError(t, err)

	assert.Equal(t, first.PerceptualHash, second.PerceptualHash)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, idx.Len())
	// An identical fingerprint is treated as a self-match.
	assert.Empty(t, second.Duplicates)
}

func TestAnalyzeFindsNearDuplicate(t *testing.T) {
	svc, idx := newTestService(t)

	res, err := svc.Analyze(context.Background(), "a.png", gradientPNG(t, 64, 64, false))
	require.NoError(t, err)

	// Flip one bit of the stored fingerprint to simulate a near-duplicate.
	near := []byte(res.PerceptualHash)
	if near[15] == '0' {
		near[15] = '1'
	} else {
		near[15] = '0'
	}
	idx.Reset()
	idx.Insert(string(near))

	res, err = svc.Analyze(context.Background(), "b.png", gradientPNG(t, 64, 64, false))
	require.NoError(t, err)
	require.NotEmpty(t, res.Duplicates)
	assert.Equal(t, string(near), res.Duplicates[0].Hash)
	assert.LessOrEqual(t, res.Duplicates[0].Distance, 4)

	require.NotEmpty(t, res.ReverseSearch)
	assert.Equal(t, "Local Database", res.ReverseSearch[0].Source)
	assert.False(t, revsearch.IsSentinel(res.ReverseSearch[0]))
}

func TestAnalyzeUsesProvider(t *testing.T) {
	url := "https://example.com/p/1"
	provider := mock.NewMockProvider(revsearch.Match{Source: "Example", Similarity: 0.8, URL: &url})
	svc, _ := newTestService(t, WithProvider(provider))

	res, err := svc.Analyze(context.Background(), "a.png", gradientPNG(t, 32, 32, true))
	require.NoError(t, err)

	require.Len(t, res.ReverseSearch, 1)
	assert.Equal(t, "Example", res.ReverseSearch[0].Source)
	assert.Equal(t, 1, provider.Calls())
	assert.True(t, svc.ExternalSearchEnabled())
}

func TestAnalyzeErrors(t *testing.T) {
	cfg := config.Defaults()
	cfg.Upload.MaxFileSize = 1024

	svc := NewService(cfg, database.NewFingerprintIndex(), WithProvider(nil))

	_, err := svc.Analyze(context.Background(), "big.png", make([]byte, 2048))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = svc.Analyze(context.Background(), "bad.png", []byte("not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = svc.Analyze(context.Background(), "empty.png", nil)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.ErrorIs(t, err, imaging.ErrEmptyImage)
}

func TestAnalyzeExplicitContent(t *testing.T) {
	svc, idx := newTestService(t, WithScreen(func(*imaging.Buffer) bool { return true }))

	_, err := svc.Analyze(context.Background(), "x.png", gradientPNG(t, 16, 16, false))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExplicitContent))
	assert.Zero(t, idx.Len(), "refused uploads must not be indexed")
}

func TestNewServiceProviderFromConfig(t *testing.T) {
	cfg := config.Defaults()
	assert.False(t, NewService(cfg, nil).ExternalSearchEnabled())

	cfg.ReverseSearch.APIKey = "key"
	assert.True(t, NewService(cfg, nil).ExternalSearchEnabled())
}

func TestAnalyzeWithoutIndex(t *testing.T) {
	svc := NewService(config.Defaults(), nil, WithProvider(nil))

	res, err := svc.Analyze(context.Background(), "a.png", gradientPNG(t, 32, 32, false))
	require.NoError(t, err)
	assert.Empty(t, res.Duplicates)
	require.Len(t, res.ReverseSearch, 1)
	assert.True(t, revsearch.IsSentinel(res.ReverseSearch[0]))
}
