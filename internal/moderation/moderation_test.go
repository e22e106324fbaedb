package moderation

import (
	"image"
	"image/color"
	"testing"

	"github.com/kozaktomas/tracelens/internal/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var skin = color.RGBA{220, 160, 140, 255}

func solidBuffer(t *testing.T, c color.Color, w, h int) *imaging.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, c)
		}
	}
	buf, err := imaging.New(img, "png")
	require.NoError(t, err)
	return buf
}

// splitBuffer fills the top fraction of rows with c1 and the rest with c2.
func splitBuffer(t *testing.T, c1, c2 color.Color, fraction float64) *imaging.Buffer {
	t.Helper()
	const size = 64
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	cut := int(fraction * size)
	for x := range size {
		for y := range size {
			if y < cut {
				img.Set(x, y, c1)
			} else {
				img.Set(x, y, c2)
			}
		}
	}
	buf, err := imaging.New(img, "png")
	require.NoError(t, err)
	return buf
}

func TestIsSkinTone(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    bool
	}{
		{"typical skin", 220, 160, 140, true},
		{"red at upper bound", 255, 160, 140, false},
		{"red at lower bound", 180, 160, 140, false},
		{"green too high", 220, 200, 140, false},
		{"blue too low", 220, 160, 100, false},
		{"black", 0, 0, 0, false},
		{"white", 255, 255, 255, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isSkinTone(tc.r, tc.g, tc.b))
		})
	}
}

func TestSkinRatio(t *testing.T) {
	ratio, err := SkinRatio(solidBuffer(t, skin, 128, 96))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ratio, 1e-9)

	ratio, err = SkinRatio(solidBuffer(t, color.RGBA{20, 40, 200, 255}, 50, 50))
	require.NoError(t, err)
	assert.Zero(t, ratio)

	ratio, err = SkinRatio(splitBuffer(t, skin, color.Black, 0.5))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ratio, 1e-9)
}

func TestSkinRatioNil(t *testing.T) {
	_, err := SkinRatio(nil)
	assert.ErrorIs(t, err, imaging.ErrNilImage)
}

func TestIsExplicit(t *testing.T) {
	assert.True(t, IsExplicit(solidBuffer(t, skin, 64, 64)))
	assert.True(t, IsExplicit(splitBuffer(t, skin, color.Black, 0.75)))
	assert.False(t, IsExplicit(splitBuffer(t, skin, color.Black, 0.5)))
	assert.False(t, IsExplicit(solidBuffer(t, color.White, 64, 64)))
	assert.False(t, IsExplicit(nil), "failures must not block analysis")
}
