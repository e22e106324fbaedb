// Package imaging holds the decoded pixel buffer every analysis step works on.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptyImage is returned for images with no pixels.
	ErrEmptyImage = errors.New("image has no pixels")
	// ErrNilImage is returned when no image was supplied.
	ErrNilImage = errors.New("image is nil")
)

// Buffer is an immutable decoded image.
type Buffer struct {
	img      image.Image
	width    int
	height   int
	channels int
	format   string
}

// New wraps an already decoded image. Format is informational only.
func New(img image.Image, format string) (*Buffer, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrEmptyImage
	}
	return &Buffer{
		img:      img,
		width:    bounds.Dx(),
		height:   bounds.Dy(),
		channels: channelCount(img),
		format:   format,
	}, nil
}

// Decode decodes raw image bytes (JPEG, PNG, GIF, BMP, TIFF, WebP).
func Decode(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return New(img, format)
}

// channelCount reports 1 for grayscale color models and 3 for everything else.
// Alpha is never counted; analysis runs on RGB like the decoder's consumers expect.
func channelCount(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	default:
		return 3
	}
}

func (b *Buffer) Image() image.Image { return b.img }
func (b *Buffer) Width() int         { return b.width }
func (b *Buffer) Height() int        { return b.height }
func (b *Buffer) Channels() int      { return b.channels }
func (b *Buffer) Format() string     { return b.format }

// RGBA returns an RGBA copy of the image whose longest side is at most maxSize.
// A non-positive maxSize disables the cap. Downscaling picks source pixels
// (nearest neighbour) instead of blending them, so pixel-level noise and
// histograms of the copy match the original.
func (b *Buffer) RGBA(maxSize int) *image.RGBA {
	w, h := fitWithin(b.width, b.height, maxSize)
	return scale(b.img, w, h, draw.NearestNeighbor)
}

// fitWithin scales width and height down to fit within maxSize, keeping aspect ratio.
func fitWithin(width, height, maxSize int) (int, int) {
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return width, height
	}
	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}
	return max(newWidth, 1), max(newHeight, 1)
}

// Resize scales img to exactly width x height with bilinear smoothing.
func Resize(img image.Image, width, height int) *image.RGBA {
	return scale(img, width, height, draw.BiLinear)
}

func scale(img image.Image, width, height int, scaler draw.Scaler) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
		return dst
	}
	scaler.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
