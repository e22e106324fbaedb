// Package metadata extracts EXIF, IPTC and XMP fields from uploaded images.
// Extraction degrades gracefully: a malformed or missing block never fails
// an analysis.
package metadata

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bep/imagemeta"
	"github.com/kozaktomas/tracelens/internal/imaging"
	"github.com/rs/zerolog/log"
)

// maxValueLen truncates long tag values such as embedded thumbnails.
const maxValueLen = 512

// Basic describes the decoded image itself.
type Basic struct {
	Format        string `json:"format"`
	Channels      int    `json:"channels"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	FileSizeBytes int    `json:"file_size_bytes"`
}

// Metadata is the metadata section of an analysis result.
type Metadata struct {
	Basic Basic          `json:"basic"`
	EXIF  map[string]any `json:"exif"`
	IPTC  map[string]any `json:"iptc"`
	XMP   map[string]any `json:"xmp"`
	GPS   map[string]any `json:"gps"`
	Error string         `json:"error,omitempty"`
}

// Software returns the EXIF Software tag, which generators sometimes set.
func (m *Metadata) Software() string {
	if m == nil {
		return ""
	}
	s, _ := m.EXIF["Software"].(string)
	return s
}

// TagCount returns the number of extracted tags across all sources.
func (m *Metadata) TagCount() int {
	if m == nil {
		return 0
	}
	return len(m.EXIF) + len(m.IPTC) + len(m.XMP) + len(m.GPS)
}

var formats = map[string]imagemeta.ImageFormat{
	"jpeg": imagemeta.JPEG,
	"png":  imagemeta.PNG,
	"tiff": imagemeta.TIFF,
	"webp": imagemeta.WebP,
}

// Extract reads metadata from the raw upload. buf supplies the basic section;
// tag extraction errors are recorded in Error and never returned.
func Extract(data []byte, buf *imaging.Buffer) *Metadata {
	meta := &Metadata{
		EXIF: map[string]any{},
		IPTC: map[string]any{},
		XMP:  map[string]any{},
		GPS:  map[string]any{},
	}
	meta.Basic.FileSizeBytes = len(data)
	if buf != nil {
		meta.Basic.Format = buf.Format()
		meta.Basic.Channels = buf.Channels()
		meta.Basic.Width = buf.Width()
		meta.Basic.Height = buf.Height()
	}

	format, ok := formats[meta.Basic.Format]
	if len(data) == 0 || !ok {
		return meta
	}

	if err := decodeTags(data, format, meta); err != nil {
		log.Debug().Err(err).Str("format", meta.Basic.Format).Msg("could not extract image metadata")
		meta.Error = err.Error()
	}

	log.Debug().
		Int("exif", len(meta.EXIF)).
		Int("iptc", len(meta.IPTC)).
		Int("xmp", len(meta.XMP)).
		Int("gps", len(meta.GPS)).
		Msg("extracted metadata")
	return meta
}

func decodeTags(data []byte, format imagemeta.ImageFormat, meta *Metadata) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("metadata decoder panic: %v", r)
		}
	}()

	_, err = imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: format,
		Sources:     imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
		HandleTag: func(ti imagemeta.TagInfo) error {
			handleTag(meta, ti)
			return nil
		},
	})
	return err
}

func handleTag(meta *Metadata, ti imagemeta.TagInfo) {
	value, ok := normalizeValue(ti.Value)
	if !ok {
		return
	}

	switch ti.Source {
	case imagemeta.EXIF:
		if strings.HasPrefix(ti.Tag, "GPS") {
			meta.GPS[ti.Tag] = value
			return
		}
		meta.EXIF[ti.Tag] = value
	case imagemeta.IPTC:
		meta.IPTC[ti.Tag] = value
	case imagemeta.XMP:
		meta.XMP[ti.Tag] = value
	}
}

// normalizeValue converts a tag value into something JSON can carry.
// Binary blobs are dropped.
func normalizeValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case []byte:
		return nil, false
	case string:
		s := strings.TrimRight(val, "\x00 ")
		if s == "" {
			return nil, false
		}
		return truncate(s), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return val, true
	case []string:
		return truncate(strings.Join(val, ", ")), true
	default:
		return truncate(fmt.Sprint(val)), true
	}
}

func truncate(s string) string {
	if len(s) <= maxValueLen {
		return s
	}
	return s[:maxValueLen]
}
