// Package imagecodec provides the still-image compressors the smoke codec
// packs its changed blocks into.
//
// The codec core depends only on the Compressor and Decompressor interfaces;
// any block-based still-image format that round-trips planar YUV 4:2:0 can
// satisfy them.
package imagecodec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/smokecodec/video"
)

// Compressor encodes one planar 4:2:0 image at a given quality.
//
// A Compressor is an exclusively owned handle: it is not safe for concurrent
// use and must be released with Close.
type Compressor interface {
	// Compress encodes frame at quality 0..100.
	Compress(frame *video.Frame, quality int) ([]byte, error)
	// MaxWidth returns the widest image, in pixels, Compress accepts.
	MaxWidth() int
	// Close releases compressor resources.
	Close() error
}

// Decompressor decodes data produced by the matching Compressor.
type Decompressor interface {
	// Decompress returns the decoded image at the size the bitstream reports.
	// An image covering more than maxPixels pixels fails with
	// ErrImageTooLarge before its planes are allocated. A maxPixels of zero
	// or less means unbounded.
	Decompress(data []byte, maxPixels int) (*video.Frame, error)
	// Close releases decompressor resources.
	Close() error
}

// Codec is a Compressor and Decompressor pair.
type Codec interface {
	Compressor
	Decompressor
}

// Names of the built-in codecs accepted by New.
const (
	NameJPEG = "jpeg"
	NameZstd = "zstd"
)

var (
	// ErrUnknownCodec indicates New was asked for a codec it does not know.
	ErrUnknownCodec = errors.New("unknown image codec")

	// ErrCodecClosed indicates use of a codec after Close.
	ErrCodecClosed = errors.New("image codec closed")

	// ErrCorruptImage indicates data that does not decode to a usable image.
	ErrCorruptImage = errors.New("corrupt image data")

	// ErrImageTooLarge indicates an image whose declared size exceeds the
	// pixel limit given to Decompress.
	ErrImageTooLarge = errors.New("image too large")
)

// New creates a built-in codec by name ("jpeg" or "zstd", case-insensitive).
func New(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameJPEG, "":
		return NewJPEG(), nil
	case NameZstd:
		return NewZstd()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// clampQuality limits quality to the 0..100 range.
func clampQuality(q int) int {
	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}

// checkArea rejects a declared image size above maxPixels.
func checkArea(width, height, maxPixels int) error {
	if maxPixels > 0 && width*height > maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, width, height, maxPixels)
	}
	return nil
}
