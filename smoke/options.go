package smoke

import (
	"fmt"

	"github.com/opd-ai/smokecodec/imagecodec"
)

// Default encoder settings.
const (
	DefaultMinQuality       = 10
	DefaultMaxQuality       = 85
	DefaultThreshold        = 3000
	DefaultKeyframeInterval = 20

	// DefaultMaxPixels bounds decoder reference allocation (4096x4096).
	DefaultMaxPixels = 4096 * 4096
)

// EncoderOptions configures an Encoder.
type EncoderOptions struct {
	// MinQuality is the quality used when almost every block changed.
	MinQuality int
	// MaxQuality is the quality used when almost nothing changed; keyframes
	// use 60% of it.
	MaxQuality int
	// Threshold is the per-block luma SSD at or above which a block counts
	// as changed.
	Threshold uint64
	// KeyframeInterval forces a keyframe every N frames. Zero disables
	// periodic keyframes.
	KeyframeInterval int
	// RefDecode makes the encoder decode its own output and adopt the
	// reconstruction as reference, keeping it bit-identical to the decoder.
	RefDecode bool
	// Compressor packs changed blocks. Nil selects JPEG. The encoder takes
	// ownership and closes it.
	Compressor imagecodec.Compressor
	// Decompressor is used for RefDecode. Nil selects a codec matching the
	// default Compressor. The encoder takes ownership and closes it.
	Decompressor imagecodec.Decompressor
}

// DefaultEncoderOptions returns the default encoder settings.
func DefaultEncoderOptions() *EncoderOptions {
	return &EncoderOptions{
		MinQuality:       DefaultMinQuality,
		MaxQuality:       DefaultMaxQuality,
		Threshold:        DefaultThreshold,
		KeyframeInterval: DefaultKeyframeInterval,
	}
}

// Validate checks that the options are in range.
func (o *EncoderOptions) Validate() error {
	if err := validateQuality(o.MinQuality, o.MaxQuality); err != nil {
		return err
	}
	if o.KeyframeInterval < 0 {
		return fmt.Errorf("%w: keyframe interval %d is negative", ErrInvalidOptions, o.KeyframeInterval)
	}
	return nil
}

func validateQuality(minQuality, maxQuality int) error {
	if minQuality < 0 || minQuality > 100 || maxQuality < 0 || maxQuality > 100 {
		return fmt.Errorf("%w: quality range %d..%d outside 0..100", ErrInvalidOptions, minQuality, maxQuality)
	}
	if minQuality > maxQuality {
		return fmt.Errorf("%w: min quality %d above max quality %d", ErrInvalidOptions, minQuality, maxQuality)
	}
	return nil
}

// DecoderOptions configures a Decoder.
type DecoderOptions struct {
	// MaxPixels bounds the reference frame a header may ask for.
	MaxPixels int
	// Decompressor decodes payloads. Nil selects JPEG. The decoder takes
	// ownership and closes it.
	Decompressor imagecodec.Decompressor
}

// DefaultDecoderOptions returns the default decoder settings.
func DefaultDecoderOptions() *DecoderOptions {
	return &DecoderOptions{MaxPixels: DefaultMaxPixels}
}

// Validate checks that the options are in range.
func (o *DecoderOptions) Validate() error {
	if o.MaxPixels <= 0 {
		return fmt.Errorf("%w: max pixels %d must be positive", ErrInvalidOptions, o.MaxPixels)
	}
	return nil
}
