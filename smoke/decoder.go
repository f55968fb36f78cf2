package smoke

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/smokecodec/imagecodec"
	"github.com/opd-ai/smokecodec/limits"
	"github.com/opd-ai/smokecodec/video"
)

// Decoder reconstructs frames from a smoke bitstream.
//
// The decoder keeps a reference frame that every bitstream frame updates in
// place. The reference is only modified after the payload decompressed
// successfully, so a corrupt frame leaves the previous picture intact. A
// Decoder is not safe for concurrent use.
type Decoder struct {
	ref          *ReferenceFrame
	decompressor imagecodec.Decompressor
	maxPixels    int
	stats        Stats
	closed       bool
}

// NewDecoder creates a decoder. Nil opts selects DefaultDecoderOptions. The
// reference starts as a 16×16 black placeholder and takes its real size
// from the first frame.
func NewDecoder(opts *DecoderOptions) (*Decoder, error) {
	if opts == nil {
		opts = DefaultDecoderOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	d := &Decoder{
		ref:          newReferenceFrame(placeholderSize, placeholderSize),
		decompressor: opts.Decompressor,
		maxPixels:    opts.MaxPixels,
	}
	if d.decompressor == nil {
		d.decompressor = imagecodec.NewJPEG()
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewDecoder",
		"max_pixels": d.maxPixels,
	}).Info("Smoke decoder created")

	return d, nil
}

// Decode applies one bitstream frame to the reference and returns a copy of
// the reconstructed picture.
//
// Header-only frames return the unchanged reference. A header whose
// dimensions differ from the reference reallocates it; blocks not covered
// by the frame start black.
func (d *Decoder) Decode(data []byte) (*video.Frame, error) {
	frame, _, err := d.DecodeWithHeader(data)
	return frame, err
}

// DecodeWithHeader is Decode that also returns the parsed frame header.
func (d *Decoder) DecodeWithHeader(data []byte) (*video.Frame, *Header, error) {
	h, err := d.decode(data)
	if err != nil {
		return nil, nil, err
	}
	return d.ref.Snapshot(), h, nil
}

// DecodeHeader parses the header of a bitstream frame without decoding it.
func (d *Decoder) DecodeHeader(data []byte) (*Header, error) {
	h, _, err := ParseHeader(data)
	return h, err
}

func (d *Decoder) decode(data []byte) (*Header, error) {
	if d.closed {
		return nil, ErrClosed
	}

	h, payload, err := ParseHeader(data)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Decoder.Decode",
			"data_size": len(data),
			"error":     err.Error(),
		}).Error("Frame header parsing failed")
		return nil, err
	}

	width, height := int(h.Width), int(h.Height)
	target := d.ref.Frame()
	resized := !d.ref.Matches(width, height)
	if resized {
		if width*height > d.maxPixels {
			return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrAllocationFailure, width, height, d.maxPixels)
		}
		target = video.NewBlackFrame(width, height)
	}

	count := h.BlockCount()
	if h.Keyframe() {
		count = target.TotalBlocks()
	}

	if count > 0 {
		maxCanvas := canvasPixelLimit(count)
		canvas, err := d.decompressor.Decompress(payload, maxCanvas)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":     "Decoder.Decode",
				"payload_size": len(payload),
				"max_canvas":   maxCanvas,
				"error":        err.Error(),
			}).Error("Payload decompression failed")
			if errors.Is(err, imagecodec.ErrImageTooLarge) {
				return nil, fmt.Errorf("%w: canvas: %w", ErrAllocationFailure, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrDecompressorFailure, err)
		}
		if err := checkCanvas(canvas, count, maxCanvas); err != nil {
			return nil, err
		}
		if err := scatter(target, canvas, h, count); err != nil {
			return nil, err
		}
	}

	if resized {
		logrus.WithFields(logrus.Fields{
			"function":   "Decoder.Decode",
			"old_width":  d.ref.Width(),
			"old_height": d.ref.Height(),
			"new_width":  width,
			"new_height": height,
		}).Info("Stream dimensions changed")
		d.ref.Replace(target)
	}

	d.stats.record(h, count, h.Size()+int(h.PayloadSize))

	logrus.WithFields(logrus.Fields{
		"function": "Decoder.Decode",
		"keyframe": h.Keyframe(),
		"blocks":   count,
		"width":    width,
		"height":   height,
	}).Debug("Video frame decoding completed")

	return h, nil
}

// canvasPixelLimit bounds the canvas a frame of count blocks may decompress
// to. FindBestSize wastes fewer than w cells and w never exceeds count, so
// the grid holds at most 2*count-1 blocks.
func canvasPixelLimit(count int) int {
	return (2*count - 1) * limits.BlockSize * limits.BlockSize
}

// checkCanvas verifies a decompressed canvas is a grid of whole blocks with
// room for count of them and no larger than maxPixels.
func checkCanvas(canvas *video.Frame, count, maxPixels int) error {
	if canvas.Width*canvas.Height > maxPixels {
		return fmt.Errorf("%w: canvas %dx%d exceeds %d pixels",
			ErrAllocationFailure, canvas.Width, canvas.Height, maxPixels)
	}
	if err := canvas.ValidateBlockAligned(); err != nil {
		return fmt.Errorf("%w: canvas: %w", ErrDecompressorFailure, err)
	}
	if canvas.TotalBlocks() < count {
		return fmt.Errorf("%w: canvas holds %d blocks, frame needs %d",
			ErrDecompressorFailure, canvas.TotalBlocks(), count)
	}
	return nil
}

// scatter copies the first count canvas blocks to their frame positions.
func scatter(dst, canvas *video.Frame, h *Header, count int) error {
	cw := canvas.Width / limits.BlockSize
	bw := dst.BlocksWide()
	for i := 0; i < count; i++ {
		idx := i
		if !h.Keyframe() {
			idx = int(h.Indices[i])
		}
		if err := video.CopyBlock(dst, idx%bw, idx/bw, canvas, i%cw, i/cw); err != nil {
			return fmt.Errorf("%w: block %d: %w", ErrDecompressorFailure, idx, err)
		}
	}
	return nil
}

// Reference returns a copy of the decoder's reference frame.
func (d *Decoder) Reference() *video.Frame {
	return d.ref.Snapshot()
}

// Width returns the current stream width.
func (d *Decoder) Width() int { return d.ref.Width() }

// Height returns the current stream height.
func (d *Decoder) Height() int { return d.ref.Height() }

// Stats returns counters for the frames decoded so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Close releases the decompressor. Close is idempotent.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.decompressor.Close()
}
