package smoke

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/opd-ai/smokecodec/imagecodec"
	"github.com/opd-ai/smokecodec/limits"
	"github.com/opd-ai/smokecodec/video"
)

type encoderState int

const (
	stateAwaitingFirstFrame encoderState = iota
	stateSteady
)

// Padding colour for unused packer grid cells.
const (
	padLuma   = 128
	padChroma = 128
)

// Encoder turns a sequence of equally sized frames into smoke bitstream
// frames.
//
// Only blocks whose luma changed by at least the threshold since the
// reference are coded. They are packed into one near-square canvas and
// handed to the image compressor in a single call. An Encoder is not safe
// for concurrent use, and frames must be supplied in capture order.
type Encoder struct {
	opts          EncoderOptions
	ref           *ReferenceFrame
	compressor    imagecodec.Compressor
	refdec        *Decoder
	canvas        *video.Frame
	state         encoderState
	needKeyframe  bool
	sinceKeyframe int
	stats         Stats
	closed        bool
}

// NewEncoder creates an encoder for width×height frames. Both dimensions
// must be positive multiples of 16. Nil opts selects DefaultEncoderOptions.
//
// The encoder owns the compressor (and the reference-decoding decompressor
// when RefDecode is set) until Close.
func NewEncoder(width, height int, opts *EncoderOptions) (*Encoder, error) {
	logrus.WithFields(logrus.Fields{
		"function": "NewEncoder",
		"width":    width,
		"height":   height,
	}).Info("Creating new smoke encoder")

	if err := limits.ValidateDimensions(width, height); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewEncoder",
			"width":    width,
			"height":   height,
			"error":    err.Error(),
		}).Error("Encoder dimension validation failed")
		return nil, fmt.Errorf("%w: %w", ErrInvalidDimensions, err)
	}

	if opts == nil {
		opts = DefaultEncoderOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.RefDecode && opts.Compressor != nil && opts.Decompressor == nil {
		return nil, fmt.Errorf("%w: reference decoding with a custom compressor needs a decompressor",
			ErrInvalidOptions)
	}

	e := &Encoder{
		opts:       *opts,
		ref:        newReferenceFrame(width, height),
		compressor: opts.Compressor,
		state:      stateAwaitingFirstFrame,
	}
	if e.compressor == nil {
		e.compressor = imagecodec.NewJPEG()
	}

	if opts.RefDecode {
		decompressor := opts.Decompressor
		if decompressor == nil {
			decompressor = imagecodec.NewJPEG()
		}
		maxPixels := DefaultMaxPixels
		if width*height > maxPixels {
			maxPixels = width * height
		}
		refdec, err := NewDecoder(&DecoderOptions{MaxPixels: maxPixels, Decompressor: decompressor})
		if err != nil {
			_ = e.compressor.Close()
			return nil, fmt.Errorf("reference decoder: %w", err)
		}
		e.refdec = refdec
	}
	e.opts.Compressor = nil
	e.opts.Decompressor = nil

	logrus.WithFields(logrus.Fields{
		"function":          "NewEncoder",
		"width":             width,
		"height":            height,
		"min_quality":       e.opts.MinQuality,
		"max_quality":       e.opts.MaxQuality,
		"threshold":         e.opts.Threshold,
		"keyframe_interval": e.opts.KeyframeInterval,
		"ref_decode":        e.opts.RefDecode,
	}).Info("Smoke encoder created successfully")

	return e, nil
}

// Width returns the frame width the encoder accepts.
func (e *Encoder) Width() int { return e.ref.Width() }

// Height returns the frame height the encoder accepts.
func (e *Encoder) Height() int { return e.ref.Height() }

// Encode codes frame and returns the bitstream frame.
//
// A frame with no visible change yields a header-only result with
// blockCount and payloadSize both zero. On error the reference is left
// untouched.
func (e *Encoder) Encode(frame *video.Frame) ([]byte, error) {
	enc, err := e.prepare(frame)
	if err != nil {
		return nil, err
	}
	out := make([]byte, enc.size())
	if _, err := enc.writeTo(out); err != nil {
		return nil, err
	}
	if err := e.commit(frame, enc, out); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeInto codes frame into dst and returns the number of bytes written.
// It fails with ErrBufferTooSmall, leaving the encoder state unchanged, when
// dst cannot hold the result.
func (e *Encoder) EncodeInto(dst []byte, frame *video.Frame) (int, error) {
	enc, err := e.prepare(frame)
	if err != nil {
		return 0, err
	}
	if len(dst) < enc.size() {
		return 0, fmt.Errorf("%w: frame needs %d bytes, have %d", ErrBufferTooSmall, enc.size(), len(dst))
	}
	n, err := enc.writeTo(dst)
	if err != nil {
		return 0, err
	}
	if err := e.commit(frame, enc, dst[:n]); err != nil {
		return 0, err
	}
	return n, nil
}

// encodedFrame is a coded frame that has not yet been committed to the
// reference.
type encodedFrame struct {
	header  *Header
	payload []byte
	changes ChangeSet
	quality int
}

func (f *encodedFrame) size() int {
	return f.header.Size() + int(f.header.PayloadSize)
}

func (f *encodedFrame) writeTo(dst []byte) (int, error) {
	n, err := f.header.MarshalTo(dst)
	if err != nil {
		return 0, err
	}
	end := n + int(f.header.PayloadSize)
	copy(dst[n:end], f.payload)
	clear(dst[n+len(f.payload) : end])
	return end, nil
}

// prepare runs change detection, packing and compression without touching
// encoder state.
func (e *Encoder) prepare(frame *video.Frame) (*encodedFrame, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if err := frame.Validate(); err != nil {
		if errors.Is(err, video.ErrPlaneTooSmall) {
			return nil, fmt.Errorf("%w: %w", ErrBufferTooSmall, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidDimensions, err)
	}
	if !e.ref.Matches(frame.Width, frame.Height) {
		logrus.WithFields(logrus.Fields{
			"function":        "Encoder.Encode",
			"expected_width":  e.ref.Width(),
			"expected_height": e.ref.Height(),
			"actual_width":    frame.Width,
			"actual_height":   frame.Height,
			"error":           "frame size mismatch",
		}).Error("Frame dimension validation failed")
		return nil, fmt.Errorf("%w: frame size mismatch: expected %dx%d, got %dx%d",
			ErrInvalidDimensions, e.ref.Width(), e.ref.Height(), frame.Width, frame.Height)
	}

	changes, err := DetectChanges(e.ref.Frame(), frame, e.opts.Threshold, e.keyframeDue())
	if err != nil {
		return nil, err
	}

	enc := &encodedFrame{
		header: &Header{
			Width:  uint16(frame.Width),
			Height: uint16(frame.Height),
		},
		changes: changes,
	}
	if changes.Keyframe {
		enc.header.Flags |= FlagKeyframe
	} else if len(changes.Changed) > 0 {
		enc.header.Indices = make([]uint16, len(changes.Changed))
		for i, idx := range changes.Changed {
			enc.header.Indices[i] = uint16(idx)
		}
	}

	count := changes.EncodeCount()
	if count == 0 {
		return enc, nil
	}

	// Keyframe promotion inside DetectChanges has already run, so a delta
	// frame reaching this point always has changed < total.
	enc.quality = SelectQuality(changes.Keyframe, len(changes.Changed), changes.Total,
		e.opts.MinQuality, e.opts.MaxQuality)

	canvas, err := e.pack(frame, changes)
	if err != nil {
		return nil, err
	}

	payload, err := e.compressor.Compress(canvas, enc.quality)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Encoder.Encode",
			"blocks":   count,
			"quality":  enc.quality,
			"error":    err.Error(),
		}).Error("Image compression failed")
		return nil, fmt.Errorf("%w: %w", ErrCompressorFailure, err)
	}
	if err := limits.ValidatePayloadSize(len(payload)); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Encoder.Encode",
			"blocks":   count,
			"quality":  enc.quality,
			"size":     len(payload),
		}).Error("Compressed payload exceeds header size field")
		return nil, fmt.Errorf("%w: %w", ErrCompressorFailure, err)
	}
	enc.payload = payload
	enc.header.PayloadSize = uint16(limits.AlignPayload(len(payload)))
	return enc, nil
}

// keyframeDue reports whether the next frame must be a keyframe.
func (e *Encoder) keyframeDue() bool {
	if e.state == stateAwaitingFirstFrame || e.needKeyframe {
		return true
	}
	return e.opts.KeyframeInterval > 0 && e.sinceKeyframe+1 >= e.opts.KeyframeInterval
}

// pack copies the blocks to code into a canvas laid out by FindBestSize:
// sequentially for keyframes, in changed-index order for delta frames.
func (e *Encoder) pack(frame *video.Frame, changes ChangeSet) (*video.Frame, error) {
	count := changes.EncodeCount()
	cw, ch := FindBestSize(count, e.compressor.MaxWidth()/limits.BlockSize)

	width, height := cw*limits.BlockSize, ch*limits.BlockSize
	if e.canvas == nil || e.canvas.Width != width || e.canvas.Height != height {
		e.canvas = video.NewFrame(width, height)
	}

	bw := frame.BlocksWide()
	for i := 0; i < cw*ch; i++ {
		var err error
		if i < count {
			idx := i
			if !changes.Keyframe {
				idx = changes.Changed[i]
			}
			err = video.CopyBlock(e.canvas, i%cw, i/cw, frame, idx%bw, idx/bw)
		} else {
			err = video.FillBlock(e.canvas, i%cw, i/cw, padLuma, padChroma, padChroma)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: packing block %d: %w", ErrBufferTooSmall, i, err)
		}
	}
	return e.canvas, nil
}

// commit updates the reference and counters after a frame has been handed
// out. With RefDecode the bitstream is decoded and its reconstruction
// becomes the reference; otherwise the source frame is copied.
func (e *Encoder) commit(frame *video.Frame, enc *encodedFrame, out []byte) error {
	if e.refdec != nil {
		if _, err := e.refdec.decode(out); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Encoder.Encode",
				"error":    err.Error(),
			}).Error("Reference decode failed")
			return fmt.Errorf("reference decode: %w", err)
		}
		if err := e.ref.CopyFrom(e.refdec.ref.Frame()); err != nil {
			return err
		}
	} else if err := e.ref.CopyFrom(frame); err != nil {
		return err
	}

	e.state = stateSteady
	if enc.changes.Keyframe {
		e.needKeyframe = false
		e.sinceKeyframe = 0
	} else {
		e.sinceKeyframe++
	}

	count := enc.changes.EncodeCount()
	e.stats.record(enc.header, count, len(out))
	if count > 0 {
		e.stats.LastQuality = enc.quality
	}

	logrus.WithFields(logrus.Fields{
		"function":     "Encoder.Encode",
		"keyframe":     enc.changes.Keyframe,
		"blocks":       count,
		"total_blocks": enc.changes.Total,
		"quality":      enc.quality,
		"payload_size": enc.header.PayloadSize,
		"output_size":  len(out),
	}).Debug("Video frame encoding completed")

	return nil
}

// ForceKeyframe makes the next encoded frame a keyframe.
func (e *Encoder) ForceKeyframe() {
	e.needKeyframe = true
}

// KeyframePending reports whether the next frame will be a keyframe.
func (e *Encoder) KeyframePending() bool {
	return e.keyframeDue()
}

// SetQuality updates the quality range used for subsequent frames.
func (e *Encoder) SetQuality(minQuality, maxQuality int) error {
	if err := validateQuality(minQuality, maxQuality); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"function":        "Encoder.SetQuality",
		"old_min_quality": e.opts.MinQuality,
		"old_max_quality": e.opts.MaxQuality,
		"min_quality":     minQuality,
		"max_quality":     maxQuality,
	}).Info("Updating smoke encoder quality range")
	e.opts.MinQuality = minQuality
	e.opts.MaxQuality = maxQuality
	return nil
}

// SetThreshold updates the per-block change threshold.
func (e *Encoder) SetThreshold(threshold uint64) {
	e.opts.Threshold = threshold
}

// Options returns the encoder's current settings. Compressor fields are nil.
func (e *Encoder) Options() EncoderOptions {
	return e.opts
}

// Reference returns a copy of the encoder's reference frame.
func (e *Encoder) Reference() *video.Frame {
	return e.ref.Snapshot()
}

// Stats returns counters for the frames encoded so far.
func (e *Encoder) Stats() Stats {
	return e.stats
}

// StreamInfo returns the stream ID packet for this encoder at the given
// frame rate.
func (e *Encoder) StreamInfo(fpsNum, fpsDenom uint32) StreamInfo {
	return StreamInfo{
		Width:    uint16(e.ref.Width()),
		Height:   uint16(e.ref.Height()),
		FPSNum:   fpsNum,
		FPSDenom: fpsDenom,
	}
}

// Close releases the compressor and, with RefDecode, the reference decoder.
// Close is idempotent.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	logrus.WithFields(logrus.Fields{
		"function": "Encoder.Close",
		"frames":   e.stats.Frames,
		"bytes":    e.stats.Bytes,
	}).Info("Closing smoke encoder")

	err := e.compressor.Close()
	if e.refdec != nil {
		err = multierr.Append(err, e.refdec.Close())
	}
	e.canvas = nil
	return err
}
