package smoke

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/smokecodec/video"
)

// placeholderSize is the edge of the reference a decoder starts with before
// the first header tells it the stream dimensions.
const placeholderSize = 16

// ReferenceFrame owns the persistent planar buffer holding the last known
// decoded state of a stream. Encoder and Decoder each embed one.
type ReferenceFrame struct {
	frame *video.Frame
}

// newReferenceFrame allocates a black reference of the given size.
func newReferenceFrame(width, height int) *ReferenceFrame {
	return &ReferenceFrame{frame: video.NewBlackFrame(width, height)}
}

// Width returns the reference width in pixels.
func (r *ReferenceFrame) Width() int { return r.frame.Width }

// Height returns the reference height in pixels.
func (r *ReferenceFrame) Height() int { return r.frame.Height }

// BlocksWide returns the reference width in blocks.
func (r *ReferenceFrame) BlocksWide() int { return r.frame.BlocksWide() }

// BlocksHigh returns the reference height in blocks.
func (r *ReferenceFrame) BlocksHigh() int { return r.frame.BlocksHigh() }

// TotalBlocks returns the number of blocks in the reference.
func (r *ReferenceFrame) TotalBlocks() int { return r.frame.TotalBlocks() }

// Matches reports whether the reference has the given dimensions.
func (r *ReferenceFrame) Matches(width, height int) bool {
	return r.frame.Width == width && r.frame.Height == height
}

// Resize reallocates the reference as a black frame of the new size. It is
// a no-op when the size is unchanged.
func (r *ReferenceFrame) Resize(width, height int) {
	if r.Matches(width, height) {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function":   "ReferenceFrame.Resize",
		"old_width":  r.frame.Width,
		"old_height": r.frame.Height,
		"new_width":  width,
		"new_height": height,
	}).Info("Reallocating reference frame")
	r.frame = video.NewBlackFrame(width, height)
}

// Replace adopts frame as the new reference without copying.
func (r *ReferenceFrame) Replace(frame *video.Frame) {
	r.frame = frame
}

// CopyFrom overwrites the reference samples with those of src.
func (r *ReferenceFrame) CopyFrom(src *video.Frame) error {
	if err := r.frame.CopyFrom(src); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDimensions, err)
	}
	return nil
}

// Frame returns the live reference buffer. Callers must not retain it across
// encode or decode calls.
func (r *ReferenceFrame) Frame() *video.Frame {
	return r.frame
}

// Snapshot returns an independent copy of the reference.
func (r *ReferenceFrame) Snapshot() *video.Frame {
	return r.frame.Clone()
}
