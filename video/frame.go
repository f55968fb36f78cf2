// Package video provides planar YUV 4:2:0 frames and the block addressing
// used by the smoke codec.
//
// This file defines the Frame type and its validation.
package video

import (
	"errors"
	"fmt"

	"github.com/opd-ai/smokecodec/limits"
)

var (
	// ErrNilFrame indicates a nil frame was supplied.
	ErrNilFrame = errors.New("video frame cannot be nil")

	// ErrFrameDimensions indicates a frame with unusable dimensions.
	ErrFrameDimensions = errors.New("invalid frame dimensions")

	// ErrPlaneTooSmall indicates a plane shorter than its dimensions require.
	ErrPlaneTooSmall = errors.New("plane too small")
)

// Frame represents a video frame in planar YUV 4:2:0 format.
//
// The three planes are contiguous with no row padding: Y holds Width*Height
// luma samples, U (Cb) and V (Cr) each hold (Width/2)*(Height/2) samples.
type Frame struct {
	Width  int
	Height int
	Y      []byte // Luminance plane
	U      []byte // Chrominance Cb plane
	V      []byte // Chrominance Cr plane
}

// NewFrame allocates a zeroed frame of the given size. Width and height must
// be even; NewFrame does not validate them.
func NewFrame(width, height int) *Frame {
	chroma := (width / 2) * (height / 2)
	return &Frame{
		Width:  width,
		Height: height,
		Y:      make([]byte, width*height),
		U:      make([]byte, chroma),
		V:      make([]byte, chroma),
	}
}

// NewBlackFrame allocates a frame filled with black (Y=0, Cb=Cr=128).
func NewBlackFrame(width, height int) *Frame {
	f := NewFrame(width, height)
	f.Fill(0, 128, 128)
	return f
}

// Fill sets every sample of each plane to the given value.
func (f *Frame) Fill(y, u, v byte) {
	f.Luma().Fill(y)
	f.Cb().Fill(u)
	f.Cr().Fill(v)
}

// Validate checks that the frame is properly formatted: non-nil, even
// positive dimensions, and planes large enough for those dimensions.
func (f *Frame) Validate() error {
	if f == nil {
		return ErrNilFrame
	}
	if f.Width <= 0 || f.Height <= 0 || f.Width%2 != 0 || f.Height%2 != 0 {
		return fmt.Errorf("%w: %dx%d", ErrFrameDimensions, f.Width, f.Height)
	}

	expectedYSize := f.Width * f.Height
	expectedUVSize := (f.Width / 2) * (f.Height / 2)

	if len(f.Y) < expectedYSize {
		return fmt.Errorf("%w: Y got %d, expected %d", ErrPlaneTooSmall, len(f.Y), expectedYSize)
	}
	if len(f.U) < expectedUVSize {
		return fmt.Errorf("%w: U got %d, expected %d", ErrPlaneTooSmall, len(f.U), expectedUVSize)
	}
	if len(f.V) < expectedUVSize {
		return fmt.Errorf("%w: V got %d, expected %d", ErrPlaneTooSmall, len(f.V), expectedUVSize)
	}
	return nil
}

// ValidateBlockAligned is Validate plus the requirement that both dimensions
// are multiples of the codec block size.
func (f *Frame) ValidateBlockAligned() error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Width%limits.BlockSize != 0 || f.Height%limits.BlockSize != 0 {
		return fmt.Errorf("%w: %dx%d is not a multiple of %d",
			ErrFrameDimensions, f.Width, f.Height, limits.BlockSize)
	}
	return nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	return &Frame{
		Width:  f.Width,
		Height: f.Height,
		Y:      append([]byte(nil), f.Y...),
		U:      append([]byte(nil), f.U...),
		V:      append([]byte(nil), f.V...),
	}
}

// CopyFrom overwrites the frame's samples with those of src. Both frames
// must have the same dimensions.
func (f *Frame) CopyFrom(src *Frame) error {
	if src == nil {
		return ErrNilFrame
	}
	if src.Width != f.Width || src.Height != f.Height {
		return fmt.Errorf("%w: cannot copy %dx%d into %dx%d",
			ErrFrameDimensions, src.Width, src.Height, f.Width, f.Height)
	}
	copy(f.Y, src.Y)
	copy(f.U, src.U)
	copy(f.V, src.V)
	return nil
}

// SameSize reports whether two frames have identical dimensions.
func (f *Frame) SameSize(o *Frame) bool {
	return o != nil && f.Width == o.Width && f.Height == o.Height
}

// Luma returns the Y plane.
func (f *Frame) Luma() Plane {
	return Plane{Pix: f.Y, Width: f.Width, Height: f.Height}
}

// Cb returns the U plane.
func (f *Frame) Cb() Plane {
	return Plane{Pix: f.U, Width: f.Width / 2, Height: f.Height / 2}
}

// Cr returns the V plane.
func (f *Frame) Cr() Plane {
	return Plane{Pix: f.V, Width: f.Width / 2, Height: f.Height / 2}
}

// BlocksWide returns the frame width in codec blocks.
func (f *Frame) BlocksWide() int {
	return f.Width / limits.BlockSize
}

// BlocksHigh returns the frame height in codec blocks.
func (f *Frame) BlocksHigh() int {
	return f.Height / limits.BlockSize
}

// TotalBlocks returns the number of codec blocks in the frame.
func (f *Frame) TotalBlocks() int {
	return f.BlocksWide() * f.BlocksHigh()
}
