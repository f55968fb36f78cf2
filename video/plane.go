package video

import (
	"errors"
	"fmt"

	"github.com/opd-ai/smokecodec/limits"
)

// ErrOutOfBounds indicates a rectangle that does not fit inside a plane.
var ErrOutOfBounds = errors.New("rectangle out of bounds")

// Plane is a bounds-checked view of one contiguous image plane.
//
// All addressing goes through (x, y, width, height) rectangles validated
// against the plane size, so callers never compute offsets or strides.
type Plane struct {
	Pix    []byte
	Width  int
	Height int
}

// contains reports whether the rectangle lies entirely within the plane.
func (p Plane) contains(x, y, w, h int) bool {
	return x >= 0 && y >= 0 && w >= 0 && h >= 0 &&
		x+w <= p.Width && y+h <= p.Height &&
		p.Width*p.Height <= len(p.Pix)
}

func (p Plane) checkRect(x, y, w, h int) error {
	if !p.contains(x, y, w, h) {
		return fmt.Errorf("%w: rect (%d,%d %dx%d) in %dx%d plane",
			ErrOutOfBounds, x, y, w, h, p.Width, p.Height)
	}
	return nil
}

// row returns the w samples starting at (x, y). The rectangle must already
// have been checked.
func (p Plane) row(x, y, w int) []byte {
	off := y*p.Width + x
	return p.Pix[off : off+w]
}

// Fill sets every sample in the plane to v.
func (p Plane) Fill(v byte) {
	for i := range p.Pix {
		p.Pix[i] = v
	}
}

// FillRect sets every sample of the w×h rectangle at (x, y) to v.
func (p Plane) FillRect(x, y, w, h int, v byte) error {
	if err := p.checkRect(x, y, w, h); err != nil {
		return err
	}
	for r := 0; r < h; r++ {
		row := p.row(x, y+r, w)
		for i := range row {
			row[i] = v
		}
	}
	return nil
}

// At returns the sample at (x, y).
func (p Plane) At(x, y int) (byte, error) {
	if err := p.checkRect(x, y, 1, 1); err != nil {
		return 0, err
	}
	return p.Pix[y*p.Width+x], nil
}

// CopyRect copies the w×h rectangle at (sx, sy) in src to (dx, dy) in p.
func (p Plane) CopyRect(dx, dy int, src Plane, sx, sy, w, h int) error {
	if err := src.checkRect(sx, sy, w, h); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := p.checkRect(dx, dy, w, h); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	for r := 0; r < h; r++ {
		copy(p.row(dx, dy+r, w), src.row(sx, sy+r, w))
	}
	return nil
}

// SSD returns the sum of squared differences between the w×h rectangles at
// (x, y) in p and o.
func (p Plane) SSD(o Plane, x, y, w, h int) (uint64, error) {
	if err := p.checkRect(x, y, w, h); err != nil {
		return 0, err
	}
	if err := o.checkRect(x, y, w, h); err != nil {
		return 0, err
	}
	var sum uint64
	for r := 0; r < h; r++ {
		a := p.row(x, y+r, w)
		b := o.row(x, y+r, w)
		for i := range a {
			d := int(a[i]) - int(b[i])
			sum += uint64(d * d)
		}
	}
	return sum, nil
}

// CopyBlock copies one codec block, its 16×16 luma samples and the matching
// 8×8 Cb and Cr samples, from block (sx, sy) of src to block (dx, dy) of dst.
// Coordinates are in block units.
func CopyBlock(dst *Frame, dx, dy int, src *Frame, sx, sy int) error {
	const (
		b = limits.BlockSize
		c = limits.ChromaBlockSize
	)
	if err := dst.Luma().CopyRect(dx*b, dy*b, src.Luma(), sx*b, sy*b, b, b); err != nil {
		return fmt.Errorf("luma: %w", err)
	}
	if err := dst.Cb().CopyRect(dx*c, dy*c, src.Cb(), sx*c, sy*c, c, c); err != nil {
		return fmt.Errorf("cb: %w", err)
	}
	if err := dst.Cr().CopyRect(dx*c, dy*c, src.Cr(), sx*c, sy*c, c, c); err != nil {
		return fmt.Errorf("cr: %w", err)
	}
	return nil
}

// FillBlock paints block (bx, by) of f with a flat colour.
func FillBlock(f *Frame, bx, by int, y, u, v byte) error {
	const (
		b = limits.BlockSize
		c = limits.ChromaBlockSize
	)
	if err := f.Luma().FillRect(bx*b, by*b, b, b, y); err != nil {
		return err
	}
	if err := f.Cb().FillRect(bx*c, by*c, c, c, u); err != nil {
		return err
	}
	return f.Cr().FillRect(bx*c, by*c, c, c, v)
}

// BlockSSD returns the luma sum of squared differences of block (bx, by)
// between two frames. Chroma does not take part in the measure.
func BlockSSD(a, b *Frame, bx, by int) (uint64, error) {
	const s = limits.BlockSize
	return a.Luma().SSD(b.Luma(), bx*s, by*s, s, s)
}
