package smoke

import (
	"fmt"

	"github.com/opd-ai/smokecodec/video"
)

// ChangeSet is the outcome of comparing a frame against the reference.
type ChangeSet struct {
	// Changed holds the raster indices of changed blocks in ascending order.
	// It is nil for keyframes, where every block is implied.
	Changed []int
	// Keyframe is set when the frame must be coded in full.
	Keyframe bool
	// Total is the number of blocks in the frame.
	Total int
}

// EncodeCount returns the number of blocks that will be coded.
func (c ChangeSet) EncodeCount() int {
	if c.Keyframe {
		return c.Total
	}
	return len(c.Changed)
}

// DetectChanges compares cur against ref block by block.
//
// A block is changed when the sum of squared differences of its 16×16 luma
// samples is at least threshold; chroma is not measured. When force is set
// every block counts as changed and the result is a keyframe. When every
// block changed on its own merit the result is promoted to a keyframe as
// well, since an implied full set is cheaper than an exhaustive index list.
func DetectChanges(ref, cur *video.Frame, threshold uint64, force bool) (ChangeSet, error) {
	if !ref.SameSize(cur) {
		return ChangeSet{}, fmt.Errorf("%w: frame %dx%d does not match reference %dx%d",
			ErrInvalidDimensions, cur.Width, cur.Height, ref.Width, ref.Height)
	}

	bw, bh := ref.BlocksWide(), ref.BlocksHigh()
	total := bw * bh
	if force {
		return ChangeSet{Keyframe: true, Total: total}, nil
	}

	changed := make([]int, 0, total)
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			ssd, err := video.BlockSSD(ref, cur, bx, by)
			if err != nil {
				return ChangeSet{}, fmt.Errorf("%w: %w", ErrBufferTooSmall, err)
			}
			if ssd >= threshold {
				changed = append(changed, by*bw+bx)
			}
		}
	}

	if len(changed) == total {
		return ChangeSet{Keyframe: true, Total: total}, nil
	}
	return ChangeSet{Changed: changed, Total: total}, nil
}
