package smoke

import "math"

// FindBestSize chooses a near-square grid of blocks, w wide and h high, able
// to hold n blocks with as little waste (w*h - n) as possible.
//
// The scan starts at w = ceil(sqrt(n)) and widens one column at a time,
// taking the smallest h that still fits. It stops at zero waste or when w
// reaches maxWidth; among equal waste the narrowest grid wins. A maxWidth of
// zero or less means unbounded. The result always satisfies
// w*h >= n and w*h-n < w.
func FindBestSize(n, maxWidth int) (w, h int) {
	if n <= 1 {
		return 1, 1
	}
	if maxWidth <= 0 || maxWidth > n {
		maxWidth = n
	}

	w = int(math.Sqrt(float64(n)))
	for w*w < n {
		w++
	}
	if w > maxWidth {
		w = maxWidth
	}
	h = ceilDiv(n, w)

	bestW, bestH, best := w, h, w*h-n
	for best > 0 && w < maxWidth {
		w++
		h = ceilDiv(n, w)
		if waste := w*h - n; waste < best {
			bestW, bestH, best = w, h, waste
		}
	}
	return bestW, bestH
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
