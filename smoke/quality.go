package smoke

// keyframeQualityPercent scales MaxQuality for keyframes, which code every
// block and would otherwise dominate the bitrate.
const keyframeQualityPercent = 60

// SelectQuality returns the compressor quality for a frame.
//
// Keyframes use 60% of maxQuality. Delta frames interpolate linearly from
// maxQuality (nothing changed) towards minQuality (everything changed), so
// larger updates are compressed harder.
//
// The delta formula requires changed < total. DetectChanges guarantees that
// by promoting all-changed frames to keyframes, and that promotion must run
// before quality is chosen; a delta frame that violates it gets minQuality.
func SelectQuality(keyframe bool, changed, total, minQuality, maxQuality int) int {
	var q int
	switch {
	case keyframe:
		q = maxQuality * keyframeQualityPercent / 100
	case total <= 0:
		q = maxQuality
	case changed >= total:
		q = minQuality
	default:
		q = maxQuality - (maxQuality-minQuality)*changed/total
	}

	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}
