// Package video provides planar YUV 4:2:0 frames, bounds-checked plane
// addressing and frame scaling for the smoke codec.
//
// # Video Frames
//
// Video data is represented in planar YUV420 with contiguous planes:
//
//	frame := video.NewFrame(640, 480)
//	frame.Y // 640*480 luma samples
//	frame.U // 320*240 Cb samples
//	frame.V // 320*240 Cr samples
//
// # Block Addressing
//
// The codec works on 16×16 luma blocks with matching 8×8 chroma blocks.
// Rather than computing byte offsets, callers address rectangles through
// Plane, which validates every access:
//
//	err := dst.Luma().CopyRect(dx, dy, src.Luma(), sx, sy, 16, 16)
//
// CopyBlock and BlockSSD apply the same addressing at block granularity.
//
// # Video Scaling
//
// The Scaler resizes frames plane by plane using golang.org/x/image/draw:
//
//	scaler := video.NewScaler()
//	w, h := video.AlignDimensions(636, 478) // 640x480
//	scaled, err := scaler.Scale(frame, w, h)
//
// # Thread Safety
//
// Frames are plain values and are NOT safe for concurrent mutation. The
// Scaler is stateless and may be shared.
package video
