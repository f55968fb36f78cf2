// Package smoke implements the smoke video codec: an intra-only,
// block-change codec for low-motion content such as screen capture.
//
// Frames are split into 16×16 blocks. The encoder compares each block's
// luma against a persistent reference frame and codes only those whose sum
// of squared differences reaches a threshold. Changed blocks are packed
// into one near-square canvas and compressed as a single image; a header
// lists which frame block each canvas cell belongs to.
//
// # Encoding
//
//	enc, err := smoke.NewEncoder(640, 480, nil)
//	if err != nil {
//		return err
//	}
//	defer enc.Close()
//
//	data, err := enc.Encode(frame)
//
// The first frame, frames after ForceKeyframe, and every KeyframeInterval-th
// frame are keyframes. A frame with no visible change encodes to a bare
// 10-byte header.
//
// # Decoding
//
//	dec, err := smoke.NewDecoder(nil)
//	if err != nil {
//		return err
//	}
//	defer dec.Close()
//
//	frame, err := dec.Decode(data)
//
// The decoder follows dimension changes announced in frame headers. A
// frame that fails to decompress leaves its reference untouched.
//
// # Stream ID
//
// StreamInfo is the 20-byte packet that announces dimensions and frame rate
// at the start of a stream.
package smoke
