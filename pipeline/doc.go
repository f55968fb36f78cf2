// Package pipeline connects raw frames to the network through the smoke
// codec.
//
// The processing pipeline:
//
//	YUV420 Input → Scaling → Smoke Encoding → RTP Packetization
//	YUV420 Output ← Smoke Decoding ← Frame Assembly ← RTP Depacketization
//
// A Processor owns one encoder and one decoder so a single value can serve
// both directions of a call. After packet loss the receiving side drops
// delta frames until the next keyframe, since deltas only make sense
// against the picture they were coded from; call ForceKeyframe on the
// sending side when the remote end reports loss.
package pipeline
