// Package rtp carries smoke bitstream frames over RTP using
// github.com/pion/rtp.
//
// # Payload Format
//
// Every RTP payload starts with a one-byte descriptor followed by a slice of
// the smoke frame:
//
//	 0 1 2 3 4 5 6 7
//	+-+-+-+-+-+-+-+-+
//	|S|K|  reserved |
//	+-+-+-+-+-+-+-+-+
//
// S marks the packet holding the first byte of a frame and K marks every
// packet of a keyframe. The RTP marker bit is set on the last packet of a
// frame, and all packets of a frame share one RTP timestamp on a 90 kHz
// clock.
//
// # Sending
//
//	packetizer, err := rtp.NewPacketizer(rtp.DefaultPacketizerConfig(ssrc))
//	packets := packetizer.Packetize(frame, rtp.SamplesPerFrame(30, 1))
//
// # Receiving
//
// FrameAssembler collects packets by timestamp and returns a frame once the
// start packet, the marker packet and every sequence number in between have
// arrived:
//
//	assembler := rtp.NewFrameAssembler()
//	frame, err := assembler.Push(packet)
//	if frame != nil {
//		decoder.Decode(frame.Data)
//	}
//
// Incomplete frames are dropped after StaleTimeout or when the buffer is
// full. A frame that does not directly follow the previous one is flagged
// with Discontinuity so receivers can wait for the next keyframe.
//
// # Deterministic Testing
//
// Inject a TimeProvider to control stale-frame expiry:
//
//	assembler := rtp.NewFrameAssemblerWithTimeProvider(mockTime)
package rtp
