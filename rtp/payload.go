package rtp

import (
	"errors"
	"fmt"
)

// DescriptorSize is the length of the smoke payload descriptor.
const DescriptorSize = 1

// Descriptor bits.
const (
	descriptorStart    = 0x80
	descriptorKeyframe = 0x40
)

// smokeFlagsOffset locates the flags byte in a smoke frame header.
const smokeFlagsOffset = 4

var (
	// ErrEmptyFrame indicates an attempt to packetize an empty frame.
	ErrEmptyFrame = errors.New("frame data cannot be empty")

	// ErrShortPayload indicates an RTP payload without room for the descriptor.
	ErrShortPayload = errors.New("payload too short")

	// ErrUnexpectedSSRC indicates a packet from a source other than the one
	// the assembler locked onto.
	ErrUnexpectedSSRC = errors.New("unexpected SSRC")

	// ErrInvalidConfig indicates packetizer settings out of range.
	ErrInvalidConfig = errors.New("invalid packetizer config")
)

// Payloader splits smoke frames into RTP payloads. It implements the
// github.com/pion/rtp Payloader interface.
type Payloader struct{}

// Payload fragments frame into payloads of at most mtu bytes, each prefixed
// with a descriptor. It returns nil when frame is empty or mtu leaves no
// room for data.
func (Payloader) Payload(mtu uint16, frame []byte) [][]byte {
	if len(frame) == 0 || int(mtu) <= DescriptorSize {
		return nil
	}

	var flags byte
	if isKeyframe(frame) {
		flags |= descriptorKeyframe
	}

	chunk := int(mtu) - DescriptorSize
	payloads := make([][]byte, 0, (len(frame)+chunk-1)/chunk)
	for start := 0; start < len(frame); start += chunk {
		end := min(start+chunk, len(frame))

		out := make([]byte, DescriptorSize+end-start)
		out[0] = flags
		if start == 0 {
			out[0] |= descriptorStart
		}
		copy(out[DescriptorSize:], frame[start:end])
		payloads = append(payloads, out)
	}
	return payloads
}

// isKeyframe reports whether frame starts with a smoke header carrying the
// KEYFRAME flag.
func isKeyframe(frame []byte) bool {
	return len(frame) > smokeFlagsOffset && frame[smokeFlagsOffset]&0x01 != 0
}

// Depacketizer strips the smoke payload descriptor. It implements the
// github.com/pion/rtp Depacketizer interface.
type Depacketizer struct {
	// Keyframe reports the K bit of the last unmarshalled payload.
	Keyframe bool
}

// Unmarshal returns the frame data carried by payload.
func (d *Depacketizer) Unmarshal(payload []byte) ([]byte, error) {
	if len(payload) < DescriptorSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortPayload, len(payload))
	}
	d.Keyframe = payload[0]&descriptorKeyframe != 0
	return payload[DescriptorSize:], nil
}

// IsPartitionHead reports whether payload holds the first byte of a frame.
func (d *Depacketizer) IsPartitionHead(payload []byte) bool {
	return len(payload) >= DescriptorSize && payload[0]&descriptorStart != 0
}

// IsPartitionTail reports whether payload ends a frame, which the RTP
// marker bit signals.
func (d *Depacketizer) IsPartitionTail(marker bool, _ []byte) bool {
	return marker
}
