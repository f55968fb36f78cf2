package smoke

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/smokecodec/limits"
)

// HeaderSize is the fixed part of a frame header, before the index list.
const HeaderSize = 10

// Flags is the frame flag byte.
type Flags uint8

// FlagKeyframe marks a frame in which every block is coded.
const FlagKeyframe Flags = 1 << 0

// Header describes one encoded frame.
//
// Wire layout, big-endian:
//
//	offset 0  u16 width
//	offset 2  u16 height
//	offset 4  u8  flags        (bit0 = KEYFRAME)
//	offset 5  u8  reserved     (always 0)
//	offset 6  u16 blockCount   (0 when KEYFRAME)
//	offset 8  u16 payloadSize  (rounded up to 4 bytes)
//	offset 10 blockCount × u16 block indices
//	then payloadSize bytes of compressed canvas
type Header struct {
	Width       uint16
	Height      uint16
	Flags       Flags
	PayloadSize uint16
	// Indices lists the coded blocks of a delta frame in canvas order. Its
	// length is the blockCount field; it is empty for keyframes.
	Indices []uint16
}

// Keyframe reports whether the KEYFRAME flag is set.
func (h *Header) Keyframe() bool {
	return h.Flags&FlagKeyframe != 0
}

// BlockCount returns the blockCount field.
func (h *Header) BlockCount() int {
	return len(h.Indices)
}

// Size returns the encoded header length including the index list.
func (h *Header) Size() int {
	return HeaderSize + 2*len(h.Indices)
}

// MarshalTo writes the header into dst and returns the number of bytes written.
func (h *Header) MarshalTo(dst []byte) (int, error) {
	n := h.Size()
	if len(dst) < n {
		return 0, fmt.Errorf("%w: header needs %d bytes, have %d", ErrBufferTooSmall, n, len(dst))
	}
	if h.Keyframe() && len(h.Indices) > 0 {
		return 0, fmt.Errorf("%w: keyframe with %d block indices", ErrMalformedHeader, len(h.Indices))
	}
	if len(h.Indices) > 0xFFFF {
		return 0, fmt.Errorf("%w: %d block indices", ErrMalformedHeader, len(h.Indices))
	}

	binary.BigEndian.PutUint16(dst[0:2], h.Width)
	binary.BigEndian.PutUint16(dst[2:4], h.Height)
	dst[4] = byte(h.Flags)
	dst[5] = 0
	binary.BigEndian.PutUint16(dst[6:8], uint16(len(h.Indices)))
	binary.BigEndian.PutUint16(dst[8:10], h.PayloadSize)
	for i, idx := range h.Indices {
		binary.BigEndian.PutUint16(dst[HeaderSize+2*i:], idx)
	}
	return n, nil
}

// ParseHeader decodes the header at the start of data and returns it with
// the payload slice it describes.
//
// Parsing is strict: any truncation, a nonzero reserved byte, a keyframe
// with block indices, unaligned dimensions, more indices than blocks, an
// index outside the frame, or coded blocks with no payload is
// reported as ErrMalformedHeader.
func ParseHeader(data []byte) (*Header, []byte, error) {
	if len(data) < HeaderSize {
		return nil, nil, fmt.Errorf("%w: data too short: %d bytes", ErrMalformedHeader, len(data))
	}

	h := &Header{
		Width:       binary.BigEndian.Uint16(data[0:2]),
		Height:      binary.BigEndian.Uint16(data[2:4]),
		Flags:       Flags(data[4]),
		PayloadSize: binary.BigEndian.Uint16(data[8:10]),
	}
	if data[5] != 0 {
		return nil, nil, fmt.Errorf("%w: reserved byte is 0x%02x", ErrMalformedHeader, data[5])
	}
	if err := limits.ValidateDimensions(int(h.Width), int(h.Height)); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}

	blockCount := int(binary.BigEndian.Uint16(data[6:8]))
	if h.Keyframe() && blockCount != 0 {
		return nil, nil, fmt.Errorf("%w: keyframe declares %d blocks", ErrMalformedHeader, blockCount)
	}

	total := int(h.Width/limits.BlockSize) * int(h.Height/limits.BlockSize)
	if blockCount > total {
		return nil, nil, fmt.Errorf("%w: block count %d exceeds %d blocks", ErrMalformedHeader, blockCount, total)
	}
	if (h.Keyframe() || blockCount > 0) && h.PayloadSize == 0 {
		return nil, nil, fmt.Errorf("%w: coded blocks without payload", ErrMalformedHeader)
	}

	end := HeaderSize + 2*blockCount
	if len(data) < end {
		return nil, nil, fmt.Errorf("%w: index list truncated: need %d bytes, have %d",
			ErrMalformedHeader, end, len(data))
	}
	if blockCount > 0 {
		h.Indices = make([]uint16, blockCount)
		for i := range h.Indices {
			idx := binary.BigEndian.Uint16(data[HeaderSize+2*i:])
			if int(idx) >= total {
				return nil, nil, fmt.Errorf("%w: block index %d outside %d blocks", ErrMalformedHeader, idx, total)
			}
			h.Indices[i] = idx
		}
	}

	payloadEnd := end + int(h.PayloadSize)
	if len(data) < payloadEnd {
		return nil, nil, fmt.Errorf("%w: payload truncated: need %d bytes, have %d",
			ErrMalformedHeader, payloadEnd, len(data))
	}
	return h, data[end:payloadEnd], nil
}
