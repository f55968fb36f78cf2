package smoke

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Stream ID packet constants.
const (
	// StreamInfoSize is the encoded length of a StreamInfo packet.
	StreamInfoSize = 20

	// StreamInfoType is the first byte of a stream ID packet.
	StreamInfoType = 0x80

	// VersionMajor and VersionMinor identify the bitstream revision.
	VersionMajor = 0
	VersionMinor = 1
)

var streamMagic = []byte("smoke")

// StreamInfo is the one-per-stream identification packet that precedes the
// frames in containers.
//
// Wire layout, big-endian:
//
//	offset 0  u8  type (0x80)
//	offset 1  "smoke"
//	offset 6  u8  major version
//	offset 7  u8  minor version
//	offset 8  u16 width
//	offset 10 u16 height
//	offset 12 u32 frame rate numerator
//	offset 16 u32 frame rate denominator
type StreamInfo struct {
	Width    uint16
	Height   uint16
	FPSNum   uint32
	FPSDenom uint32
}

// Marshal encodes the stream ID packet.
func (s StreamInfo) Marshal() []byte {
	out := make([]byte, 0, StreamInfoSize)
	out = append(out, StreamInfoType)
	out = append(out, streamMagic...)
	out = append(out, VersionMajor, VersionMinor)
	out = binary.BigEndian.AppendUint16(out, s.Width)
	out = binary.BigEndian.AppendUint16(out, s.Height)
	out = binary.BigEndian.AppendUint32(out, s.FPSNum)
	out = binary.BigEndian.AppendUint32(out, s.FPSDenom)
	return out
}

// ParseStreamInfo decodes a stream ID packet. Packets from a newer major
// version are rejected.
func ParseStreamInfo(data []byte) (StreamInfo, error) {
	if len(data) < StreamInfoSize {
		return StreamInfo{}, fmt.Errorf("%w: stream info too short: %d bytes", ErrMalformedHeader, len(data))
	}
	if data[0] != StreamInfoType || !bytes.Equal(data[1:6], streamMagic) {
		return StreamInfo{}, fmt.Errorf("%w: not a smoke stream", ErrMalformedHeader)
	}
	if data[6] != VersionMajor {
		return StreamInfo{}, fmt.Errorf("%w: unsupported version %d.%d", ErrMalformedHeader, data[6], data[7])
	}
	return StreamInfo{
		Width:    binary.BigEndian.Uint16(data[8:10]),
		Height:   binary.BigEndian.Uint16(data[10:12]),
		FPSNum:   binary.BigEndian.Uint32(data[12:16]),
		FPSDenom: binary.BigEndian.Uint32(data[16:20]),
	}, nil
}

// FrameDuration returns the nominal duration of one frame, or zero when the
// frame rate is unknown.
func (s StreamInfo) FrameDuration() time.Duration {
	if s.FPSNum == 0 {
		return 0
	}
	return time.Duration(int64(s.FPSDenom) * int64(time.Second) / int64(s.FPSNum))
}
