package smoke

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderMarshalLayout(t *testing.T) {
	h := &Header{
		Width:       64,
		Height:      32,
		PayloadSize: 8,
		Indices:     []uint16{1, 6},
	}
	buf := make([]byte, h.Size()+int(h.PayloadSize))
	n, err := h.MarshalTo(buf)
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	assert.Equal(t, []byte{
		0x00, 0x40, // width
		0x00, 0x20, // height
		0x00,       // flags
		0x00,       // reserved
		0x00, 0x02, // blockCount
		0x00, 0x08, // payloadSize
		0x00, 0x01,
		0x00, 0x06,
	}, buf[:n])
}

func TestHeaderKeyframeLayout(t *testing.T) {
	h := &Header{Width: 32, Height: 16, Flags: FlagKeyframe, PayloadSize: 12}
	buf := make([]byte, HeaderSize)
	_, err := h.MarshalTo(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(1), buf[4])
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(buf[6:8]))
}

func TestHeaderMarshalErrors(t *testing.T) {
	tests := []struct {
		name   string
		header *Header
		buf    int
		target error
	}{
		{"short buffer", &Header{Width: 16, Height: 16, Indices: []uint16{0}}, 11, ErrBufferTooSmall},
		{"keyframe with indices", &Header{Width: 32, Height: 16, Flags: FlagKeyframe, Indices: []uint16{0}}, 12, ErrMalformedHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.header.MarshalTo(make([]byte, tt.buf))
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestParseHeaderRoundTrip(t *testing.T) {
	h := &Header{Width: 64, Height: 32, PayloadSize: 4, Indices: []uint16{0, 7}}
	buf := make([]byte, h.Size()+4)
	_, err := h.MarshalTo(buf)
	require.NoError(t, err)
	copy(buf[h.Size():], []byte{1, 2, 3, 4})

	parsed, payload, err := ParseHeader(append(buf, 0xAA, 0xBB))
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
	assert.Equal(t, []byte{1, 2, 3, 4}, payload)
}

// rawHeader builds a header with arbitrary field values.
func rawHeader(w, h uint16, flags, reserved byte, count, payload uint16) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:], w)
	binary.BigEndian.PutUint16(buf[2:], h)
	buf[4] = flags
	buf[5] = reserved
	binary.BigEndian.PutUint16(buf[6:], count)
	binary.BigEndian.PutUint16(buf[8:], payload)
	return buf
}

func TestParseHeaderRejectsMalformed(t *testing.T) {
	withIndices := func(b []byte, idx ...uint16) []byte {
		for _, i := range idx {
			b = binary.BigEndian.AppendUint16(b, i)
		}
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", make([]byte, 9)},
		{"reserved set", rawHeader(64, 32, 0, 1, 0, 0)},
		{"zero width", rawHeader(0, 32, 0, 0, 0, 0)},
		{"unaligned height", rawHeader(64, 30, 0, 0, 0, 0)},
		{"keyframe with count", append(rawHeader(64, 32, 1, 0, 1, 4), make([]byte, 6)...)},
		{"keyframe without payload", rawHeader(64, 32, 1, 0, 0, 0)},
		{"count exceeds blocks", withIndices(rawHeader(16, 16, 0, 0, 2, 4), 0, 0)},
		{"blocks without payload", withIndices(rawHeader(64, 32, 0, 0, 1, 0), 0)},
		{"index list truncated", rawHeader(64, 32, 0, 0, 2, 4)},
		{"index out of range", append(withIndices(rawHeader(64, 32, 0, 0, 1, 4), 8), 0, 0, 0, 0)},
		{"payload truncated", append(withIndices(rawHeader(64, 32, 0, 0, 1, 8), 3), 0, 0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseHeader(tt.data)
			assert.ErrorIs(t, err, ErrMalformedHeader)
		})
	}
}

func TestParseHeaderEmptyFrame(t *testing.T) {
	h, payload, err := ParseHeader(rawHeader(64, 32, 0, 0, 0, 0))
	require.NoError(t, err)
	assert.False(t, h.Keyframe())
	assert.Zero(t, h.BlockCount())
	assert.Empty(t, payload)
}
