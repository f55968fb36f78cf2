package container

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/smokecodec/smoke"
)

func TestRoundTrip(t *testing.T) {
	info := smoke.StreamInfo{Width: 64, Height: 32, FPSNum: 30, FPSDenom: 1}
	frames := []Frame{
		{Timestamp: 0, Data: []byte{0, 64, 0, 32, 1, 0, 0, 0, 0, 4, 9, 9, 9, 9}},
		{Timestamp: 33 * time.Millisecond, Data: []byte{0, 64, 0, 32, 0, 0, 0, 0, 0, 0}},
		{Timestamp: 66 * time.Millisecond, Data: []byte{}},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader(info))
	for _, f := range frames {
		require.NoError(t, w.WriteFrame(f))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, uint64(3), w.Frames())
	assert.Equal(t, smoke.StreamInfoSize+3*recordHeaderSize+14+10, buf.Len())

	r := NewReader(&buf)
	got, err := r.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, info, got)

	for i, want := range frames {
		f, err := r.ReadFrame()
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, want.Timestamp, f.Timestamp)
		assert.Equal(t, want.Data, f.Data)
	}
	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecordLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader(smoke.StreamInfo{Width: 16, Height: 16, FPSNum: 1, FPSDenom: 1}))
	require.NoError(t, w.WriteFrame(Frame{Timestamp: time.Second, Data: []byte{0xAB}}))
	require.NoError(t, w.Flush())

	record := buf.Bytes()[smoke.StreamInfoSize:]
	assert.Equal(t, []byte{
		0, 0, 0, 1,
		0, 0, 0, 0, 0x3B, 0x9A, 0xCA, 0x00,
		0xAB,
	}, record)
}

func TestWriterErrors(t *testing.T) {
	w := NewWriter(io.Discard)
	assert.ErrorIs(t, w.WriteFrame(Frame{Data: []byte{1}}), ErrNoHeader)
	require.NoError(t, w.WriteHeader(smoke.StreamInfo{}))
	assert.ErrorIs(t, w.WriteHeader(smoke.StreamInfo{}), ErrHeaderWritten)
	assert.ErrorIs(t, w.WriteFrame(Frame{Data: make([]byte, MaxFrameSize+1)}), ErrFrameTooLarge)
}

func TestReaderErrors(t *testing.T) {
	header := smoke.StreamInfo{Width: 16, Height: 16, FPSNum: 1, FPSDenom: 1}.Marshal()

	t.Run("frame before header", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(header)).ReadFrame()
		assert.ErrorIs(t, err, ErrNoHeader)
	})

	t.Run("bad header", func(t *testing.T) {
		bad := append([]byte(nil), header...)
		bad[1] = 'S'
		_, err := NewReader(bytes.NewReader(bad)).ReadHeader()
		assert.ErrorIs(t, err, smoke.ErrMalformedHeader)
	})

	t.Run("short header", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(header[:7])).ReadHeader()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	tests := []struct {
		name   string
		record []byte
		target error
	}{
		{"truncated prefix", []byte{0, 0, 0}, io.ErrUnexpectedEOF},
		{"truncated data", []byte{0, 0, 0, 4, 0, 0, 0, 0, 0, 0, 0, 0, 1, 2}, io.ErrUnexpectedEOF},
		{"oversized", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0, 0, 0, 0, 0}, ErrFrameTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(bytes.NewReader(append(append([]byte(nil), header...), tt.record...)))
			_, err := r.ReadHeader()
			require.NoError(t, err)
			_, err = r.ReadFrame()
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.smk")
	info := smoke.StreamInfo{Width: 32, Height: 32, FPSNum: 25, FPSDenom: 1}

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader(info))
	require.NoError(t, w.WriteFrame(Frame{Timestamp: 40 * time.Millisecond, Data: []byte{1, 2, 3}}))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, info, got)
	f, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, f.Data)
	assert.Equal(t, 40*time.Millisecond, f.Timestamp)

	_, err = Open(filepath.Join(t.TempDir(), "missing.smk"))
	assert.Error(t, err)
}
