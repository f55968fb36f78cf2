package smoke

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/smokecodec/imagecodec"
	"github.com/opd-ai/smokecodec/video"
)

var errInjected = errors.New("injected failure")

// grayFrame returns a frame with every luma sample set to y and neutral chroma.
func grayFrame(w, h int, y byte) *video.Frame {
	f := video.NewFrame(w, h)
	f.Fill(y, 128, 128)
	return f
}

// paintBlock sets the luma of block (bx, by) to y.
func paintBlock(t *testing.T, f *video.Frame, bx, by int, y byte) {
	t.Helper()
	require.NoError(t, f.Luma().FillRect(bx*16, by*16, 16, 16, y))
}

// blockLuma returns a copy of the 256 luma samples of block (bx, by).
func blockLuma(f *video.Frame, bx, by int) []byte {
	out := make([]byte, 0, 256)
	for y := 0; y < 16; y++ {
		off := (by*16+y)*f.Width + bx*16
		out = append(out, f.Y[off:off+16]...)
	}
	return out
}

// maxAbsDiff returns the largest per-sample difference between a and b.
func maxAbsDiff(a, b []byte) int {
	worst := 0
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		worst = max(worst, d)
	}
	return worst
}

// setJPEGSize rewrites the dimensions in the SOF0 segment of a JPEG image.
func setJPEGSize(t *testing.T, data []byte, width, height int) {
	t.Helper()
	for i := 2; i+9 <= len(data); {
		require.Equal(t, byte(0xff), data[i], "marker expected at %d", i)
		if data[i+1] == 0xc0 {
			binary.BigEndian.PutUint16(data[i+5:], uint16(height))
			binary.BigEndian.PutUint16(data[i+7:], uint16(width))
			return
		}
		i += 2 + int(binary.BigEndian.Uint16(data[i+2:]))
	}
	t.Fatal("no SOF0 segment")
}

// newZstdEncoder returns a lossless encoder so reconstructions can be
// compared exactly.
func newZstdEncoder(t *testing.T, w, h int, tweak func(*EncoderOptions)) *Encoder {
	t.Helper()
	codec, err := imagecodec.NewZstd()
	require.NoError(t, err)
	opts := DefaultEncoderOptions()
	opts.Compressor = codec
	if tweak != nil {
		tweak(opts)
	}
	enc, err := NewEncoder(w, h, opts)
	require.NoError(t, err)
	t.Cleanup(func() { enc.Close() })
	return enc
}

func newZstdDecoder(t *testing.T) *Decoder {
	t.Helper()
	codec, err := imagecodec.NewZstd()
	require.NoError(t, err)
	dec, err := NewDecoder(&DecoderOptions{MaxPixels: DefaultMaxPixels, Decompressor: codec})
	require.NoError(t, err)
	t.Cleanup(func() { dec.Close() })
	return dec
}

// fakeCodec wraps a real codec and can be told to fail or to substitute
// its decompressed output.
type fakeCodec struct {
	imagecodec.Codec
	compressErr   error
	decompressErr error
	decompressed  *video.Frame
	payload       []byte
	maxPixels     int
	closed        int
}

func newFakeCodec(t *testing.T) *fakeCodec {
	t.Helper()
	codec, err := imagecodec.NewZstd()
	require.NoError(t, err)
	return &fakeCodec{Codec: codec}
}

func (f *fakeCodec) Compress(frame *video.Frame, quality int) ([]byte, error) {
	if f.compressErr != nil {
		return nil, f.compressErr
	}
	if f.payload != nil {
		return f.payload, nil
	}
	return f.Codec.Compress(frame, quality)
}

func (f *fakeCodec) Decompress(data []byte, maxPixels int) (*video.Frame, error) {
	f.maxPixels = maxPixels
	if f.decompressErr != nil {
		return nil, f.decompressErr
	}
	if f.decompressed != nil {
		return f.decompressed, nil
	}
	return f.Codec.Decompress(data, maxPixels)
}

func (f *fakeCodec) Close() error {
	f.closed++
	return f.Codec.Close()
}
