package imagecodec

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/smokecodec/video"
)

const (
	// zstdLengthSize is the big-endian u32 prefix holding the zstd frame
	// length, so trailing alignment padding is never fed to the decoder.
	zstdLengthSize = 4
	// zstdDimSize is the u16 width + u16 height stored inside the frame.
	zstdDimSize = 4
	// zstdMaxDecoded bounds decoder memory to the largest image the format
	// can describe.
	zstdMaxDecoded = zstdDimSize + (1<<16-1)*(1<<16-1)*3/2
)

// Zstd is a lossless codec storing raw planes in a zstd frame.
//
// It ignores quality and reproduces its input exactly, which makes encoder
// and decoder references bit-identical without reference decoding.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
	buf []byte
}

// NewZstd creates a zstd codec owning one encoder and one decoder.
func NewZstd() (*Zstd, error) {
	enc, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithLowerEncoderMem(true),
		zstd.WithSingleSegment(true),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(
		nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
		zstd.WithDecoderMaxMemory(zstdMaxDecoded),
		zstd.WithDecodeAllCapLimit(true),
	)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

// Compress stores frame losslessly; quality is ignored.
func (z *Zstd) Compress(frame *video.Frame, quality int) ([]byte, error) {
	if z.enc == nil {
		return nil, ErrCodecClosed
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if frame.Width > z.MaxWidth() || frame.Height > z.MaxWidth() {
		return nil, fmt.Errorf("zstd: image %dx%d exceeds %d", frame.Width, frame.Height, z.MaxWidth())
	}

	ySize := frame.Width * frame.Height
	cSize := ySize / 4

	raw := z.buf[:0]
	raw = binary.BigEndian.AppendUint16(raw, uint16(frame.Width))
	raw = binary.BigEndian.AppendUint16(raw, uint16(frame.Height))
	raw = append(raw, frame.Y[:ySize]...)
	raw = append(raw, frame.U[:cSize]...)
	raw = append(raw, frame.V[:cSize]...)
	z.buf = raw

	out := make([]byte, zstdLengthSize, zstdLengthSize+len(raw)/2)
	out = z.enc.EncodeAll(raw, out)
	binary.BigEndian.PutUint32(out, uint32(len(out)-zstdLengthSize))

	logrus.WithFields(logrus.Fields{
		"function": "Zstd.Compress",
		"width":    frame.Width,
		"height":   frame.Height,
		"raw_size": len(raw),
		"size":     len(out),
	}).Debug("Compressed image")

	return out, nil
}

// Decompress restores a frame written by Compress. Bytes after the zstd
// frame are ignored.
//
// Compress always records the frame content size, so the decoded size is
// known, and checked against maxPixels, before the output is allocated.
// DecodeAll is capped to that size.
func (z *Zstd) Decompress(data []byte, maxPixels int) (*video.Frame, error) {
	if z.dec == nil {
		return nil, ErrCodecClosed
	}
	if len(data) < zstdLengthSize {
		return nil, fmt.Errorf("%w: zstd data too short: %d bytes", ErrCorruptImage, len(data))
	}
	n := int(binary.BigEndian.Uint32(data))
	if n > len(data)-zstdLengthSize {
		return nil, fmt.Errorf("%w: zstd frame length %d exceeds %d available bytes",
			ErrCorruptImage, n, len(data)-zstdLengthSize)
	}
	compressed := data[zstdLengthSize : zstdLengthSize+n]

	size, err := z.contentSize(compressed, maxPixels)
	if err != nil {
		return nil, err
	}
	dst := z.buf
	if cap(dst) < size {
		dst = make([]byte, 0, size)
	}

	raw, err := z.dec.DecodeAll(compressed, dst[:0:size])
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decode: %v", ErrCorruptImage, err)
	}
	z.buf = raw

	if len(raw) < zstdDimSize {
		return nil, fmt.Errorf("%w: missing image dimensions", ErrCorruptImage)
	}
	w := int(binary.BigEndian.Uint16(raw[0:2]))
	h := int(binary.BigEndian.Uint16(raw[2:4]))
	if w == 0 || h == 0 || w%2 != 0 || h%2 != 0 {
		return nil, fmt.Errorf("%w: bad image size %dx%d", ErrCorruptImage, w, h)
	}

	ySize := w * h
	cSize := ySize / 4
	if len(raw) != zstdDimSize+ySize+2*cSize {
		return nil, fmt.Errorf("%w: expected %d plane bytes, got %d",
			ErrCorruptImage, ySize+2*cSize, len(raw)-zstdDimSize)
	}

	frame := video.NewFrame(w, h)
	planes := raw[zstdDimSize:]
	copy(frame.Y, planes[:ySize])
	copy(frame.U, planes[ySize:ySize+cSize])
	copy(frame.V, planes[ySize+cSize:])
	return frame, nil
}

// contentSize reads the decoded size from the zstd frame header and bounds
// it by the largest image maxPixels allows.
func (z *Zstd) contentSize(compressed []byte, maxPixels int) (int, error) {
	var hdr zstd.Header
	if err := hdr.Decode(compressed); err != nil {
		return 0, fmt.Errorf("%w: zstd header: %v", ErrCorruptImage, err)
	}
	if !hdr.HasFCS {
		return 0, fmt.Errorf("%w: zstd frame has no content size", ErrCorruptImage)
	}

	limit := uint64(zstdMaxDecoded)
	if maxPixels > 0 {
		limit = min(limit, uint64(zstdDimSize+maxPixels*3/2))
	}
	if hdr.FrameContentSize > limit {
		return 0, fmt.Errorf("%w: zstd content size %d exceeds %d bytes",
			ErrImageTooLarge, hdr.FrameContentSize, limit)
	}
	return int(hdr.FrameContentSize), nil
}

// MaxWidth returns the largest width storable in the u16 size field.
func (z *Zstd) MaxWidth() int {
	return 1<<16 - 1
}

// Close releases the zstd encoder and decoder.
func (z *Zstd) Close() error {
	if z.enc != nil {
		if err := z.enc.Close(); err != nil {
			return fmt.Errorf("zstd encoder close: %w", err)
		}
		z.enc = nil
	}
	if z.dec != nil {
		z.dec.Close()
		z.dec = nil
	}
	z.buf = nil
	return nil
}
