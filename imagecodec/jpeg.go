package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/smokecodec/video"
)

// jpegMaxDimension is the largest image edge a baseline JPEG header can carry.
const jpegMaxDimension = 1<<16 - 1

// JPEG compresses images with baseline JPEG at 4:2:0 chroma subsampling.
//
// Because JPEG MCUs are 16×16 luma pixels at 4:2:0, every codec block maps
// to exactly one MCU and blocks packed side by side never bleed into each
// other.
type JPEG struct {
	buf    bytes.Buffer
	closed bool
}

// NewJPEG creates a JPEG codec.
func NewJPEG() *JPEG {
	return &JPEG{}
}

// Compress encodes frame as a JPEG image. A quality of 0 is treated as the
// lowest quality the encoder supports.
func (j *JPEG) Compress(frame *video.Frame, quality int) ([]byte, error) {
	if j.closed {
		return nil, ErrCodecClosed
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	img := &image.YCbCr{
		Y:              frame.Y,
		Cb:             frame.U,
		Cr:             frame.V,
		YStride:        frame.Width,
		CStride:        frame.Width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, frame.Width, frame.Height),
	}

	j.buf.Reset()
	if err := jpeg.Encode(&j.buf, img, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "JPEG.Compress",
		"width":    frame.Width,
		"height":   frame.Height,
		"quality":  quality,
		"size":     j.buf.Len(),
	}).Debug("Compressed image")

	return append([]byte(nil), j.buf.Bytes()...), nil
}

// Decompress decodes a JPEG image into a planar 4:2:0 frame. Images stored
// with a different chroma layout are converted. The SOF dimensions are
// checked against maxPixels before any scan data is decoded.
func (j *JPEG) Decompress(data []byte, maxPixels int) (*video.Frame, error) {
	if j.closed {
		return nil, ErrCodecClosed
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: jpeg header: %v", ErrCorruptImage, err)
	}
	if err := checkArea(cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, err
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: jpeg decode: %v", ErrCorruptImage, err)
	}

	b := img.Bounds()
	if b.Dx()%2 != 0 || b.Dy()%2 != 0 || b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: odd image size %dx%d", ErrCorruptImage, b.Dx(), b.Dy())
	}

	if m, ok := img.(*image.YCbCr); ok && m.SubsampleRatio == image.YCbCrSubsampleRatio420 {
		return ycbcr420ToFrame(m), nil
	}
	return convertToFrame(img), nil
}

// MaxWidth returns the JPEG dimension limit.
func (j *JPEG) MaxWidth() int {
	return jpegMaxDimension
}

// Close releases the codec. Further calls fail with ErrCodecClosed.
func (j *JPEG) Close() error {
	j.closed = true
	j.buf = bytes.Buffer{}
	return nil
}

// ycbcr420ToFrame copies the planes row by row, since the decoder pads
// strides to whole MCUs.
func ycbcr420ToFrame(m *image.YCbCr) *video.Frame {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	frame := video.NewFrame(w, h)

	for y := 0; y < h; y++ {
		off := m.YOffset(b.Min.X, b.Min.Y+y)
		copy(frame.Y[y*w:(y+1)*w], m.Y[off:off+w])
	}
	cw, ch := w/2, h/2
	for y := 0; y < ch; y++ {
		off := m.COffset(b.Min.X, b.Min.Y+2*y)
		copy(frame.U[y*cw:(y+1)*cw], m.Cb[off:off+cw])
		copy(frame.V[y*cw:(y+1)*cw], m.Cr[off:off+cw])
	}
	return frame
}

// convertToFrame converts any image to 4:2:0 by averaging each 2×2 chroma
// neighbourhood.
func convertToFrame(img image.Image) *video.Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	frame := video.NewFrame(w, h)
	cw := w / 2

	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x += 2 {
			var cb, cr int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					c := color.YCbCrModel.Convert(img.At(b.Min.X+x+dx, b.Min.Y+y+dy)).(color.YCbCr)
					frame.Y[(y+dy)*w+x+dx] = c.Y
					cb += int(c.Cb)
					cr += int(c.Cr)
				}
			}
			frame.U[(y/2)*cw+x/2] = byte((cb + 2) / 4)
			frame.V[(y/2)*cw+x/2] = byte((cr + 2) / 4)
		}
	}
	return frame
}
