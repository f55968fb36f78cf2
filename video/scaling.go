// Package video provides video scaling capabilities for the smoke host pipeline.
//
// This file implements frame scaling to resize YUV420 frames between
// resolutions, used to bring arbitrary capture sizes onto the block-aligned
// canvas the codec requires.
package video

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"github.com/opd-ai/smokecodec/limits"
)

// Scaler provides video frame scaling functionality.
//
// Each plane is resampled independently with the configured interpolator,
// which keeps the YUV420 structure intact.
type Scaler struct {
	interpolator draw.Interpolator
}

// NewScaler creates a new video frame scaler using bilinear interpolation.
func NewScaler() *Scaler {
	return &Scaler{interpolator: draw.BiLinear}
}

// NewScalerWithInterpolator creates a scaler with a specific resampling kernel,
// for example draw.CatmullRom for higher quality or draw.NearestNeighbor for speed.
func NewScalerWithInterpolator(interp draw.Interpolator) *Scaler {
	if interp == nil {
		interp = draw.BiLinear
	}
	return &Scaler{interpolator: interp}
}

// Scale resizes a YUV420 video frame to the specified dimensions.
//
// Parameters:
//   - frame: Source video frame to scale
//   - targetWidth: Target width (must be even and >= 16)
//   - targetHeight: Target height (must be even and >= 16)
//
// Returns:
//   - *Frame: Scaled video frame in YUV420 format
//   - error: Any error that occurred during scaling
func (s *Scaler) Scale(frame *Frame, targetWidth, targetHeight int) (*Frame, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("source frame: %w", err)
	}

	if targetWidth <= 0 || targetHeight <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrFrameDimensions, targetWidth, targetHeight)
	}
	if targetWidth%2 != 0 || targetHeight%2 != 0 {
		return nil, fmt.Errorf("%w: target dimensions must be even for YUV420: %dx%d",
			ErrFrameDimensions, targetWidth, targetHeight)
	}
	if targetWidth < limits.BlockSize || targetHeight < limits.BlockSize {
		return nil, fmt.Errorf("%w: target %dx%d too small (minimum 16x16)",
			ErrFrameDimensions, targetWidth, targetHeight)
	}

	if frame.Width == targetWidth && frame.Height == targetHeight {
		return frame.Clone(), nil
	}

	logrus.WithFields(logrus.Fields{
		"function":      "Scaler.Scale",
		"source_width":  frame.Width,
		"source_height": frame.Height,
		"target_width":  targetWidth,
		"target_height": targetHeight,
	}).Debug("Scaling video frame")

	result := NewFrame(targetWidth, targetHeight)
	s.scalePlane(result.Luma(), frame.Luma())
	s.scalePlane(result.Cb(), frame.Cb())
	s.scalePlane(result.Cr(), frame.Cr())

	return result, nil
}

// scalePlane resamples src onto the full extent of dst.
func (s *Scaler) scalePlane(dst, src Plane) {
	srcImg := planeImage(src)
	dstImg := planeImage(dst)
	s.interpolator.Scale(dstImg, dstImg.Bounds(), srcImg, srcImg.Bounds(), draw.Src, nil)
}

// planeImage wraps a plane as a single-channel image without copying.
func planeImage(p Plane) *image.Gray {
	return &image.Gray{
		Pix:    p.Pix,
		Stride: p.Width,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}
}

// GetScaleFactors calculates the scaling factors for given dimensions.
func (s *Scaler) GetScaleFactors(srcWidth, srcHeight, dstWidth, dstHeight int) (xFactor, yFactor float64) {
	xFactor = float64(dstWidth) / float64(srcWidth)
	yFactor = float64(dstHeight) / float64(srcHeight)
	return
}

// IsScalingRequired checks if scaling is needed for given dimensions.
func (s *Scaler) IsScalingRequired(srcWidth, srcHeight, dstWidth, dstHeight int) bool {
	return srcWidth != dstWidth || srcHeight != dstHeight
}

// AlignDimensions rounds width and height up to the next multiple of the
// codec block size.
func AlignDimensions(width, height int) (int, int) {
	align := func(v int) int {
		return (v + limits.BlockSize - 1) / limits.BlockSize * limits.BlockSize
	}
	return align(width), align(height)
}
