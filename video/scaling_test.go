package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

func TestScalerScale(t *testing.T) {
	scaler := NewScaler()

	tests := []struct {
		name         string
		frame        *Frame
		targetWidth  int
		targetHeight int
		expectErr    bool
	}{
		{name: "downscale", frame: NewFrame(64, 48), targetWidth: 32, targetHeight: 32},
		{name: "upscale", frame: NewFrame(32, 32), targetWidth: 64, targetHeight: 48},
		{name: "same_size", frame: NewFrame(32, 32), targetWidth: 32, targetHeight: 32},
		{name: "nil_frame", frame: nil, targetWidth: 32, targetHeight: 32, expectErr: true},
		{name: "odd_target", frame: NewFrame(32, 32), targetWidth: 33, targetHeight: 32, expectErr: true},
		{name: "too_small", frame: NewFrame(32, 32), targetWidth: 8, targetHeight: 8, expectErr: true},
		{name: "zero_target", frame: NewFrame(32, 32), targetWidth: 0, targetHeight: 32, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := scaler.Scale(tt.frame, tt.targetWidth, tt.targetHeight)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.targetWidth, result.Width)
			assert.Equal(t, tt.targetHeight, result.Height)
			assert.NoError(t, result.Validate())
		})
	}
}

func TestScalerPreservesUniformColor(t *testing.T) {
	frame := NewFrame(48, 32)
	frame.Fill(90, 60, 200)

	for _, interp := range []draw.Interpolator{draw.BiLinear, draw.NearestNeighbor, draw.CatmullRom} {
		scaled, err := NewScalerWithInterpolator(interp).Scale(frame, 64, 64)
		require.NoError(t, err)
		for i := range scaled.Y {
			require.Equal(t, byte(90), scaled.Y[i])
		}
		for i := range scaled.U {
			require.Equal(t, byte(60), scaled.U[i])
			require.Equal(t, byte(200), scaled.V[i])
		}
	}
}

func TestScalerSameSizeReturnsCopy(t *testing.T) {
	frame := NewFrame(16, 16)
	scaled, err := NewScaler().Scale(frame, 16, 16)
	require.NoError(t, err)

	scaled.Y[0] = 1
	assert.Equal(t, byte(0), frame.Y[0])
}

func TestScalerHelpers(t *testing.T) {
	scaler := NewScaler()

	x, y := scaler.GetScaleFactors(320, 240, 640, 480)
	assert.Equal(t, 2.0, x)
	assert.Equal(t, 2.0, y)

	assert.True(t, scaler.IsScalingRequired(320, 240, 320, 256))
	assert.False(t, scaler.IsScalingRequired(320, 240, 320, 240))
}

func TestAlignDimensions(t *testing.T) {
	w, h := AlignDimensions(636, 478)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	w, h = AlignDimensions(16, 1)
	assert.Equal(t, 16, w)
	assert.Equal(t, 16, h)
}
