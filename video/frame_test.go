package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrame(t *testing.T) {
	frame := NewFrame(64, 32)

	assert.Equal(t, 64, frame.Width)
	assert.Equal(t, 32, frame.Height)
	assert.Len(t, frame.Y, 64*32)
	assert.Len(t, frame.U, 32*16)
	assert.Len(t, frame.V, 32*16)
	assert.Equal(t, 4, frame.BlocksWide())
	assert.Equal(t, 2, frame.BlocksHigh())
	assert.Equal(t, 8, frame.TotalBlocks())
}

func TestNewBlackFrame(t *testing.T) {
	frame := NewBlackFrame(16, 16)

	for _, v := range frame.Y {
		require.Equal(t, byte(0), v)
	}
	for i := range frame.U {
		require.Equal(t, byte(128), frame.U[i])
		require.Equal(t, byte(128), frame.V[i])
	}
}

func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   *Frame
		wantErr error
	}{
		{name: "valid", frame: NewFrame(32, 16)},
		{name: "nil_frame", frame: nil, wantErr: ErrNilFrame},
		{name: "zero_width", frame: &Frame{Width: 0, Height: 16}, wantErr: ErrFrameDimensions},
		{name: "odd_height", frame: &Frame{Width: 16, Height: 15}, wantErr: ErrFrameDimensions},
		{
			name:    "short_y_plane",
			frame:   &Frame{Width: 16, Height: 16, Y: make([]byte, 10), U: make([]byte, 64), V: make([]byte, 64)},
			wantErr: ErrPlaneTooSmall,
		},
		{
			name:    "short_v_plane",
			frame:   &Frame{Width: 16, Height: 16, Y: make([]byte, 256), U: make([]byte, 64), V: make([]byte, 63)},
			wantErr: ErrPlaneTooSmall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFrameValidateBlockAligned(t *testing.T) {
	assert.NoError(t, NewFrame(48, 16).ValidateBlockAligned())
	assert.ErrorIs(t, NewFrame(40, 16).ValidateBlockAligned(), ErrFrameDimensions)
}

func TestFrameCloneIsIndependent(t *testing.T) {
	frame := NewFrame(16, 16)
	frame.Fill(10, 20, 30)

	clone := frame.Clone()
	clone.Y[0] = 99

	assert.Equal(t, byte(10), frame.Y[0])
	assert.Equal(t, frame.U, clone.U)
	assert.Equal(t, frame.V, clone.V)
}

func TestFrameCopyFrom(t *testing.T) {
	src := NewFrame(16, 16)
	src.Fill(1, 2, 3)
	dst := NewFrame(16, 16)

	require.NoError(t, dst.CopyFrom(src))
	assert.Equal(t, src.Y, dst.Y)

	assert.ErrorIs(t, dst.CopyFrom(NewFrame(32, 16)), ErrFrameDimensions)
	assert.ErrorIs(t, dst.CopyFrom(nil), ErrNilFrame)
}
