// Package limits provides centralized size limits for the smoke wire format.
// This ensures consistent validation across different components of the system.
package limits

import (
	"errors"
	"fmt"
)

const (
	// BlockSize is the luma edge length of one codec block.
	BlockSize = 16

	// ChromaBlockSize is the chroma edge length of one codec block (4:2:0).
	ChromaBlockSize = BlockSize / 2

	// MaxDimension is the largest block-aligned value of a u16 dimension field.
	MaxDimension = 0xFFFF &^ (BlockSize - 1)

	// MaxBlocks is the number of blocks addressable by a u16 index entry.
	MaxBlocks = 1 << 16

	// PayloadAlignment is the rounding applied to the payloadSize field.
	PayloadAlignment = 4

	// MaxPayloadSize is the largest aligned value of the u16 payloadSize field.
	MaxPayloadSize = 0xFFFF &^ (PayloadAlignment - 1)
)

var (
	// ErrDimensionsInvalid indicates non-positive, unaligned or oversized dimensions.
	ErrDimensionsInvalid = errors.New("invalid dimensions")

	// ErrTooManyBlocks indicates a frame whose blocks cannot all be indexed.
	ErrTooManyBlocks = errors.New("too many blocks")

	// ErrPayloadTooLarge indicates a payload that does not fit the size field.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// ValidateDimensions checks that width and height describe a frame the wire
// format can carry: both positive, multiples of BlockSize, at most
// MaxDimension, and with no more than MaxBlocks blocks in total.
func ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d must be positive", ErrDimensionsInvalid, width, height)
	}
	if width%BlockSize != 0 || height%BlockSize != 0 {
		return fmt.Errorf("%w: %dx%d must be multiples of %d", ErrDimensionsInvalid, width, height, BlockSize)
	}
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrDimensionsInvalid, width, height, MaxDimension)
	}
	if blocks := (width / BlockSize) * (height / BlockSize); blocks > MaxBlocks {
		return fmt.Errorf("%w: %d blocks exceeds limit %d", ErrTooManyBlocks, blocks, MaxBlocks)
	}
	return nil
}

// ValidatePayloadSize validates a compressed payload length against MaxPayloadSize
// after alignment.
func ValidatePayloadSize(size int) error {
	if AlignPayload(size) > MaxPayloadSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPayloadTooLarge, size, MaxPayloadSize)
	}
	return nil
}

// AlignPayload rounds size up to the next multiple of PayloadAlignment.
func AlignPayload(size int) int {
	return (size + PayloadAlignment - 1) &^ (PayloadAlignment - 1)
}
