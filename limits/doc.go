// Package limits provides centralized size constants and validation functions
// for the smoke wire format. This package ensures consistent bound enforcement
// across the encoder, the decoder and the host-side plumbing.
//
// # Size Hierarchy
//
// The wire header stores every size in a 16-bit big-endian field, which
// produces the following hierarchy of limits:
//
//   - BlockSize (16): the luma edge of one codec block. Frame dimensions must
//     be a multiple of it.
//
//   - MaxDimension (65520): the largest multiple of BlockSize that still fits
//     in the u16 width and height fields.
//
//   - MaxBlocks (65536): the number of distinct block indices a u16 index
//     entry can address. A frame with more blocks cannot be described as a
//     delta frame and is rejected at construction.
//
//   - MaxPayloadSize (65532): the largest 4-byte aligned value of the u16
//     payloadSize field.
//
// # Validation Functions
//
//	if err := limits.ValidateDimensions(width, height); err != nil {
//	    // ErrDimensionsInvalid or ErrTooManyBlocks
//	}
//
//	if err := limits.ValidatePayloadSize(len(payload)); err != nil {
//	    // ErrPayloadTooLarge
//	}
//
// # Error Types
//
//   - ErrDimensionsInvalid: non-positive, unaligned or oversized dimensions
//   - ErrTooManyBlocks: dimensions whose block count exceeds MaxBlocks
//   - ErrPayloadTooLarge: compressed payload exceeds MaxPayloadSize
package limits
