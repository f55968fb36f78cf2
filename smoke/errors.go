package smoke

import "errors"

// Sentinel errors for smoke codec operations.
// These errors enable reliable error classification using errors.Is().

// Construction errors.
var (
	// ErrInvalidDimensions indicates a width or height that is not positive,
	// not a multiple of 16, or too large for the wire format.
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrInvalidOptions indicates encoder or decoder options out of range.
	ErrInvalidOptions = errors.New("invalid codec options")
)

// Per-call errors.
var (
	// ErrBufferTooSmall indicates a caller-supplied buffer or frame plane is
	// too small for the data it must hold.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrMalformedHeader indicates a bitstream that is truncated or carries
	// out-of-range fields.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrCompressorFailure indicates the image compressor failed or produced
	// a payload the header cannot describe.
	ErrCompressorFailure = errors.New("compressor failure")

	// ErrDecompressorFailure indicates the image decompressor failed or
	// returned an image unusable as a block canvas.
	ErrDecompressorFailure = errors.New("decompressor failure")

	// ErrAllocationFailure indicates a reference buffer could not be
	// allocated within the configured bounds.
	ErrAllocationFailure = errors.New("allocation failure")

	// ErrClosed indicates use of an encoder or decoder after Close.
	ErrClosed = errors.New("codec closed")
)
