// Package container stores smoke streams in .smk files.
//
// A file starts with the 20-byte stream ID packet and is followed by one
// record per frame:
//
//	u32 length       (big-endian, frame bytes only)
//	u64 timestamp    (big-endian, nanoseconds from stream start)
//	length bytes of smoke bitstream frame
package container

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/opd-ai/smokecodec/limits"
	"github.com/opd-ai/smokecodec/smoke"
)

// recordHeaderSize is the per-frame length and timestamp prefix.
const recordHeaderSize = 12

// MaxFrameSize is the largest smoke frame the wire format can express.
const MaxFrameSize = smoke.HeaderSize + 2*limits.MaxBlocks + limits.MaxPayloadSize

var (
	// ErrHeaderWritten indicates a second WriteHeader call.
	ErrHeaderWritten = errors.New("stream header already written")

	// ErrNoHeader indicates a frame written or read before the stream header.
	ErrNoHeader = errors.New("stream header not written")

	// ErrFrameTooLarge indicates a record longer than MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame too large")
)

// Frame is one record of a .smk file.
type Frame struct {
	// Timestamp is the presentation time relative to the stream start.
	Timestamp time.Duration
	Data      []byte
}

// Writer writes a .smk stream.
type Writer struct {
	w       *bufio.Writer
	closer  io.Closer
	header  bool
	frames  uint64
	scratch [recordHeaderSize]byte
}

// NewWriter returns a Writer buffering output to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Create creates or truncates the named file and returns a Writer for it.
// Close flushes and closes the file.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	wr := NewWriter(f)
	wr.closer = f
	return wr, nil
}

// WriteHeader writes the stream ID packet. It must be called once, before
// any frame.
func (wr *Writer) WriteHeader(info smoke.StreamInfo) error {
	if wr.header {
		return ErrHeaderWritten
	}
	if _, err := wr.w.Write(info.Marshal()); err != nil {
		return err
	}
	wr.header = true
	return nil
}

// WriteFrame appends one frame record.
func (wr *Writer) WriteFrame(frame Frame) error {
	if !wr.header {
		return ErrNoHeader
	}
	if len(frame.Data) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(frame.Data))
	}

	binary.BigEndian.PutUint32(wr.scratch[0:4], uint32(len(frame.Data)))
	binary.BigEndian.PutUint64(wr.scratch[4:12], uint64(frame.Timestamp))
	if _, err := wr.w.Write(wr.scratch[:]); err != nil {
		return err
	}
	if _, err := wr.w.Write(frame.Data); err != nil {
		return err
	}
	wr.frames++
	return nil
}

// Frames returns the number of frames written.
func (wr *Writer) Frames() uint64 {
	return wr.frames
}

// Flush writes buffered data to the underlying writer.
func (wr *Writer) Flush() error {
	return wr.w.Flush()
}

// Close flushes buffered data and closes the file opened by Create.
func (wr *Writer) Close() error {
	err := wr.w.Flush()
	if wr.closer != nil {
		err = multierr.Append(err, wr.closer.Close())
		wr.closer = nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "Writer.Close",
		"frames":   wr.frames,
	}).Debug("Closed smoke stream writer")

	return err
}

// Reader reads a .smk stream.
type Reader struct {
	r       *bufio.Reader
	closer  io.Closer
	info    smoke.StreamInfo
	header  bool
	scratch [recordHeaderSize]byte
}

// NewReader returns a Reader buffering input from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Open opens the named file for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rd := NewReader(f)
	rd.closer = f
	return rd, nil
}

// ReadHeader reads and validates the stream ID packet.
func (rd *Reader) ReadHeader() (smoke.StreamInfo, error) {
	if rd.header {
		return rd.info, nil
	}
	buf := make([]byte, smoke.StreamInfoSize)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return smoke.StreamInfo{}, fmt.Errorf("reading stream header: %w", err)
	}
	info, err := smoke.ParseStreamInfo(buf)
	if err != nil {
		return smoke.StreamInfo{}, err
	}
	rd.info = info
	rd.header = true
	return info, nil
}

// ReadFrame returns the next frame record. It returns io.EOF at a clean end
// of stream and io.ErrUnexpectedEOF when a record is truncated.
func (rd *Reader) ReadFrame() (Frame, error) {
	if !rd.header {
		return Frame{}, ErrNoHeader
	}

	n, err := io.ReadFull(rd.r, rd.scratch[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return Frame{}, io.EOF
		}
		return Frame{}, io.ErrUnexpectedEOF
	}

	size := binary.BigEndian.Uint32(rd.scratch[0:4])
	if size > MaxFrameSize {
		return Frame{}, fmt.Errorf("%w: record of %d bytes", ErrFrameTooLarge, size)
	}
	frame := Frame{
		Timestamp: time.Duration(binary.BigEndian.Uint64(rd.scratch[4:12])),
		Data:      make([]byte, size),
	}
	if _, err := io.ReadFull(rd.r, frame.Data); err != nil {
		return Frame{}, io.ErrUnexpectedEOF
	}
	return frame, nil
}

// Close closes the file opened by Open.
func (rd *Reader) Close() error {
	if rd.closer == nil {
		return nil
	}
	err := rd.closer.Close()
	rd.closer = nil
	return err
}
