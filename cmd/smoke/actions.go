package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/opd-ai/smokecodec/container"
	"github.com/opd-ai/smokecodec/imagecodec"
	"github.com/opd-ai/smokecodec/pipeline"
	"github.com/opd-ai/smokecodec/smoke"
	"github.com/opd-ai/smokecodec/video"
)

// EncodeAction reads raw I420 frames and writes a .smk stream. Inputs whose
// size is not a multiple of 16 are scaled to the nearest aligned size.
func EncodeAction(c *cli.Context) (err error) {
	width, height := c.Int(flagWidth), c.Int(flagHeight)
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("input size %dx%d must be positive and even", width, height)
	}
	fpsNum, fpsDenom, err := parseFPS(c.String(flagFPS))
	if err != nil {
		return err
	}

	config := pipeline.DefaultConfig()
	config.Width, config.Height = video.AlignDimensions(width, height)
	config.FPSNum, config.FPSDenom = fpsNum, fpsDenom
	config.Codec = c.String(flagCodec)
	config.Encoder.MinQuality = c.Int(flagMinQuality)
	config.Encoder.MaxQuality = c.Int(flagMaxQuality)
	config.Encoder.Threshold = c.Uint64(flagThreshold)
	config.Encoder.KeyframeInterval = c.Int(flagKeyframeInterval)
	config.Encoder.RefDecode = c.Bool(flagRefDecode)

	processor, err := pipeline.NewProcessor(config)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, processor.Close()) }()

	in, err := os.Open(c.Path(flagInput))
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := container.Create(c.Path(flagOutput))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, out.Close()) }()

	info := processor.StreamInfo()
	if err := out.WriteHeader(info); err != nil {
		return err
	}

	reader := bufio.NewReader(in)
	frame := video.NewFrame(width, height)
	var index int
	for {
		if err := readFrame(reader, frame); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("reading frame %d: %w", index, err)
		}
		data, err := processor.EncodeFrame(frame)
		if err != nil {
			return fmt.Errorf("encoding frame %d: %w", index, err)
		}
		ts := time.Duration(index) * info.FrameDuration()
		if err := out.WriteFrame(container.Frame{Timestamp: ts, Data: data}); err != nil {
			return err
		}
		index++
	}

	stats := processor.Stats().Encoder
	logrus.WithFields(logrus.Fields{
		"function":  "EncodeAction",
		"frames":    stats.Frames,
		"keyframes": stats.Keyframes,
		"bytes":     stats.Bytes,
		"width":     config.Width,
		"height":    config.Height,
	}).Info("Encoding finished")

	fmt.Fprintf(c.App.Writer, "encoded %d frames (%d keyframes, %d bytes) at %dx%d\n",
		stats.Frames, stats.Keyframes, stats.Bytes, config.Width, config.Height)
	return nil
}

// DecodeAction reads a .smk stream and writes raw I420 frames.
func DecodeAction(c *cli.Context) (err error) {
	in, err := container.Open(c.Path(flagInput))
	if err != nil {
		return err
	}
	defer in.Close()

	if _, err := in.ReadHeader(); err != nil {
		return err
	}

	codec, err := imagecodec.New(c.String(flagCodec))
	if err != nil {
		return err
	}
	decoder, err := smoke.NewDecoder(&smoke.DecoderOptions{
		MaxPixels:    c.Int(flagMaxPixels),
		Decompressor: codec,
	})
	if err != nil {
		return multierr.Append(err, codec.Close())
	}
	defer func() { err = multierr.Append(err, decoder.Close()) }()

	f, err := os.Create(c.Path(flagOutput))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	out := bufio.NewWriter(f)

	var index int
	for {
		record, err := in.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading frame %d: %w", index, err)
		}
		frame, err := decoder.Decode(record.Data)
		if err != nil {
			return fmt.Errorf("decoding frame %d: %w", index, err)
		}
		if err := writeFrame(out, frame); err != nil {
			return err
		}
		index++
	}
	if err := out.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "decoded %d frames at %dx%d\n", index, decoder.Width(), decoder.Height())
	return nil
}

// InfoAction prints the stream header followed by one line per frame.
func InfoAction(c *cli.Context) error {
	in, err := container.Open(c.Path(flagInput))
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.ReadHeader()
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "smoke %d.%d %dx%d %d/%d fps\n",
		smoke.VersionMajor, smoke.VersionMinor, info.Width, info.Height, info.FPSNum, info.FPSDenom)

	for index := 0; ; index++ {
		record, err := in.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading frame %d: %w", index, err)
		}
		h, _, err := smoke.ParseHeader(record.Data)
		if err != nil {
			fmt.Fprintf(w, "%6d %12s malformed: %v\n", index, record.Timestamp, err)
			continue
		}
		fmt.Fprintf(w, "%6d %12s %-5s blocks=%-5d payload=%d\n",
			index, record.Timestamp, frameKind(h), h.BlockCount(), h.PayloadSize)
	}
}

func frameKind(h *smoke.Header) string {
	switch {
	case h.Keyframe():
		return "key"
	case h.BlockCount() > 0:
		return "delta"
	default:
		return "empty"
	}
}

// parseFPS accepts "num/den" or a plain integer rate.
func parseFPS(s string) (num, den uint32, err error) {
	numStr, denStr, found := strings.Cut(s, "/")
	if !found {
		denStr = "1"
	}
	n, err := strconv.ParseUint(strings.TrimSpace(numStr), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	d, err := strconv.ParseUint(strings.TrimSpace(denStr), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	if n == 0 || d == 0 {
		return 0, 0, fmt.Errorf("invalid frame rate %q", s)
	}
	return uint32(n), uint32(d), nil
}

// readFrame fills frame from the next I420 frame in r. It returns io.EOF
// when r is exhausted before the frame starts.
func readFrame(r io.Reader, frame *video.Frame) error {
	for i, plane := range [][]byte{frame.Y, frame.U, frame.V} {
		if _, err := io.ReadFull(r, plane); err != nil {
			if i == 0 && errors.Is(err, io.EOF) {
				return io.EOF
			}
			return io.ErrUnexpectedEOF
		}
	}
	return nil
}

func writeFrame(w io.Writer, frame *video.Frame) error {
	for _, plane := range [][]byte{frame.Y, frame.U, frame.V} {
		if _, err := w.Write(plane); err != nil {
			return err
		}
	}
	return nil
}
