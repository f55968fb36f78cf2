package pipeline

import (
	"errors"
	"fmt"

	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/opd-ai/smokecodec/imagecodec"
	smokertp "github.com/opd-ai/smokecodec/rtp"
	"github.com/opd-ai/smokecodec/smoke"
	"github.com/opd-ai/smokecodec/video"
)

// Default processor settings.
const (
	DefaultWidth    = 640
	DefaultHeight   = 480
	DefaultFPSNum   = 30
	DefaultFPSDenom = 1
	DefaultSSRC     = 1
)

var (
	// ErrInvalidConfig indicates processor settings out of range.
	ErrInvalidConfig = errors.New("invalid processor config")

	// ErrAwaitingKeyframe indicates a delta frame dropped because the
	// decoder lost sync with the sender.
	ErrAwaitingKeyframe = errors.New("awaiting keyframe")
)

// Config configures a Processor.
type Config struct {
	// Width and Height are the encoded size; input frames of any other size
	// are scaled. Both must be multiples of 16.
	Width  int
	Height int
	// FPSNum and FPSDenom give the frame rate that drives RTP timestamps.
	FPSNum   uint32
	FPSDenom uint32
	// Codec names the image codec ("jpeg" or "zstd").
	Codec string
	// Encoder settings. Compressor fields are filled from Codec when nil.
	Encoder smoke.EncoderOptions
	// MaxPixels bounds the decoder reference.
	MaxPixels int
	// Packetizer settings for outgoing packets.
	Packetizer smokertp.PacketizerConfig
}

// DefaultConfig returns settings suitable for a VGA screen-share stream.
func DefaultConfig() Config {
	return Config{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		FPSNum:     DefaultFPSNum,
		FPSDenom:   DefaultFPSDenom,
		Codec:      imagecodec.NameJPEG,
		Encoder:    *smoke.DefaultEncoderOptions(),
		MaxPixels:  smoke.DefaultMaxPixels,
		Packetizer: smokertp.DefaultPacketizerConfig(DefaultSSRC),
	}
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	if c.FPSNum == 0 || c.FPSDenom == 0 {
		return fmt.Errorf("%w: frame rate %d/%d", ErrInvalidConfig, c.FPSNum, c.FPSDenom)
	}
	if err := c.Encoder.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Packetizer.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Stats counts processor activity in both directions.
type Stats struct {
	Encoder        smoke.Stats
	Decoder        smoke.Stats
	Assembler      smokertp.AssemblerStats
	PacketsSent    uint64
	FramesScaled   uint64
	FramesSkipped  uint64 // Incoming deltas dropped while awaiting a keyframe
	DecodeFailures uint64
}

// Processor manages the complete smoke video pipeline.
//
// Handles the full video processing flow:
//
//	YUV420 Input → Scaling → Smoke Encoding → RTP Packetization
//	YUV420 Output ← Smoke Decoding ← Frame Assembly ← RTP Depacketization
//
// A Processor is not safe for concurrent use.
type Processor struct {
	encoder    *smoke.Encoder
	decoder    *smoke.Decoder
	scaler     *video.Scaler
	packetizer *smokertp.Packetizer
	assembler  *smokertp.FrameAssembler
	config     Config
	samples    uint32

	awaitingKeyframe bool
	packetsSent      uint64
	framesScaled     uint64
	framesSkipped    uint64
	decodeFailures   uint64
}

// NewProcessor creates a processor. The encoder, decoder and their image
// codecs are released by Close.
func NewProcessor(config Config) (*Processor, error) {
	logrus.WithFields(logrus.Fields{
		"function": "NewProcessor",
		"width":    config.Width,
		"height":   config.Height,
		"codec":    config.Codec,
	}).Info("Creating new video processor")

	if err := config.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewProcessor",
			"error":    err.Error(),
		}).Error("Processor config validation failed")
		return nil, err
	}

	encOpts := config.Encoder
	var owned []imagecodec.Codec
	if encOpts.Compressor == nil {
		codec, err := imagecodec.New(config.Codec)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		encOpts.Compressor = codec
		owned = append(owned, codec)
		if encOpts.RefDecode && encOpts.Decompressor == nil {
			refCodec, err := imagecodec.New(config.Codec)
			if err != nil {
				return nil, multierr.Append(err, codec.Close())
			}
			encOpts.Decompressor = refCodec
			owned = append(owned, refCodec)
		}
	}
	encoder, err := smoke.NewEncoder(config.Width, config.Height, &encOpts)
	if err != nil {
		for _, codec := range owned {
			err = multierr.Append(err, codec.Close())
		}
		return nil, err
	}

	decCodec, err := imagecodec.New(config.Codec)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	maxPixels := config.MaxPixels
	if maxPixels <= 0 {
		maxPixels = smoke.DefaultMaxPixels
	}
	decoder, err := smoke.NewDecoder(&smoke.DecoderOptions{MaxPixels: maxPixels, Decompressor: decCodec})
	if err != nil {
		_ = encoder.Close()
		_ = decCodec.Close()
		return nil, err
	}

	packetizer, err := smokertp.NewPacketizer(config.Packetizer)
	if err != nil {
		return nil, multierr.Combine(err, encoder.Close(), decoder.Close())
	}

	p := &Processor{
		encoder:          encoder,
		decoder:          decoder,
		scaler:           video.NewScaler(),
		packetizer:       packetizer,
		assembler:        smokertp.NewFrameAssembler(),
		config:           config,
		samples:          smokertp.SamplesPerFrame(config.FPSNum, config.FPSDenom),
		awaitingKeyframe: true,
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewProcessor",
		"width":    config.Width,
		"height":   config.Height,
		"ssrc":     config.Packetizer.SSRC,
		"samples":  p.samples,
	}).Info("Video processor created successfully")

	return p, nil
}

// SetTimeProvider sets the time provider of the frame assembler for
// deterministic testing.
func (p *Processor) SetTimeProvider(tp smokertp.TimeProvider) {
	p.assembler.SetTimeProvider(tp)
}

// ProcessOutgoing scales, encodes and packetizes frame.
//
// Parameters:
//   - frame: Video frame to process and transmit
//
// Returns:
//   - []*rtp.Packet: RTP packets ready for network transmission
//   - error: Any error that occurred during processing
func (p *Processor) ProcessOutgoing(frame *video.Frame) ([]*rtp.Packet, error) {
	data, err := p.EncodeFrame(frame)
	if err != nil {
		return nil, err
	}

	packets, err := p.packetizer.Packetize(data, p.samples)
	if err != nil {
		return nil, fmt.Errorf("RTP packetization failed: %w", err)
	}
	p.packetsSent += uint64(len(packets))
	return packets, nil
}

// EncodeFrame scales and encodes frame without RTP packetization.
func (p *Processor) EncodeFrame(frame *video.Frame) ([]byte, error) {
	if err := frame.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Processor.EncodeFrame",
			"error":    err.Error(),
		}).Error("Invalid input frame")
		return nil, err
	}

	processed, err := p.applyScaling(frame)
	if err != nil {
		return nil, err
	}

	data, err := p.encoder.Encode(processed)
	if err != nil {
		return nil, fmt.Errorf("encoding failed: %w", err)
	}
	return data, nil
}

// applyScaling scales the frame to the configured size if it differs.
func (p *Processor) applyScaling(frame *video.Frame) (*video.Frame, error) {
	if !p.scaler.IsScalingRequired(frame.Width, frame.Height, p.config.Width, p.config.Height) {
		return frame, nil
	}
	scaled, err := p.scaler.Scale(frame, p.config.Width, p.config.Height)
	if err != nil {
		return nil, fmt.Errorf("scaling failed: %w", err)
	}
	p.framesScaled++
	return scaled, nil
}

// ProcessIncoming parses a marshalled RTP packet and feeds it to
// ProcessIncomingPacket.
func (p *Processor) ProcessIncoming(data []byte) (*video.Frame, error) {
	packet := &rtp.Packet{}
	if err := packet.Unmarshal(data); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Processor.ProcessIncoming",
			"error":    err.Error(),
		}).Error("Failed to unmarshal RTP packet")
		return nil, fmt.Errorf("failed to unmarshal RTP packet: %w", err)
	}
	return p.ProcessIncomingPacket(packet)
}

// ProcessIncomingPacket assembles packet and decodes the frame it completes.
//
// It returns nil with no error while a frame is incomplete. A delta frame
// received while out of sync is dropped with ErrAwaitingKeyframe.
func (p *Processor) ProcessIncomingPacket(packet *rtp.Packet) (*video.Frame, error) {
	frame, err := p.assembler.Push(packet)
	if err != nil {
		return nil, fmt.Errorf("RTP depacketization failed: %w", err)
	}
	if frame == nil {
		return nil, nil
	}

	if frame.Discontinuity {
		p.awaitingKeyframe = true
	}
	if p.awaitingKeyframe && !frame.Keyframe {
		p.framesSkipped++
		logrus.WithFields(logrus.Fields{
			"function":  "Processor.ProcessIncoming",
			"timestamp": frame.Timestamp,
		}).Debug("Dropping delta frame while awaiting keyframe")
		return nil, ErrAwaitingKeyframe
	}

	return p.DecodeFrame(frame.Data)
}

// DecodeFrame decodes one bitstream frame without RTP. A failed decode puts
// the processor back into awaiting a keyframe.
func (p *Processor) DecodeFrame(data []byte) (*video.Frame, error) {
	decoded, h, err := p.decoder.DecodeWithHeader(data)
	if err != nil {
		p.awaitingKeyframe = true
		p.decodeFailures++
		return nil, fmt.Errorf("decoding failed: %w", err)
	}
	if h.Keyframe() {
		p.awaitingKeyframe = false
	}
	return decoded, nil
}

// ForceKeyframe makes the next outgoing frame a keyframe.
func (p *Processor) ForceKeyframe() {
	p.encoder.ForceKeyframe()
}

// AwaitingKeyframe reports whether incoming delta frames are being dropped.
func (p *Processor) AwaitingKeyframe() bool {
	return p.awaitingKeyframe
}

// StreamInfo returns the stream ID packet describing outgoing video.
func (p *Processor) StreamInfo() smoke.StreamInfo {
	return p.encoder.StreamInfo(p.config.FPSNum, p.config.FPSDenom)
}

// Stats returns counters for both directions.
func (p *Processor) Stats() Stats {
	return Stats{
		Encoder:        p.encoder.Stats(),
		Decoder:        p.decoder.Stats(),
		Assembler:      p.assembler.Stats(),
		PacketsSent:    p.packetsSent,
		FramesScaled:   p.framesScaled,
		FramesSkipped:  p.framesSkipped,
		DecodeFailures: p.decodeFailures,
	}
}

// Close releases the encoder and decoder.
func (p *Processor) Close() error {
	logrus.WithFields(logrus.Fields{
		"function":     "Processor.Close",
		"packets_sent": p.packetsSent,
	}).Info("Closing video processor")

	return multierr.Combine(p.encoder.Close(), p.decoder.Close())
}
