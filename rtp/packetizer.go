package rtp

import (
	"fmt"

	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// Packetizer defaults.
const (
	// ClockRate is the RTP clock for smoke video.
	ClockRate = 90000

	// DefaultPayloadType is the dynamic payload type used when none is set.
	DefaultPayloadType = 96

	// DefaultMTU keeps packets below common path MTUs after IP/UDP headers.
	DefaultMTU = 1200

	// rtpHeaderSize is the fixed RTP header without CSRCs or extensions.
	rtpHeaderSize = 12
)

// PacketizerConfig configures a Packetizer.
type PacketizerConfig struct {
	SSRC        uint32
	PayloadType uint8
	// MTU is the largest marshalled RTP packet, header included.
	MTU uint16
	// Sequencer supplies sequence numbers. Nil selects a random start.
	Sequencer rtp.Sequencer
}

// DefaultPacketizerConfig returns the default settings for ssrc.
func DefaultPacketizerConfig(ssrc uint32) PacketizerConfig {
	return PacketizerConfig{
		SSRC:        ssrc,
		PayloadType: DefaultPayloadType,
		MTU:         DefaultMTU,
	}
}

// Validate checks that the settings are usable.
func (c PacketizerConfig) Validate() error {
	if c.PayloadType > 127 {
		return fmt.Errorf("%w: payload type %d exceeds 127", ErrInvalidConfig, c.PayloadType)
	}
	if int(c.MTU) <= rtpHeaderSize+DescriptorSize {
		return fmt.Errorf("%w: MTU %d leaves no room for data", ErrInvalidConfig, c.MTU)
	}
	return nil
}

// Packetizer turns smoke frames into RTP packets sharing one SSRC and a
// continuous sequence number space.
type Packetizer struct {
	packetizer rtp.Packetizer
	config     PacketizerConfig
	frames     uint64
	packets    uint64
}

// NewPacketizer creates a packetizer backed by pion's RTP packetizer.
func NewPacketizer(config PacketizerConfig) (*Packetizer, error) {
	if err := config.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewPacketizer",
			"error":    err.Error(),
		}).Error("Invalid packetizer config")
		return nil, err
	}
	if config.Sequencer == nil {
		config.Sequencer = rtp.NewRandomSequencer()
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewPacketizer",
		"ssrc":         config.SSRC,
		"payload_type": config.PayloadType,
		"mtu":          config.MTU,
	}).Info("Creating smoke RTP packetizer")

	return &Packetizer{
		packetizer: rtp.NewPacketizer(config.MTU, config.PayloadType, config.SSRC,
			Payloader{}, config.Sequencer, ClockRate),
		config: config,
	}, nil
}

// Packetize splits frame into RTP packets. All packets carry the current
// timestamp, which then advances by samples ticks of the 90 kHz clock.
func (p *Packetizer) Packetize(frame []byte, samples uint32) ([]*rtp.Packet, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}

	packets := p.packetizer.Packetize(frame, samples)
	p.frames++
	p.packets += uint64(len(packets))

	logrus.WithFields(logrus.Fields{
		"function":   "Packetizer.Packetize",
		"frame_size": len(frame),
		"packets":    len(packets),
		"keyframe":   isKeyframe(frame),
	}).Debug("Packetized smoke frame")

	return packets, nil
}

// SkipSamples advances the timestamp without emitting packets, e.g. for a
// frame the sender chose not to transmit.
func (p *Packetizer) SkipSamples(samples uint32) {
	p.packetizer.SkipSamples(samples)
}

// Config returns the packetizer settings.
func (p *Packetizer) Config() PacketizerConfig {
	return p.config
}

// Stats returns the number of frames and packets produced.
func (p *Packetizer) Stats() (frames, packets uint64) {
	return p.frames, p.packets
}

// SamplesPerFrame converts a frame rate into 90 kHz clock ticks per frame.
// It returns zero for an unknown rate.
func SamplesPerFrame(fpsNum, fpsDenom uint32) uint32 {
	if fpsNum == 0 {
		return 0
	}
	return uint32(uint64(ClockRate) * uint64(fpsDenom) / uint64(fpsNum))
}
