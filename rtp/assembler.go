package rtp

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// Assembler limits.
const (
	// DefaultMaxFrames bounds the number of frames assembled concurrently.
	DefaultMaxFrames = 10

	// StaleTimeout is how long an incomplete frame is kept without new packets.
	StaleTimeout = 5 * time.Second
)

// Frame is a smoke bitstream frame reassembled from RTP packets.
type Frame struct {
	Data      []byte
	Timestamp uint32
	Keyframe  bool
	// Discontinuity is set when packets between this frame and the previous
	// delivered one never formed a frame, and on the first frame of a stream.
	Discontinuity bool
}

// AssemblerStats counts assembler activity.
type AssemblerStats struct {
	Packets uint64 // Packets accepted into an assembly
	Frames  uint64 // Frames delivered
	Dropped uint64 // Incomplete frames discarded
	Late    uint64 // Duplicate packets or packets of frames already passed
}

// frameAssembly holds the packets of one RTP timestamp.
type frameAssembly struct {
	timestamp    uint32
	packets      []*rtp.Packet
	lastActivity time.Time
	hasStart     bool
	startSeq     uint16
	keyframe     bool
}

// FrameAssembler reassembles smoke frames from RTP packets of a single
// source. It is not safe for concurrent use.
type FrameAssembler struct {
	assemblies   map[uint32]*frameAssembly
	maxFrames    int
	timeProvider TimeProvider
	depacketizer Depacketizer

	ssrc    uint32
	hasSSRC bool
	lastSeq uint16
	hasLast bool

	stats AssemblerStats
}

// NewFrameAssembler creates an assembler using the system clock.
func NewFrameAssembler() *FrameAssembler {
	return NewFrameAssemblerWithTimeProvider(RealTimeProvider{})
}

// NewFrameAssemblerWithTimeProvider creates an assembler with a custom time
// provider. Use this for deterministic testing.
func NewFrameAssemblerWithTimeProvider(tp TimeProvider) *FrameAssembler {
	if tp == nil {
		tp = RealTimeProvider{}
	}
	return &FrameAssembler{
		assemblies:   make(map[uint32]*frameAssembly),
		maxFrames:    DefaultMaxFrames,
		timeProvider: tp,
	}
}

// SetTimeProvider sets the time provider for deterministic testing.
func (a *FrameAssembler) SetTimeProvider(tp TimeProvider) {
	a.timeProvider = tp
}

// Push adds a packet and returns the frame it completes, or nil.
func (a *FrameAssembler) Push(packet *rtp.Packet) (*Frame, error) {
	if packet == nil {
		return nil, errors.New("packet cannot be nil")
	}

	if !a.hasSSRC {
		a.ssrc = packet.SSRC
		a.hasSSRC = true
		logrus.WithFields(logrus.Fields{
			"function": "FrameAssembler.Push",
			"ssrc":     packet.SSRC,
		}).Info("Accepted new SSRC for stream")
	} else if packet.SSRC != a.ssrc {
		logrus.WithFields(logrus.Fields{
			"function":      "FrameAssembler.Push",
			"expected_ssrc": a.ssrc,
			"received_ssrc": packet.SSRC,
		}).Warn("Unexpected SSRC in RTP packet")
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrUnexpectedSSRC, a.ssrc, packet.SSRC)
	}

	if _, err := a.depacketizer.Unmarshal(packet.Payload); err != nil {
		return nil, err
	}
	keyframe := a.depacketizer.Keyframe

	if a.hasLast && !isSequenceLess(a.lastSeq, packet.SequenceNumber) {
		a.stats.Late++
		return nil, nil
	}

	assembly := a.getOrCreateAssembly(packet.Timestamp)
	if assembly.contains(packet.SequenceNumber) {
		a.stats.Late++
		return nil, nil
	}
	assembly.packets = append(assembly.packets, packet)
	assembly.lastActivity = a.timeProvider.Now()
	assembly.keyframe = assembly.keyframe || keyframe
	if a.depacketizer.IsPartitionHead(packet.Payload) {
		assembly.hasStart = true
		assembly.startSeq = packet.SequenceNumber
	}
	a.stats.Packets++

	if !assembly.complete() {
		return nil, nil
	}
	return a.finalize(assembly), nil
}

// getOrCreateAssembly returns the assembly for timestamp, evicting old
// assemblies when the buffer is full.
func (a *FrameAssembler) getOrCreateAssembly(timestamp uint32) *frameAssembly {
	if assembly, ok := a.assemblies[timestamp]; ok {
		return assembly
	}
	if len(a.assemblies) >= a.maxFrames {
		a.Expire()
		if len(a.assemblies) >= a.maxFrames {
			a.removeOldest()
		}
	}
	assembly := &frameAssembly{timestamp: timestamp}
	a.assemblies[timestamp] = assembly
	return assembly
}

func (f *frameAssembly) contains(seq uint16) bool {
	for _, p := range f.packets {
		if p.SequenceNumber == seq {
			return true
		}
	}
	return false
}

// complete sorts the packets and reports whether they run without gaps from
// the start packet to a marker packet.
func (f *frameAssembly) complete() bool {
	if !f.hasStart {
		return false
	}
	slices.SortFunc(f.packets, func(x, y *rtp.Packet) int {
		switch {
		case x.SequenceNumber == y.SequenceNumber:
			return 0
		case isSequenceLess(x.SequenceNumber, y.SequenceNumber):
			return -1
		default:
			return 1
		}
	})

	if f.packets[0].SequenceNumber != f.startSeq {
		return false
	}
	expected := f.startSeq
	for _, p := range f.packets {
		if p.SequenceNumber != expected {
			return false
		}
		if p.Marker {
			return true
		}
		expected++
	}
	return false
}

// finalize concatenates a complete assembly and drops any older assemblies,
// which can no longer be delivered in order.
func (a *FrameAssembler) finalize(assembly *frameAssembly) *Frame {
	var size int
	for _, p := range assembly.packets {
		size += len(p.Payload) - DescriptorSize
	}
	data := make([]byte, 0, size)
	var endSeq uint16
	for _, p := range assembly.packets {
		data = append(data, p.Payload[DescriptorSize:]...)
		endSeq = p.SequenceNumber
		if p.Marker {
			break
		}
	}

	frame := &Frame{
		Data:          data,
		Timestamp:     assembly.timestamp,
		Keyframe:      assembly.keyframe,
		Discontinuity: !a.hasLast || assembly.startSeq != a.lastSeq+1,
	}
	delete(a.assemblies, assembly.timestamp)

	for ts, other := range a.assemblies {
		if other.before(endSeq) {
			delete(a.assemblies, ts)
			a.stats.Dropped++
		}
	}

	a.lastSeq = endSeq
	a.hasLast = true
	a.stats.Frames++

	if frame.Discontinuity {
		logrus.WithFields(logrus.Fields{
			"function":  "FrameAssembler.Push",
			"timestamp": frame.Timestamp,
			"keyframe":  frame.Keyframe,
		}).Debug("Frame follows a gap in the packet stream")
	}

	return frame
}

// before reports whether every packet of the assembly precedes seq.
func (f *frameAssembly) before(seq uint16) bool {
	for _, p := range f.packets {
		if !isSequenceLess(p.SequenceNumber, seq) {
			return false
		}
	}
	return true
}

// Expire drops incomplete frames that have seen no packets for
// StaleTimeout and returns how many were dropped.
func (a *FrameAssembler) Expire() int {
	cutoff := a.timeProvider.Now().Add(-StaleTimeout)
	var n int
	for ts, assembly := range a.assemblies {
		if assembly.lastActivity.Before(cutoff) {
			delete(a.assemblies, ts)
			n++
		}
	}
	a.stats.Dropped += uint64(n)
	return n
}

// removeOldest drops the assembly with the oldest activity.
func (a *FrameAssembler) removeOldest() {
	var (
		oldestTS   uint32
		oldestTime time.Time
		found      bool
	)
	for ts, assembly := range a.assemblies {
		if !found || assembly.lastActivity.Before(oldestTime) {
			oldestTS, oldestTime, found = ts, assembly.lastActivity, true
		}
	}
	if found {
		delete(a.assemblies, oldestTS)
		a.stats.Dropped++
	}
}

// Pending returns the number of frames being assembled.
func (a *FrameAssembler) Pending() int {
	return len(a.assemblies)
}

// Stats returns the assembler counters.
func (a *FrameAssembler) Stats() AssemblerStats {
	return a.stats
}

// isSequenceLess compares sequence numbers handling 16-bit wraparound.
func isSequenceLess(a, b uint16) bool {
	return int16(a-b) < 0
}
