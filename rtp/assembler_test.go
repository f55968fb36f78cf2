package rtp

import (
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTimeProvider struct {
	now time.Time
}

func (m *mockTimeProvider) Now() time.Time { return m.now }

func (m *mockTimeProvider) Advance(d time.Duration) { m.now = m.now.Add(d) }

func newMockTime() *mockTimeProvider {
	return &mockTimeProvider{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// packetizeFrame splits a frame with a small MTU so it spans several packets.
func packetizeFrame(t *testing.T, p *Packetizer, frame []byte) []*rtp.Packet {
	t.Helper()
	packets, err := p.Packetize(frame, 3000)
	require.NoError(t, err)
	return packets
}

func TestFrameAssemblerInOrder(t *testing.T) {
	p := newTestPacketizer(t, 64, 500)
	a := NewFrameAssemblerWithTimeProvider(newMockTime())

	for i, key := range []bool{true, false, false} {
		frame := smokeFrame(200+i, key)
		packets := packetizeFrame(t, p, frame)
		require.Greater(t, len(packets), 1)

		var got *Frame
		for j, pkt := range packets {
			f, err := a.Push(pkt)
			require.NoError(t, err)
			if j < len(packets)-1 {
				assert.Nil(t, f)
			}
			got = f
		}
		require.NotNil(t, got, "frame %d", i)
		assert.Equal(t, frame, got.Data)
		assert.Equal(t, key, got.Keyframe)
		assert.Equal(t, packets[0].Timestamp, got.Timestamp)
		assert.Equal(t, i == 0, got.Discontinuity, "frame %d", i)
	}
	assert.Zero(t, a.Pending())
	assert.Equal(t, uint64(3), a.Stats().Frames)
}

func TestFrameAssemblerReordered(t *testing.T) {
	p := newTestPacketizer(t, 40, 65530)
	a := NewFrameAssemblerWithTimeProvider(newMockTime())

	frame := smokeFrame(150, true)
	packets := packetizeFrame(t, p, frame)
	require.Greater(t, len(packets), 3)

	order := append([]*rtp.Packet{packets[len(packets)-1]}, packets[:len(packets)-1]...)
	order[1], order[2] = order[2], order[1]

	var got *Frame
	for _, pkt := range order {
		f, err := a.Push(pkt)
		require.NoError(t, err)
		if f != nil {
			got = f
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, frame, got.Data)
}

func TestFrameAssemblerLossFlagsDiscontinuity(t *testing.T) {
	p := newTestPacketizer(t, 64, 10)
	a := NewFrameAssemblerWithTimeProvider(newMockTime())

	first := packetizeFrame(t, p, smokeFrame(100, true))
	lost := packetizeFrame(t, p, smokeFrame(100, false))
	third := packetizeFrame(t, p, smokeFrame(100, false))

	for _, pkt := range first {
		_, err := a.Push(pkt)
		require.NoError(t, err)
	}
	// Only the tail of the second frame arrives.
	_, err := a.Push(lost[len(lost)-1])
	require.NoError(t, err)
	assert.Equal(t, 1, a.Pending())

	var got *Frame
	for _, pkt := range third {
		got, err = a.Push(pkt)
		require.NoError(t, err)
	}
	require.NotNil(t, got)
	assert.True(t, got.Discontinuity)
	assert.False(t, got.Keyframe)
	assert.Zero(t, a.Pending())
	assert.Equal(t, uint64(1), a.Stats().Dropped)

	// Late packets of the abandoned frame are ignored.
	f, err := a.Push(lost[0])
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Zero(t, a.Pending())
	assert.Equal(t, uint64(1), a.Stats().Late)
}

func TestFrameAssemblerDuplicatePacket(t *testing.T) {
	p := newTestPacketizer(t, 64, 1)
	a := NewFrameAssemblerWithTimeProvider(newMockTime())

	packets := packetizeFrame(t, p, smokeFrame(100, true))
	_, err := a.Push(packets[0])
	require.NoError(t, err)
	_, err = a.Push(packets[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.Stats().Late)

	var got *Frame
	for _, pkt := range packets[1:] {
		got, err = a.Push(pkt)
		require.NoError(t, err)
	}
	require.NotNil(t, got)
	assert.Len(t, got.Data, 100)
}

func TestFrameAssemblerSSRC(t *testing.T) {
	a := NewFrameAssembler()

	_, err := a.Push(&rtp.Packet{Header: rtp.Header{SSRC: 1, SequenceNumber: 1}, Payload: []byte{descriptorStart}})
	require.NoError(t, err)

	_, err = a.Push(&rtp.Packet{Header: rtp.Header{SSRC: 2, SequenceNumber: 2}, Payload: []byte{0}})
	assert.ErrorIs(t, err, ErrUnexpectedSSRC)

	_, err = a.Push(&rtp.Packet{Header: rtp.Header{SSRC: 1, SequenceNumber: 3}})
	assert.ErrorIs(t, err, ErrShortPayload)

	_, err = a.Push(nil)
	assert.Error(t, err)
}

func TestFrameAssemblerExpire(t *testing.T) {
	mockTime := newMockTime()
	a := NewFrameAssemblerWithTimeProvider(mockTime)

	_, err := a.Push(&rtp.Packet{Header: rtp.Header{SequenceNumber: 1, Timestamp: 10}, Payload: []byte{descriptorStart, 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Pending())

	mockTime.Advance(StaleTimeout - time.Millisecond)
	assert.Zero(t, a.Expire())

	mockTime.Advance(2 * time.Millisecond)
	assert.Equal(t, 1, a.Expire())
	assert.Zero(t, a.Pending())
}

func TestFrameAssemblerBufferLimit(t *testing.T) {
	mockTime := newMockTime()
	a := NewFrameAssemblerWithTimeProvider(mockTime)

	for i := 0; i < DefaultMaxFrames+5; i++ {
		pkt := &rtp.Packet{
			Header:  rtp.Header{SequenceNumber: uint16(i * 2), Timestamp: uint32(i)},
			Payload: []byte{descriptorStart, byte(i)},
		}
		_, err := a.Push(pkt)
		require.NoError(t, err)
		mockTime.Advance(time.Millisecond)
	}
	assert.Equal(t, DefaultMaxFrames, a.Pending())
	assert.Equal(t, uint64(5), a.Stats().Dropped)
}
