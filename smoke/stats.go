package smoke

// Stats counts the frames an encoder produced or a decoder consumed.
type Stats struct {
	Frames          uint64 // All frames
	Keyframes       uint64 // Frames with every block coded
	DeltaFrames     uint64 // Frames with a non-empty block list
	UnchangedFrames uint64 // Header-only frames signalling no visible change
	Blocks          uint64 // Blocks carried in payloads
	Bytes           uint64 // Bitstream bytes including headers
	LastQuality     int    // Quality of the most recent coded payload (encoder only)
}

func (s *Stats) record(h *Header, blocks, size int) {
	s.Frames++
	switch {
	case h.Keyframe():
		s.Keyframes++
	case blocks > 0:
		s.DeltaFrames++
	default:
		s.UnchangedFrames++
	}
	s.Blocks += uint64(blocks)
	s.Bytes += uint64(size)
}
