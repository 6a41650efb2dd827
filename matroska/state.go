package matroska

import "github.com/webmcast/mkvdemux/ebml"

// streamState is the per-track demultiplex cursor. It is mutated by
// readData/readBlock and owns its buffer exclusively, so two tracks
// never invalidate each other's last-returned packet.
type streamState struct {
	clusterCursor *ebml.Cursor
	blockCursor   *ebml.Cursor

	firstCluster    bool
	clusterTimecode uint64

	blockTimecode  uint64
	blockDuration  uint64
	lacing         Lacing
	subpacketIndex int
	subpacketCount int

	blockPayload ebml.Element
	buffer       []byte
	blockSize    int

	timecodeScale float32

	// xiphOffsets caches the cumulative subpacket byte offsets for the
	// current Xiph-laced block, computed once on first access.
	xiphOffsets []int
}

func (s *streamState) growBuffer(n int) []byte {
	if cap(s.buffer) < n {
		s.buffer = make([]byte, n)
	} else {
		s.buffer = s.buffer[:n]
	}
	return s.buffer
}
