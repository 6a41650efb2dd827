package matroska

import "github.com/webmcast/mkvdemux/ebml"

// currentSubpacket returns the subpacket at state.subpacketIndex out
// of state.buffer[:state.blockSize], according to state.lacing.
func currentSubpacket(state *streamState) ([]byte, error) {
	data := state.buffer[:state.blockSize]
	switch state.lacing {
	case LacingNone:
		if state.subpacketIndex != 0 {
			return nil, ebml.NewFormatError("subpacket index out of range for unlaced block")
		}
		return data, nil

	case LacingFixed:
		if state.subpacketCount == 0 {
			return nil, ebml.NewFormatError("fixed lacing with zero subpackets")
		}
		if len(data)%state.subpacketCount != 0 {
			return nil, ebml.NewFormatError("fixed-size lacing does not divide evenly")
		}
		size := len(data) / state.subpacketCount
		start := state.subpacketIndex * size
		return data[start : start+size], nil

	case LacingXiph:
		offsets, err := xiphOffsets(state)
		if err != nil {
			return nil, err
		}
		start := offsets[state.subpacketIndex]
		end := offsets[state.subpacketIndex+1]
		return data[start:end], nil

	case LacingEBML:
		return nil, ebml.NewFormatError("File uses EBML lacing, which is not yet implemented")

	default:
		return nil, ebml.NewFormatError("unrecognised lacing mode")
	}
}

// xiphOffsets computes, and caches on state, the len(subpacketCount)+1
// cumulative byte offsets into state.buffer delimiting each Xiph
// subpacket (offsets[i]..offsets[i+1]). The first subpacketCount-1
// subpacket sizes are Xiph-varint-encoded at the start of the buffer;
// the final subpacket takes whatever remains.
func xiphOffsets(state *streamState) ([]int, error) {
	if state.xiphOffsets != nil {
		return state.xiphOffsets, nil
	}
	data := state.buffer[:state.blockSize]
	pos := 0
	sizes := make([]int, 0, state.subpacketCount)
	sumKnown := 0
	for i := 0; i < state.subpacketCount-1; i++ {
		size := 0
		for {
			if pos >= len(data) {
				return nil, ebml.NewIOError("read")
			}
			b := data[pos]
			pos++
			size += int(b)
			if b < 255 {
				break
			}
		}
		sizes = append(sizes, size)
		sumKnown += size
	}
	lastSize := len(data) - pos - sumKnown
	if lastSize < 0 {
		return nil, ebml.NewIOError("read")
	}
	sizes = append(sizes, lastSize)

	offsets := make([]int, state.subpacketCount+1)
	offsets[0] = pos
	for i, s := range sizes {
		offsets[i+1] = offsets[i] + s
	}
	state.xiphOffsets = offsets
	return offsets, nil
}
