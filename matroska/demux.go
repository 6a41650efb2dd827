// Package matroska implements a read-only demultiplexer for the
// Matroska/WebM container format atop the ebml package: header
// validation, track enumeration, and per-track Cluster/Block
// traversal with lacing support.
package matroska

import "github.com/webmcast/mkvdemux/ebml"

// Demuxer holds the session state for one opened Matroska/WebM file:
// the retained Segment element and one streamState per track.
type Demuxer struct {
	segment ebml.Element
	infos   []StreamInfo
	states  []*streamState
}

// Open validates the header and enumerates tracks from source,
// returning a ready-to-read Demuxer.
func Open(source ebml.ByteSource) (*Demuxer, error) {
	segment, err := readHeader(source)
	if err != nil {
		return nil, err
	}
	infos, states, err := enumerateTracks(segment)
	if err != nil {
		return nil, err
	}
	return &Demuxer{segment: segment, infos: infos, states: states}, nil
}

// NumStreams returns the number of tracks found in the file.
func (d *Demuxer) NumStreams() int {
	return len(d.infos)
}

// StreamInfo returns the immutable descriptor for track i.
func (d *Demuxer) StreamInfo(i int) StreamInfo {
	return d.infos[i]
}

// Packet is one codec packet delivered by ReadData: either one whole
// Block (no lacing) or one subpacket of a laced Block.
type Packet struct {
	Data     []byte
	Timecode uint64
	Duration uint64
}

type endOfStream struct{}

func (endOfStream) Error() string { return "end of stream" }

// errEndOfStream is the sentinel ReadData returns; it is intentionally
// distinct from a FormatError so callers can tell "done" apart from
// "broken" with a type assertion or errors.Is.
var errEndOfStream error = endOfStream{}

// IsEndOfStream reports whether err is the end-of-stream sentinel
// returned by ReadData.
func IsEndOfStream(err error) bool {
	_, ok := err.(endOfStream)
	return ok
}

// ReadData delivers the next packet for track i. The returned Data
// slice aliases the track's internal buffer and is only valid until
// the next ReadData call on the same track index.
func (d *Demuxer) ReadData(i int) (Packet, error) {
	state := d.states[i]
	info := d.infos[i]

	if state.subpacketIndex >= state.subpacketCount {
		if err := readBlock(d.segment, info, state); err != nil {
			return Packet{}, err
		}
	}

	data, err := currentSubpacket(state)
	if err != nil {
		return Packet{}, err
	}
	pkt := Packet{
		Data:     data,
		Timecode: state.blockTimecode,
		Duration: state.blockDuration,
	}
	state.subpacketIndex++
	return pkt, nil
}

// readBlock advances state to the next Block belonging to info's
// track, loading its payload into state.buffer and resetting the
// lacing cursors. Returns errEndOfStream once no further Clusters or
// Blocks remain.
func readBlock(segment ebml.Element, info StreamInfo, state *streamState) error {
	for {
		state.blockCursor.Advance()
		state.blockCursor.Until(idBlockGroup, idSimpleBlock)
		for state.blockCursor.AtEnd() {
			noMoreClusters, err := advanceToNextCluster(state)
			if err != nil {
				return err
			}
			if noMoreClusters {
				return errEndOfStream
			}
		}

		current := state.blockCursor.Current()
		var block ebml.Element
		if current.ID == idBlockGroup {
			duration := info.DefaultDuration
			durationCursor := ebml.NewCursor(current.Payload)
			durationCursor.Until(idBlockDuration)
			if !durationCursor.AtEnd() {
				v, err := durationCursor.Current().ReadUint()
				if err != nil {
					return err
				}
				duration = v
			}
			state.blockDuration = duration

			blockChild := ebml.NewCursor(current.Payload)
			blockChild.Until(idBlock)
			if blockChild.AtEnd() {
				return ebml.NewFormatError("BlockGroup missing required Block element")
			}
			block = blockChild.Current()
		} else {
			block = current
			state.blockDuration = info.DefaultDuration
		}

		trackNumber, err := ebml.ReadUVint(block.Payload)
		if err != nil {
			return err
		}
		if trackNumber != info.TrackNumber {
			// Belongs to another track; keep scanning.
			continue
		}

		timeOffset, err := ebml.ReadInt(block.Payload, 2)
		if err != nil {
			return err
		}
		state.blockTimecode = uint64(int64(state.clusterTimecode) + timeOffset)

		var flags [1]byte
		if err := readExact(block.Payload, flags[:]); err != nil {
			return err
		}
		switch (flags[0] & 0x06) >> 1 {
		case 0:
			state.lacing = LacingNone
		case 1:
			state.lacing = LacingXiph
		case 2:
			state.lacing = LacingFixed
		case 3:
			state.lacing = LacingEBML
		}
		if state.lacing == LacingEBML {
			return ebml.NewFormatError("File uses EBML lacing, which is not yet implemented")
		}

		if state.lacing != LacingNone {
			var fc [1]byte
			if err := readExact(block.Payload, fc[:]); err != nil {
				return err
			}
			state.subpacketCount = int(fc[0]) + 1
		} else {
			state.subpacketCount = 1
		}
		state.subpacketIndex = 0
		state.xiphOffsets = nil

		remaining := int(block.Payload.Len() - block.Payload.Tell())
		if remaining < 0 {
			return ebml.NewFormatError("Block payload accounting underflow")
		}
		buf := state.growBuffer(remaining)
		if err := readExact(block.Payload, buf); err != nil {
			return err
		}
		state.blockSize = remaining
		state.blockPayload = block

		return nil
	}
}

// advanceToNextCluster moves state.clusterCursor to the next Cluster
// element (or the first, on the very first call), rebuilds
// blockCursor over that Cluster's payload, and resolves the Cluster's
// own Timecode child.
func advanceToNextCluster(state *streamState) (noMoreClusters bool, err error) {
	if !state.firstCluster {
		state.clusterCursor.Advance()
	}
	state.firstCluster = false
	state.clusterCursor.Until(idCluster)
	if state.clusterCursor.AtEnd() {
		return true, nil
	}
	cluster := state.clusterCursor.Current()
	state.blockCursor = ebml.NewCursor(cluster.Payload)
	state.blockCursor.Until(idBlockGroup, idSimpleBlock)

	timecodeCursor := ebml.NewCursor(cluster.Payload)
	timecodeCursor.Until(idTimecode)
	if timecodeCursor.AtEnd() {
		state.clusterTimecode = 0
		return false, nil
	}
	v, readErr := timecodeCursor.Current().ReadUint()
	if readErr != nil {
		return false, readErr
	}
	state.clusterTimecode = v
	return false, nil
}

func readExact(src ebml.ByteSource, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := src.Read(buf[read:])
		if err != nil {
			return err
		}
		if n == 0 {
			return ebml.NewIOError("read")
		}
		read += n
	}
	return nil
}
