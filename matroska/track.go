package matroska

import (
	"github.com/webmcast/mkvdemux/ebml"
)

// enumerateTracks locates the first Tracks element inside segment's
// payload and builds a StreamInfo/streamState pair per TrackEntry.
func enumerateTracks(segment ebml.Element) ([]StreamInfo, []*streamState, error) {
	tracks := ebml.NewCursor(segment.Payload)
	tracks.Until(idTracks)
	if tracks.AtEnd() {
		return nil, nil, ebml.NewFormatError("Missing required element: Tracks")
	}
	tracksElement := tracks.Current()

	var infos []StreamInfo
	var states []*streamState

	entries := ebml.NewCursor(tracksElement.Payload)
	for !entries.AtEnd() {
		if entries.Current().ID == idTrackEntry {
			info, state, err := readTrackEntry(segment, entries.Current())
			if err != nil {
				return nil, nil, err
			}
			infos = append(infos, info)
			states = append(states, state)
		}
		entries.Advance()
	}

	if len(infos) == 0 {
		return nil, nil, ebml.NewFormatError("Missing required element: TrackEntry")
	}
	return infos, states, nil
}

func readTrackEntry(segment ebml.Element, entry ebml.Element) (StreamInfo, *streamState, error) {
	info := StreamInfo{
		IsDefault: true,
		IsEnabled: true,
	}

	var haveCodecID, haveTrackUID, haveTrackNumber bool
	var codecID string
	var codecPrivate []byte
	haveCodecPrivate := false
	info.DefaultDuration = 0
	timecodeScale := float32(1.0)

	children := ebml.NewCursor(entry.Payload)
	for !children.AtEnd() {
		el := children.Current()
		switch el.ID {
		case idCodecID:
			s, err := el.ReadString()
			if err != nil {
				return StreamInfo{}, nil, err
			}
			codecID = s
			haveCodecID = true
		case idTrackUID:
			v, err := el.ReadUint()
			if err != nil {
				return StreamInfo{}, nil, err
			}
			info.TrackUID = v
			haveTrackUID = true
		case idTrackNumber:
			v, err := el.ReadUint()
			if err != nil {
				return StreamInfo{}, nil, err
			}
			info.TrackNumber = v
			haveTrackNumber = true
		case idFlagDefault:
			v, err := el.ReadUint()
			if err != nil {
				return StreamInfo{}, nil, err
			}
			info.IsDefault = v == 1
		case idFlagEnabled:
			v, err := el.ReadUint()
			if err != nil {
				return StreamInfo{}, nil, err
			}
			info.IsEnabled = v == 1
		case idDefaultDuration:
			v, err := el.ReadUint()
			if err != nil {
				return StreamInfo{}, nil, err
			}
			info.DefaultDuration = v
		case idTrackTimecodeScale:
			v, err := el.ReadFloat()
			if err != nil {
				return StreamInfo{}, nil, err
			}
			timecodeScale = float32(v)
		case idCodecPrivate:
			b, err := el.ReadBytes()
			if err != nil {
				return StreamInfo{}, nil, err
			}
			codecPrivate = b
			haveCodecPrivate = true
		}
		children.Advance()
	}

	if !haveCodecID || !haveTrackUID || !haveTrackNumber {
		return StreamInfo{}, nil, ebml.NewFormatError("Missing required element in TrackEntry")
	}
	info.Type = streamTypeFromCodecID(codecID)

	// clusterCursor starts on Segment's first child and blockCursor at
	// the sentinel end value, so readBlock's first call finds no block
	// and scans forward from there for the first Cluster, exactly like
	// every subsequent Cluster transition; the firstCluster flag below
	// is what keeps that first scan from skipping the current child.
	state := &streamState{
		clusterCursor: ebml.NewCursor(segment.Payload),
		blockCursor:   ebml.EndCursor(),
		firstCluster:  true,
		timecodeScale: timecodeScale,
	}

	if info.Type == StreamTheora && haveCodecPrivate && len(codecPrivate) > 0 {
		frameCount := int(codecPrivate[0])
		state.subpacketCount = frameCount + 1
		state.subpacketIndex = 0
		state.lacing = LacingXiph
		state.buffer = append([]byte(nil), codecPrivate[1:]...)
		state.blockSize = len(state.buffer)
	} else {
		state.lacing = LacingNone
		state.subpacketCount = 1
		state.subpacketIndex = 1
	}

	return info, state, nil
}
