package matroska

// StreamType identifies the codec carried by a track, recognised by an
// exact CodecID string match. Anything not recognised comes back as
// StreamUnknown — that is not an error, the packets are still
// delivered to the caller untouched.
type StreamType int

const (
	StreamUnknown StreamType = iota
	StreamVP8
	StreamTheora
	StreamVorbis
)

func (t StreamType) String() string {
	switch t {
	case StreamVP8:
		return "VP8"
	case StreamTheora:
		return "Theora"
	case StreamVorbis:
		return "Vorbis"
	default:
		return "Unknown"
	}
}

func streamTypeFromCodecID(codecID string) StreamType {
	switch codecID {
	case codecVP8:
		return StreamVP8
	case codecTheora:
		return StreamTheora
	case codecVorbis:
		return StreamVorbis
	default:
		return StreamUnknown
	}
}

// Lacing identifies how a Block's payload packs multiple subpackets.
type Lacing int

const (
	LacingNone Lacing = iota
	LacingXiph
	LacingFixed
	LacingEBML
)

// StreamInfo describes one track. It is immutable once enumeration
// finishes.
type StreamInfo struct {
	Type            StreamType
	TrackUID        uint64
	TrackNumber     uint64
	DefaultDuration uint64
	IsEnabled       bool
	IsDefault       bool
}
