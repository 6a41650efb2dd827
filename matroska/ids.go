package matroska

// Element ID constants, stripped of their vint length-marker bits, as
// laid out in the Matroska/WebM EBML schema.
const (
	idEBML              uint64 = 0xA45DFA3
	idEBMLReadVersion    uint64 = 0x2F7
	idDocType            uint64 = 0x282
	idSegment            uint64 = 0x8538067
	idCluster            uint64 = 0xF43B675
	idTracks             uint64 = 0x654AE6B
	idTrackEntry         uint64 = 0x2E
	idTrackNumber        uint64 = 0x57
	idTrackUID           uint64 = 0x33C5
	idFlagEnabled        uint64 = 0x39
	idFlagDefault        uint64 = 0x08
	idCodecID            uint64 = 0x06
	idCodecPrivate       uint64 = 0x23A2
	idBlockGroup         uint64 = 0x20
	idSimpleBlock        uint64 = 0x23
	idBlock              uint64 = 0x21
	idTimecode           uint64 = 0x67
	idDefaultDuration    uint64 = 0x3E383
	idTrackTimecodeScale uint64 = 0x3314F
	idBlockDuration      uint64 = 0x1B
)

const (
	codecVP8    = "V_VP8"
	codecTheora = "V_THEORA"
	codecVorbis = "A_VORBIS"
)
