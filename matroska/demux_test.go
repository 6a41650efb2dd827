package matroska

import (
	"bytes"
	"testing"

	"github.com/webmcast/mkvdemux/ebml"
)

func buildFile(docType string, segmentPayload []byte) []byte {
	return concat(minimalHeader(docType), elem(idSegment, segmentPayload))
}

func openBytes(t *testing.T, data []byte) *Demuxer {
	t.Helper()
	d, err := Open(ebml.NewMemorySource(data))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return d
}

func TestHeaderOnlyWebMFailsConstruction(t *testing.T) {
	data := buildFile("webm", nil)
	_, err := Open(ebml.NewMemorySource(data))
	if err == nil {
		t.Fatal("expected construction to fail for a Segment with no Tracks")
	}
	if _, ok := err.(*ebml.FormatError); !ok {
		t.Fatalf("expected *ebml.FormatError, got %T: %v", err, err)
	}
}

func TestSingleVP8TrackOneClusterOneSimpleBlock(t *testing.T) {
	payload := []byte{0x9D, 0x01, 0x2A, 0x10, 0x11}
	cluster := elem(idCluster, concat(
		elem(idTimecode, uintBytes(0, 1)),
		elem(idSimpleBlock, simpleBlockPayload(1, 0, 0x00, nil, payload)),
	))
	segment := concat(
		elem(idTracks, trackEntry(1, 100, codecVP8)),
		cluster,
	)
	d := openBytes(t, buildFile("webm", segment))

	if d.NumStreams() != 1 {
		t.Fatalf("got %d streams, want 1", d.NumStreams())
	}
	if d.StreamInfo(0).Type != StreamVP8 {
		t.Fatalf("got type %v, want VP8", d.StreamInfo(0).Type)
	}

	pkt, err := d.ReadData(0)
	if err != nil {
		t.Fatalf("first ReadData: %v", err)
	}
	if !bytes.Equal(pkt.Data, payload) {
		t.Fatalf("got data %v, want %v", pkt.Data, payload)
	}
	if pkt.Timecode != 0 {
		t.Fatalf("got timecode %d, want 0", pkt.Timecode)
	}

	_, err = d.ReadData(0)
	if !IsEndOfStream(err) {
		t.Fatalf("second ReadData: expected end of stream, got %v", err)
	}
}

func TestFixedLacingThreeFrames(t *testing.T) {
	data := make([]byte, 12)
	for i := range data {
		data[i] = byte(i)
	}
	fc := byte(0x02)
	cluster := elem(idCluster, concat(
		elem(idTimecode, uintBytes(0, 1)),
		elem(idSimpleBlock, simpleBlockPayload(1, 0, 0b00000100, &fc, data)),
	))
	segment := concat(elem(idTracks, trackEntry(1, 1, codecVP8)), cluster)
	d := openBytes(t, buildFile("webm", segment))

	for i := 0; i < 3; i++ {
		pkt, err := d.ReadData(0)
		if err != nil {
			t.Fatalf("ReadData %d: %v", i, err)
		}
		want := data[i*4 : (i+1)*4]
		if !bytes.Equal(pkt.Data, want) {
			t.Fatalf("frame %d: got %v, want %v", i, pkt.Data, want)
		}
	}
	if _, err := d.ReadData(0); !IsEndOfStream(err) {
		t.Fatalf("expected end of stream after 3 frames, got %v", err)
	}
}

func TestXiphLacingThreeFrames(t *testing.T) {
	first := bytes.Repeat([]byte{'A'}, 257)
	second := bytes.Repeat([]byte{'B'}, 3)
	third := bytes.Repeat([]byte{'C'}, 5)
	prefix := []byte{0xFF, 0x02, 0x03}
	data := concat(prefix, first, second, third)

	fc := byte(0x02)
	cluster := elem(idCluster, concat(
		elem(idTimecode, uintBytes(0, 1)),
		elem(idSimpleBlock, simpleBlockPayload(1, 0, 0b00000010, &fc, data)),
	))
	segment := concat(elem(idTracks, trackEntry(1, 1, codecVP8)), cluster)
	d := openBytes(t, buildFile("webm", segment))

	wantSizes := []int{257, 3, 5}
	wantData := [][]byte{first, second, third}
	for i, want := range wantSizes {
		pkt, err := d.ReadData(0)
		if err != nil {
			t.Fatalf("ReadData %d: %v", i, err)
		}
		if len(pkt.Data) != want {
			t.Fatalf("subpacket %d: got size %d, want %d", i, len(pkt.Data), want)
		}
		if !bytes.Equal(pkt.Data, wantData[i]) {
			t.Fatalf("subpacket %d: content mismatch", i)
		}
	}
	if _, err := d.ReadData(0); !IsEndOfStream(err) {
		t.Fatalf("expected end of stream after 3 subpackets, got %v", err)
	}
}

func TestReservedEBMLLacingIsNotImplementedError(t *testing.T) {
	cluster := elem(idCluster, concat(
		elem(idTimecode, uintBytes(0, 1)),
		elem(idSimpleBlock, simpleBlockPayload(1, 0, 0b00000110, nil, []byte{0})),
	))
	segment := concat(elem(idTracks, trackEntry(1, 1, codecVP8)), cluster)
	d := openBytes(t, buildFile("webm", segment))

	_, err := d.ReadData(0)
	if err == nil {
		t.Fatal("expected an error for reserved EBML lacing")
	}
	if _, ok := err.(*ebml.FormatError); !ok {
		t.Fatalf("expected *ebml.FormatError, got %T: %v", err, err)
	}
}

func TestTrackOnlySeesItsOwnBlocks(t *testing.T) {
	cluster := elem(idCluster, concat(
		elem(idTimecode, uintBytes(0, 1)),
		elem(idSimpleBlock, simpleBlockPayload(2, 0, 0x00, nil, []byte{0xAA})),
	))
	segment := concat(elem(idTracks, trackEntry(1, 1, codecVP8)), cluster)
	d := openBytes(t, buildFile("webm", segment))

	if _, err := d.ReadData(0); !IsEndOfStream(err) {
		t.Fatalf("expected end of stream for a track with no matching blocks, got %v", err)
	}
}

func TestUnknownCodecIDYieldsUnknownType(t *testing.T) {
	segment := elem(idTracks, trackEntry(1, 1, "A_WEIRD_CODEC"))
	d := openBytes(t, buildFile("matroska", segment))
	if d.StreamInfo(0).Type != StreamUnknown {
		t.Fatalf("got type %v, want Unknown", d.StreamInfo(0).Type)
	}
}

func TestDocTypeExactly16BytesAccepted(t *testing.T) {
	doc := make([]byte, 16)
	copy(doc, "webm") // "webm" followed by zero padding, 16 bytes total
	data := concat(elem(idEBML, concat(
		elem(idEBMLReadVersion, uintBytes(1, 1)),
		elem(idDocType, doc),
	)), elem(idSegment, elem(idTracks, trackEntry(1, 1, codecVP8))))
	if _, err := Open(ebml.NewMemorySource(data)); err != nil {
		t.Fatalf("expected a 16-byte zero-padded DocType to be accepted, got %v", err)
	}
}

func TestEmptySegmentReturnsEndOfStreamImmediately(t *testing.T) {
	segment := elem(idTracks, trackEntry(1, 1, codecVP8))
	d := openBytes(t, buildFile("webm", segment))
	if _, err := d.ReadData(0); !IsEndOfStream(err) {
		t.Fatalf("expected end of stream for a track with no Clusters at all, got %v", err)
	}
}

func TestTheoraCodecPrivateIsPreSeededAsXiphLacedBlock(t *testing.T) {
	setupA := bytes.Repeat([]byte{'H'}, 10)
	setupB := bytes.Repeat([]byte{'C'}, 6)
	// frameCount byte (2 => 3 header packets), Xiph size prefix for the
	// first two, third is the remainder.
	codecPrivate := concat([]byte{0x02, 0x0A, 0x06}, setupA, setupB, []byte{'S'})
	trackPayload := concat(
		elem(idCodecID, []byte(codecTheora)),
		elem(idTrackUID, uintBytes(1, 2)),
		elem(idTrackNumber, uintBytes(1, 1)),
		elem(idCodecPrivate, codecPrivate),
	)
	segment := elem(idTracks, elem(idTrackEntry, trackPayload))
	d := openBytes(t, buildFile("webm", segment))

	if d.StreamInfo(0).Type != StreamTheora {
		t.Fatalf("got type %v, want Theora", d.StreamInfo(0).Type)
	}

	pkt, err := d.ReadData(0)
	if err != nil {
		t.Fatalf("first ReadData: %v", err)
	}
	if !bytes.Equal(pkt.Data, setupA) {
		t.Fatalf("got %v, want first setup packet of length %d", pkt.Data, len(setupA))
	}
	pkt, err = d.ReadData(0)
	if err != nil {
		t.Fatalf("second ReadData: %v", err)
	}
	if !bytes.Equal(pkt.Data, setupB) {
		t.Fatalf("got %v, want second setup packet of length %d", pkt.Data, len(setupB))
	}
	pkt, err = d.ReadData(0)
	if err != nil {
		t.Fatalf("third ReadData: %v", err)
	}
	if !bytes.Equal(pkt.Data, []byte{'S'}) {
		t.Fatalf("got %v, want final 1-byte setup packet", pkt.Data)
	}

	if _, err := d.ReadData(0); !IsEndOfStream(err) {
		t.Fatalf("expected end of stream once the seeded headers and empty Segment are exhausted, got %v", err)
	}
}

func TestDocTypeOver16BytesRejected(t *testing.T) {
	doc := make([]byte, 17)
	copy(doc, "webm")
	data := concat(elem(idEBML, concat(
		elem(idEBMLReadVersion, uintBytes(1, 1)),
		elem(idDocType, doc),
	)), elem(idSegment, elem(idTracks, trackEntry(1, 1, codecVP8))))
	_, err := Open(ebml.NewMemorySource(data))
	if err == nil {
		t.Fatal("expected over-length DocType to be rejected")
	}
}
