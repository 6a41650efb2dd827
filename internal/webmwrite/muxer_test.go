package webmwrite

import (
	"bytes"
	"testing"

	"github.com/webmcast/mkvdemux/ebml"
	"github.com/webmcast/mkvdemux/matroska"
)

func TestRoundTripThroughReader(t *testing.T) {
	buf := &bytes.Buffer{}
	mux := New(buf, []Track{
		{Number: 1, UID: 11, CodecID: "V_VP8", IsVideo: true},
		{Number: 2, UID: 22, CodecID: "A_VORBIS", IsVideo: false},
	})
	if err := mux.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	videoFrames := [][]byte{{0x10, 0x20}, {0x30, 0x40}, {0x50, 0x60}}
	for i, data := range videoFrames {
		if err := mux.WriteFrame(1, data, uint64(i*33), i == 0); err != nil {
			t.Fatalf("WriteFrame video %d: %v", i, err)
		}
	}
	audioFrames := [][]byte{{0xAA}, {0xBB}}
	for i, data := range audioFrames {
		if err := mux.WriteFrame(2, data, uint64(i*20), true); err != nil {
			t.Fatalf("WriteFrame audio %d: %v", i, err)
		}
	}
	if err := mux.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	demux, err := matroska.Open(ebml.NewMemorySource(buf.Bytes()))
	if err != nil {
		t.Fatalf("matroska.Open: %v", err)
	}
	if demux.NumStreams() != 2 {
		t.Fatalf("got %d streams, want 2", demux.NumStreams())
	}
	if demux.StreamInfo(0).Type != matroska.StreamVP8 {
		t.Fatalf("got track 0 type %v, want VP8", demux.StreamInfo(0).Type)
	}

	for i, want := range videoFrames {
		pkt, err := demux.ReadData(0)
		if err != nil {
			t.Fatalf("ReadData video %d: %v", i, err)
		}
		if !bytes.Equal(pkt.Data, want) {
			t.Fatalf("video frame %d: got %v, want %v", i, pkt.Data, want)
		}
	}
	if _, err := demux.ReadData(0); !matroska.IsEndOfStream(err) {
		t.Fatalf("expected end of stream on track 0, got %v", err)
	}

	for i, want := range audioFrames {
		pkt, err := demux.ReadData(1)
		if err != nil {
			t.Fatalf("ReadData audio %d: %v", i, err)
		}
		if !bytes.Equal(pkt.Data, want) {
			t.Fatalf("audio frame %d: got %v, want %v", i, pkt.Data, want)
		}
	}
}
