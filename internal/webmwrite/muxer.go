// Package webmwrite is a deliberately minimal Matroska/WebM writer: it
// exists to produce the fixture and capture files the rest of this
// repository reads back, not to compete with a general-purpose muxer.
// SimpleBlock only, no lacing, a new Cluster on every keyframe or once
// more than a second has passed since the current one started, for any
// track. Grounded on the EBML element and
// varint writers of the project's original WebM muxer.
package webmwrite

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Matroska EBML IDs this writer emits.
const (
	idEBMLHeader  = 0x1A45DFA3
	idSegment     = 0x18538067
	idInfo        = 0x1549A966
	idTracks      = 0x1654AE6B
	idCluster     = 0x1F43B675
	idTimecode    = 0xE7
	idSimpleBlock = 0xA3

	idTimecodeScale = 0x2AD7B1
	idMuxingApp     = 0x4D80
	idWritingApp    = 0x5741

	idTrackEntry = 0xAE
	idTrackNum   = 0xD7
	idTrackUID   = 0x73C5
	idTrackType  = 0x83
	idCodecID    = 0x86

	trackTypeVideo = 0x01
	trackTypeAudio = 0x02
)

// Track describes one track to be muxed.
type Track struct {
	Number   uint64
	UID      uint64
	CodecID  string
	IsVideo  bool // selects TrackType video vs. audio
}

// Muxer writes a single Matroska/WebM stream to an io.Writer.
//
// Clusters are buffered in memory and flushed with an exact size once
// the next one starts (or Close is called): the reader's sibling
// cursor walks Clusters by their declared size, so an unknown-size
// Cluster would only ever be readable as the last one in the file.
type Muxer struct {
	w       *bufio.Writer
	tracks  []Track
	mu      sync.Mutex
	started bool

	clusterBuf  *bytes.Buffer
	clusterTime uint64
	haveCluster bool
}

// New builds a Muxer over w for the given tracks. Call Start once
// before any WriteFrame call.
func New(w io.Writer, tracks []Track) *Muxer {
	return &Muxer{w: bufio.NewWriterSize(w, 4*1024), tracks: tracks}
}

// Start writes the EBML header, Segment header (unknown size), Info
// and Tracks elements.
func (m *Muxer) Start() error {
	if err := m.writeEBMLHeader(); err != nil {
		return fmt.Errorf("webmwrite: EBML header: %w", err)
	}
	if err := m.writeSegmentHeader(); err != nil {
		return fmt.Errorf("webmwrite: Segment header: %w", err)
	}
	if err := m.writeInfo(); err != nil {
		return fmt.Errorf("webmwrite: Info: %w", err)
	}
	if err := m.writeTracks(); err != nil {
		return fmt.Errorf("webmwrite: Tracks: %w", err)
	}
	if err := m.w.Flush(); err != nil {
		return fmt.Errorf("webmwrite: flush header: %w", err)
	}
	m.started = true
	return nil
}

// WriteFrame appends one SimpleBlock for trackNumber at timecodeMs,
// starting a new Cluster when keyframe is set or more than a second
// has passed since the last one.
func (m *Muxer) WriteFrame(trackNumber uint64, data []byte, timecodeMs uint64, keyframe bool) error {
	if !m.started {
		return fmt.Errorf("webmwrite: WriteFrame before Start")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	needNewCluster := !m.haveCluster || keyframe || timecodeMs < m.clusterTime || timecodeMs-m.clusterTime > 1000
	if needNewCluster {
		if err := m.startCluster(timecodeMs); err != nil {
			return err
		}
	}
	block := &bytes.Buffer{}
	if err := writeVarInt(block, trackNumber); err != nil {
		return err
	}
	relative := int16(int64(timecodeMs) - int64(m.clusterTime))
	if err := binary.Write(block, binary.BigEndian, relative); err != nil {
		return err
	}
	flags := byte(0)
	if keyframe {
		flags |= 0x80
	}
	block.WriteByte(flags)
	block.Write(data)

	return writeElement(m.clusterBuf, idSimpleBlock, block.Bytes())
}

// Close flushes the pending Cluster, if any, and any buffered bytes.
// It does not close an underlying writer that also implements
// io.Closer; the caller owns that.
func (m *Muxer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.flushCluster(); err != nil {
		return err
	}
	return m.w.Flush()
}

func (m *Muxer) startCluster(timecodeMs uint64) error {
	if err := m.flushCluster(); err != nil {
		return err
	}
	m.clusterTime = timecodeMs
	m.haveCluster = true
	m.clusterBuf = &bytes.Buffer{}
	return writeElement(m.clusterBuf, idTimecode, encodeUint(timecodeMs))
}

// flushCluster writes the buffered Cluster to the underlying writer
// with its now-known exact size, and clears the buffer.
func (m *Muxer) flushCluster() error {
	if m.clusterBuf == nil {
		return nil
	}
	if err := writeElement(m.w, idCluster, m.clusterBuf.Bytes()); err != nil {
		return err
	}
	m.clusterBuf = nil
	return nil
}

func (m *Muxer) writeEBMLHeader() error {
	header := []byte{
		0x1A, 0x45, 0xDF, 0xA3,
		0xA3, // size = 35 bytes of child elements below
		0x42, 0x86, 0x81, 0x01, // EBMLVersion = 1
		0x42, 0xF7, 0x81, 0x01, // EBMLReadVersion = 1
		0x42, 0xF2, 0x81, 0x04, // EBMLMaxIDLength = 4
		0x42, 0xF3, 0x81, 0x08, // EBMLMaxSizeLength = 8
		0x42, 0x82, 0x88, 'm', 'a', 't', 'r', 'o', 's', 'k', 'a',
		0x42, 0x87, 0x81, 0x04, // DocTypeVersion = 4
		0x42, 0x85, 0x81, 0x02, // DocTypeReadVersion = 2
	}
	_, err := m.w.Write(header)
	return err
}

func (m *Muxer) writeSegmentHeader() error {
	_, err := m.w.Write([]byte{0x18, 0x53, 0x80, 0x67, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	return err
}

func (m *Muxer) writeInfo() error {
	info := &bytes.Buffer{}
	if err := writeElement(info, idTimecodeScale, encodeUint(1000000)); err != nil {
		return err
	}
	if err := writeElement(info, idMuxingApp, []byte("mkvdemux-capture")); err != nil {
		return err
	}
	if err := writeElement(info, idWritingApp, []byte("mkvdemux-capture")); err != nil {
		return err
	}
	return writeElement(m.w, idInfo, info.Bytes())
}

func (m *Muxer) writeTracks() error {
	tracks := &bytes.Buffer{}
	for _, t := range m.tracks {
		entry := &bytes.Buffer{}
		if err := writeElement(entry, idTrackNum, encodeUint(t.Number)); err != nil {
			return err
		}
		if err := writeElement(entry, idTrackUID, encodeUint(t.UID)); err != nil {
			return err
		}
		trackType := byte(trackTypeAudio)
		if t.IsVideo {
			trackType = trackTypeVideo
		}
		if err := writeElement(entry, idTrackType, []byte{trackType}); err != nil {
			return err
		}
		if err := writeElement(entry, idCodecID, []byte(t.CodecID)); err != nil {
			return err
		}
		if err := writeElement(tracks, idTrackEntry, entry.Bytes()); err != nil {
			return err
		}
	}
	return writeElement(m.w, idTracks, tracks.Bytes())
}

func writeElement(w io.Writer, id uint32, data []byte) error {
	if err := writeID(w, id); err != nil {
		return err
	}
	if err := writeVarInt(w, uint64(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func writeID(w io.Writer, id uint32) error {
	switch {
	case id <= 0xFF:
		_, err := w.Write([]byte{byte(id)})
		return err
	case id <= 0xFFFF:
		return binary.Write(w, binary.BigEndian, uint16(id))
	case id <= 0xFFFFFF:
		_, err := w.Write([]byte{byte(id >> 16), byte(id >> 8), byte(id)})
		return err
	default:
		return binary.Write(w, binary.BigEndian, id)
	}
}

func writeVarInt(w io.Writer, n uint64) error {
	switch {
	case n < 1<<7-1:
		_, err := w.Write([]byte{byte(n) | 0x80})
		return err
	case n < 1<<14-1:
		_, err := w.Write([]byte{byte(n>>8) | 0x40, byte(n)})
		return err
	case n < 1<<21-1:
		_, err := w.Write([]byte{byte(n>>16) | 0x20, byte(n >> 8), byte(n)})
		return err
	case n < 1<<28-1:
		_, err := w.Write([]byte{byte(n>>24) | 0x10, byte(n >> 16), byte(n >> 8), byte(n)})
		return err
	default:
		return fmt.Errorf("webmwrite: varint too large: %d", n)
	}
}

func encodeUint(n uint64) []byte {
	if n == 0 {
		return []byte{0}
	}
	buf := make([]byte, 8)
	size := 0
	for i := 7; i >= 0; i-- {
		if n>>(uint(i)*8) > 0 || size > 0 {
			buf[size] = byte(n >> (uint(i) * 8))
			size++
		}
	}
	return buf[:size]
}
