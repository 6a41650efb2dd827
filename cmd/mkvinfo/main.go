// Command mkvinfo prints the track layout of a Matroska/WebM file and
// optionally dumps packet sizes, exercising the ebml/matroska reader
// against real files from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/webmcast/mkvdemux/internal/mkvsource"
	"github.com/webmcast/mkvdemux/matroska"
)

var (
	dumpPackets  bool
	maxPackets   int
	extractTrack int
	outPath      string
)

func init() {
	pflag.BoolVarP(&dumpPackets, "packets", "p", false, "print each packet's timecode and size")
	pflag.IntVarP(&maxPackets, "max-packets", "n", 20, "stop after this many packets per track when -p is set")
	pflag.IntVar(&extractTrack, "extract", -1, "track index to extract raw packet payloads from")
	pflag.StringVar(&outPath, "out", "", "output file for --extract (required with --extract)")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mkvinfo - inspect a Matroska/WebM file\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [flags] <file.webm|file.mkv>\n\nFlags:\n", os.Args[0])
		pflag.PrintDefaults()
	}
}

func main() {
	pflag.Parse()
	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	if extractTrack >= 0 && outPath == "" {
		fmt.Fprintln(os.Stderr, "mkvinfo: --extract requires --out")
		os.Exit(2)
	}

	if err := run(pflag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "mkvinfo: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	src, err := mkvsource.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	demux, err := matroska.Open(src)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	fmt.Printf("%s: %d track(s)\n", path, demux.NumStreams())
	for i := 0; i < demux.NumStreams(); i++ {
		info := demux.StreamInfo(i)
		fmt.Printf("  track %d: number=%d uid=%d type=%s enabled=%t default=%t\n",
			i, info.TrackNumber, info.TrackUID, info.Type, info.IsEnabled, info.IsDefault)
	}

	if extractTrack >= 0 {
		if extractTrack >= demux.NumStreams() {
			return fmt.Errorf("--extract %d: file only has %d track(s)", extractTrack, demux.NumStreams())
		}
		return extract(demux, extractTrack, outPath)
	}

	if !dumpPackets {
		return nil
	}
	for i := 0; i < demux.NumStreams(); i++ {
		fmt.Printf("track %d packets:\n", i)
		for n := 0; n < maxPackets; n++ {
			pkt, err := demux.ReadData(i)
			if err != nil {
				if matroska.IsEndOfStream(err) {
					break
				}
				return fmt.Errorf("track %d: %w", i, err)
			}
			fmt.Printf("  [%d] timecode=%dms duration=%dms size=%d\n", n, pkt.Timecode, pkt.Duration, len(pkt.Data))
		}
	}
	return nil
}

// extract copies every packet payload for track i to a raw file on
// disk, one ReadData call per write: Packet.Data aliases the track's
// internal buffer and is only valid until the next ReadData call on
// the same track, so it must be written out before looping again.
func extract(demux *matroska.Demuxer, i int, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	count := 0
	for {
		pkt, err := demux.ReadData(i)
		if err != nil {
			if matroska.IsEndOfStream(err) {
				break
			}
			return fmt.Errorf("track %d: %w", i, err)
		}
		if _, err := out.Write(pkt.Data); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		count++
	}
	fmt.Printf("extracted %d packet(s) from track %d to %s\n", count, i, path)
	return nil
}
