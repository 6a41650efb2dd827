// Command whep-capture receives a WHEP stream, muxes it to a Matroska
// file, then re-opens that file with the matroska reader as a
// round-trip sanity check.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/webmcast/mkvdemux/internal/capture"
	"github.com/webmcast/mkvdemux/internal/debuglog"
	"github.com/webmcast/mkvdemux/internal/mkvsource"
	"github.com/webmcast/mkvdemux/matroska"
)

var (
	whepURL string
	output  string
	maxWait time.Duration
	debug   bool
)

func init() {
	pflag.StringVarP(&whepURL, "url", "u", "http://localhost:8080/whep", "WHEP server URL")
	pflag.StringVarP(&output, "output", "o", "capture.webm", "output .webm path")
	pflag.DurationVar(&maxWait, "max-wait", 15*time.Second, "how long to wait for tracks before giving up")
	pflag.BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "whep-capture - capture a WHEP stream to Matroska\n\nUsage:\n  %s [flags]\n\nFlags:\n", os.Args[0])
		pflag.PrintDefaults()
	}
}

func main() {
	pflag.Parse()
	debuglog.Enabled = debug
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "whep-capture: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}

	cfg := capture.Config{WHEPURL: whepURL, MaxWait: maxWait}
	captureErr := capture.Run(cfg, f)
	if closeErr := f.Close(); captureErr == nil {
		captureErr = closeErr
	}
	if captureErr != nil {
		return fmt.Errorf("capture: %w", captureErr)
	}

	fmt.Fprintf(os.Stderr, "wrote %s, verifying by re-reading it\n", output)
	return verify(output)
}

// verify re-opens the file just written with the reader package, to
// confirm the writer and reader agree on the wire format.
func verify(path string) error {
	src, err := mkvsource.Open(path)
	if err != nil {
		return fmt.Errorf("verify: open: %w", err)
	}
	defer src.Close()

	demux, err := matroska.Open(src)
	if err != nil {
		return fmt.Errorf("verify: parse: %w", err)
	}
	fmt.Fprintf(os.Stderr, "verify: %d track(s):\n", demux.NumStreams())
	for i := 0; i < demux.NumStreams(); i++ {
		info := demux.StreamInfo(i)
		count := 0
		for {
			if _, err := demux.ReadData(i); err != nil {
				if matroska.IsEndOfStream(err) {
					break
				}
				return fmt.Errorf("verify: track %d: %w", i, err)
			}
			count++
		}
		fmt.Fprintf(os.Stderr, "  track %d: type=%s packets=%d\n", i, info.Type, count)
	}
	return nil
}
