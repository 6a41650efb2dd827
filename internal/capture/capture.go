// Package capture receives a VP8 video + Opus audio WHEP stream and
// muxes it into Matroska as it arrives, exercising the retained WebRTC
// stack as a live smoke test for the ebml/matroska reader: the written
// file is handed straight back to matroska.Open.
package capture

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/webmcast/mkvdemux/internal/debuglog"
	"github.com/webmcast/mkvdemux/internal/webmwrite"
)

// Config controls one capture session.
type Config struct {
	WHEPURL string
	MaxWait time.Duration // how long to wait for each track to arrive before giving up
}

const (
	trackNumVideo = 1
	trackNumAudio = 2
)

// Run connects to a WHEP endpoint, receives one video and one audio
// track, and writes a Matroska stream to w until both tracks have
// ended, each on end of stream or a read/write error. It blocks until
// the session completes.
func Run(cfg Config, w io.Writer) error {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		PayloadType:        97,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		return fmt.Errorf("capture: register VP8: %w", err)
	}
	if err := mediaEngine.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		PayloadType:        111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return fmt.Errorf("capture: register Opus: %w", err)
	}

	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return fmt.Errorf("capture: default interceptors: %w", err)
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine), webrtc.WithInterceptorRegistry(interceptorRegistry))
	config := webrtc.Configuration{ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}}

	pc, err := api.NewPeerConnection(config)
	if err != nil {
		return fmt.Errorf("capture: new peer connection: %w", err)
	}
	defer pc.Close()

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo,
		webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}); err != nil {
		return fmt.Errorf("capture: add video transceiver: %w", err)
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio,
		webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}); err != nil {
		return fmt.Errorf("capture: add audio transceiver: %w", err)
	}

	mux := webmwrite.New(w, []webmwrite.Track{
		{Number: trackNumVideo, UID: 1001, CodecID: "V_VP8", IsVideo: true},
		{Number: trackNumAudio, UID: 1002, CodecID: "A_OPUS", IsVideo: false},
	})

	tracks := make(chan *webrtc.TrackRemote, 2)
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		debuglog.Log("capture: track received: %s (%s)\n", track.Kind(), track.Codec().MimeType)
		tracks <- track
	})

	if err := exchangeSDP(pc, cfg.WHEPURL); err != nil {
		return err
	}

	if err := mux.Start(); err != nil {
		return fmt.Errorf("capture: start mux: %w", err)
	}

	videoPacer := newFramePacer(cfg.MaxWait)
	audioPacer := newFramePacer(cfg.MaxWait)
	audioPacer.clockRate = 48000 // Opus RTP clock, as registered above

	done := make(chan error, 2)
	remaining := 0
	for remaining < 2 {
		select {
		case track := <-tracks:
			remaining++
			if track.Kind() == webrtc.RTPCodecTypeVideo {
				go readTrack(track, trackNumVideo, mux, videoPacer, done)
			} else {
				go readTrack(track, trackNumAudio, mux, audioPacer, done)
			}
		case <-time.After(cfg.MaxWait):
			return fmt.Errorf("capture: timed out waiting for tracks")
		}
	}

	var firstErr error
	for i := 0; i < remaining; i++ {
		if err := <-done; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil && firstErr != io.EOF {
		return firstErr
	}
	return mux.Close()
}

// readTrack pulls RTP packets off track, strips the VP8 payload
// descriptor for video, and forwards each packet's payload as one
// frame. It is deliberately coarse: it does not reassemble VP8 frames
// split across multiple RTP packets, since the fixtures this pipeline
// targets are single-packet-per-frame test streams.
func readTrack(track *webrtc.TrackRemote, trackNumber uint64, mux *webmwrite.Muxer, pacer *framePacer, done chan<- error) {
	isVideo := trackNumber == trackNumVideo
	for {
		packet, _, err := track.ReadRTP()
		if err != nil {
			if err == io.EOF {
				done <- nil
			} else {
				done <- err
			}
			return
		}
		data := packet.Payload
		keyframe := true
		if isVideo {
			data = stripVP8PayloadDescriptor(data)
			keyframe = len(data) > 0 && data[0]&0x01 == 0
		}
		timecodeMs := pacer.timecodeFor(packet)
		if err := mux.WriteFrame(trackNumber, data, timecodeMs, keyframe); err != nil {
			done <- fmt.Errorf("capture: write frame: %w", err)
			return
		}
	}
}

// framePacer turns RTP timestamps (a fixed clock rate, arbitrary
// epoch) into milliseconds relative to the first packet seen.
type framePacer struct {
	clockRate  uint32
	haveFirst  bool
	firstStamp uint32
}

func newFramePacer(_ time.Duration) *framePacer {
	return &framePacer{clockRate: 90000}
}

func (p *framePacer) timecodeFor(packet *rtp.Packet) uint64 {
	if !p.haveFirst {
		p.firstStamp = packet.Timestamp
		p.haveFirst = true
	}
	delta := packet.Timestamp - p.firstStamp
	return uint64(delta) * 1000 / uint64(p.clockRate)
}

// stripVP8PayloadDescriptor removes the RFC 7741 VP8 payload
// descriptor, returning the raw VP8 bitstream.
func stripVP8PayloadDescriptor(data []byte) []byte {
	if len(data) < 1 {
		return data
	}
	headerSize := 1
	firstByte := data[0]
	if firstByte&0x80 != 0 {
		if len(data) < 2 {
			return data
		}
		headerSize++
		extByte := data[1]
		if extByte&0x80 != 0 {
			headerSize++
			if len(data) < headerSize {
				return data
			}
			if data[headerSize-1]&0x80 != 0 {
				headerSize++
			}
		}
		if extByte&0x40 != 0 {
			headerSize++
		}
		if extByte&0x20 != 0 || extByte&0x10 != 0 {
			headerSize++
		}
	}
	if len(data) <= headerSize {
		return data
	}
	return data[headerSize:]
}

func exchangeSDP(pc *webrtc.PeerConnection, url string) error {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("capture: create offer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("capture: set local description: %w", err)
	}
	<-gatherComplete

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(pc.LocalDescription().SDP)))
	if err != nil {
		return fmt.Errorf("capture: build WHEP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/sdp")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("capture: WHEP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("capture: WHEP server returned %d: %s", resp.StatusCode, body)
	}
	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("capture: read WHEP answer: %w", err)
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: string(answer)}); err != nil {
		return fmt.Errorf("capture: set remote description: %w", err)
	}
	return nil
}
