package media

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"

	"github.com/lingomeet/lingomeet/internal/core"
)

var errStreamEnded = errors.New("stream ended")

const opusFrameDuration = 20 * time.Millisecond

// localStream fans the capture source out twice: into the peer
// connection's local track and into the audio pipeline via ReadFrame.
type localStream struct {
	id      string
	capture CaptureSource
	track   *webrtc.TrackLocalStaticSample

	mu     sync.Mutex
	muted  bool
	frames chan []byte
	done   chan struct{}
}

func newLocalStream(id string, capture CaptureSource) *localStream {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", id,
	)
	if err != nil {
		// Static capability, cannot fail with a well-formed mime type.
		log.Error().Err(err).Str("module", "media").Msg("local track create")
	}
	return &localStream{
		id:      id,
		capture: capture,
		track:   track,
		frames:  make(chan []byte, 64),
		done:    make(chan struct{}),
	}
}

func (l *localStream) ID() string                  { return l.id }
func (l *localStream) AudioTrack() core.AudioTrack { return l }

func (l *localStream) SupportedFormats() []string {
	if l.capture == nil {
		return nil
	}
	return l.capture.Formats()
}

// ReadFrame hands the pipeline the next captured frame.
func (l *localStream) ReadFrame() ([]byte, error) {
	select {
	case f, ok := <-l.frames:
		if !ok {
			return nil, errStreamEnded
		}
		return f, nil
	case <-l.done:
		return nil, errStreamEnded
	}
}

func (l *localStream) setMuted(muted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.muted = muted
}

func (l *localStream) isMuted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.muted
}

// pump reads capture frames, writes them to the peer track and mirrors
// them to the pipeline. Muted frames still flow to the peer layer (which
// silences them); the pipeline sees them too, the transport-side mute
// keeps them out of translation.
func (l *localStream) pump(ctx context.Context) {
	defer close(l.frames)
	if l.capture == nil {
		<-ctx.Done()
		return
	}
	for {
		if ctx.Err() != nil {
			return
		}
		frame, err := l.capture.NextFrame()
		if err != nil {
			log.Debug().Err(err).Str("module", "media").Msg("capture ended")
			return
		}
		if !l.isMuted() && l.track != nil {
			if err := l.track.WriteSample(media.Sample{Data: frame, Duration: opusFrameDuration}); err != nil {
				log.Debug().Err(err).Str("module", "media").Msg("local track write")
			}
		}
		select {
		case l.frames <- frame:
		case <-ctx.Done():
			return
		default:
			// Pipeline not draining; drop rather than block capture.
		}
	}
}

// remoteStream wraps one remote participant's tracks.
type remoteStream struct {
	id string

	mu        sync.Mutex
	video     bool
	audioSeen bool
	audioLive bool
	frames    chan []byte
}

func newRemoteStream(id string) *remoteStream {
	return &remoteStream{id: id, frames: make(chan []byte, 64)}
}

func (r *remoteStream) ID() string                  { return r.id }
func (r *remoteStream) AudioTrack() core.AudioTrack { return r }

func (r *remoteStream) SupportedFormats() []string { return nil }

func (r *remoteStream) ReadFrame() ([]byte, error) {
	f, ok := <-r.frames
	if !ok {
		return nil, errStreamEnded
	}
	return f, nil
}

func (r *remoteStream) hasVideo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.video
}

func (r *remoteStream) audioStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audioSeen = true
	r.audioLive = true
}

func (r *remoteStream) audioEnded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audioLive = false
}

// isMuted reports whether the peer's audio track ended while the stream
// stayed registered, which is how the backend signals a muted mic.
func (r *remoteStream) isMuted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.audioSeen && !r.audioLive
}

// deliver forwards one audio payload without ever blocking the read
// loop; video packets only matter for the presence flag.
func (r *remoteStream) deliver(pkt *rtp.Packet, kind webrtc.RTPCodecType) {
	if kind != webrtc.RTPCodecTypeAudio {
		return
	}
	select {
	case r.frames <- pkt.Payload:
	default:
		// Nobody draining this remote; keep the loop alive.
	}
}

// attach starts reading one arriving track. Audio payloads feed the
// frame channel; track presence drives the video and mute flags.
func (r *remoteStream) attach(ctx context.Context, track *webrtc.TrackRemote) {
	switch track.Kind() {
	case webrtc.RTPCodecTypeVideo:
		r.mu.Lock()
		r.video = true
		r.mu.Unlock()
	case webrtc.RTPCodecTypeAudio:
		r.audioStarted()
	}

	go func() {
		defer func() {
			switch track.Kind() {
			case webrtc.RTPCodecTypeVideo:
				r.mu.Lock()
				r.video = false
				r.mu.Unlock()
			case webrtc.RTPCodecTypeAudio:
				r.audioEnded()
			}
		}()
		for {
			if ctx.Err() != nil {
				return
			}
			pkt, _, err := track.ReadRTP()
			if err != nil {
				log.Debug().Err(err).Str("module", "media").Str("participant", r.id).Msg("remote track ended")
				return
			}
			r.deliver(pkt, track.Kind())
		}
	}()
}
