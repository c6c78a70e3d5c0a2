// Package media is the pion-backed peer-media capability. Codec and
// topology details stay behind core.MediaSession; the orchestration
// layers only see streams, flags and the participant map.
package media

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/lingomeet/lingomeet/internal/core"
	"github.com/lingomeet/lingomeet/internal/domain"
)

var (
	ErrNotStarted = errors.New("media session not started")
	ErrStopped    = errors.New("media session stopped while starting")
)

// CaptureSource provides encoded frames from the local microphone.
// Platform capture lives behind this boundary.
type CaptureSource interface {
	NextFrame() ([]byte, error)
	Formats() []string
}

// Signaler carries the SDP exchange to the meeting backend.
type Signaler interface {
	Offer(ctx context.Context, roomID domain.RoomID, sdp string) (answer string, err error)
}

type Config struct {
	STUNServers []string
}

func (c Config) webrtcConfiguration() webrtc.Configuration {
	servers := c.STUNServers
	if len(servers) == 0 {
		servers = []string{"stun:stun.l.google.com:19302"}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: servers}},
	}
}

type Session struct {
	cfg      Config
	capture  CaptureSource
	signaler Signaler

	mu        sync.RWMutex
	gen       int
	pc        *webrtc.PeerConnection
	cancel    context.CancelFunc
	connected bool
	muted     bool
	videoOff  bool
	local     *localStream
	remotes   map[domain.UserID]*remoteStream
}

func NewSession(cfg Config, capture CaptureSource, signaler Signaler) *Session {
	return &Session{
		cfg:      cfg,
		capture:  capture,
		signaler: signaler,
		remotes:  make(map[domain.UserID]*remoteStream),
	}
}

// Start joins the room's media channel and returns the local stream.
// Each start yields a stream with a fresh identity.
func (s *Session) Start(ctx context.Context, roomID domain.RoomID) (core.MediaStream, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	pc, err := webrtc.NewPeerConnection(s.cfg.webrtcConfiguration())
	if err != nil {
		return nil, err
	}

	sessCtx, cancel := context.WithCancel(ctx)

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		log.Info().Str("module", "media").Str("ice_state", state.String()).Msg("ICE state")
		if state == webrtc.ICEConnectionStateDisconnected ||
			state == webrtc.ICEConnectionStateFailed ||
			state == webrtc.ICEConnectionStateClosed {
			cancel()
		}
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Info().Str("module", "media").Str("peer_state", state.String()).Msg("peer state")
		s.mu.Lock()
		s.connected = state == webrtc.PeerConnectionStateConnected
		s.mu.Unlock()
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		s.onRemoteTrack(sessCtx, track)
	})

	local := newLocalStream(uuid.NewString(), s.capture)
	sender, err := pc.AddTrack(local.track)
	if err != nil {
		cancel()
		_ = pc.Close()
		return nil, err
	}
	go drainRTCP(sessCtx, sender)
	go local.pump(sessCtx)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		cancel()
		_ = pc.Close()
		return nil, err
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		cancel()
		_ = pc.Close()
		return nil, err
	}
	<-gathered

	answer, err := s.signaler.Offer(ctx, roomID, pc.LocalDescription().SDP)
	if err != nil {
		cancel()
		_ = pc.Close()
		return nil, err
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		cancel()
		_ = pc.Close()
		return nil, err
	}

	if !s.install(gen, pc, cancel, local) {
		// Stop ran while negotiation was in flight; discard rather than
		// resurrect a torn-down session.
		cancel()
		_ = pc.Close()
		return nil, ErrStopped
	}

	log.Info().Str("module", "media").Str("room", string(roomID)).Str("stream", local.id).Msg("media started")
	return local, nil
}

// install publishes a freshly-negotiated peer connection unless Stop ran
// since the start began.
func (s *Session) install(gen int, pc *webrtc.PeerConnection, cancel context.CancelFunc, local *localStream) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.pc = pc
	s.cancel = cancel
	s.local = local
	s.remotes = make(map[domain.UserID]*remoteStream)
	return true
}

func (s *Session) Stop() {
	s.mu.Lock()
	s.gen++
	pc := s.pc
	cancel := s.cancel
	s.pc = nil
	s.cancel = nil
	s.local = nil
	s.remotes = make(map[domain.UserID]*remoteStream)
	s.connected = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if pc != nil {
		if err := pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "media").Msg("close error")
		} else {
			log.Info().Str("module", "media").Msg("media stopped")
		}
	}
}

func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	if s.local != nil {
		s.local.setMuted(s.muted)
	}
	return s.muted
}

func (s *Session) ToggleVideo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoOff = !s.videoOff
	return s.videoOff
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Participants snapshots the remote peers keyed by participant id.
func (s *Session) Participants() map[domain.UserID]core.MediaParticipant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.UserID]core.MediaParticipant, len(s.remotes))
	for id, r := range s.remotes {
		out[id] = core.MediaParticipant{
			Stream:   r,
			Muted:    r.isMuted(),
			VideoOff: !r.hasVideo(),
		}
	}
	return out
}

// onRemoteTrack registers an arriving remote track under the publisher's
// participant id (carried as the remote stream id).
func (s *Session) onRemoteTrack(ctx context.Context, track *webrtc.TrackRemote) {
	id := domain.UserID(track.StreamID())
	log.Info().
		Str("module", "media").
		Str("participant", string(id)).
		Str("kind", track.Kind().String()).
		Str("track_id", track.ID()).
		Msg("remote track")

	s.mu.Lock()
	r, ok := s.remotes[id]
	if !ok {
		r = newRemoteStream(track.StreamID())
		s.remotes[id] = r
	}
	s.mu.Unlock()

	r.attach(ctx, track)
}

func drainRTCP(ctx context.Context, sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
