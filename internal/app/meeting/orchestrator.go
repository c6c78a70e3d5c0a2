// Package meeting owns the meeting lifecycle and cross-cutting toggles,
// and ties the media session, translation transport, audio pipeline,
// chat subsystem and language negotiation together.
package meeting

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lingomeet/lingomeet/internal/app/audio"
	"github.com/lingomeet/lingomeet/internal/app/chat"
	"github.com/lingomeet/lingomeet/internal/app/language"
	"github.com/lingomeet/lingomeet/internal/core"
	"github.com/lingomeet/lingomeet/internal/domain"
)

var (
	ErrAlreadyInMeeting = errors.New("already in a meeting")
	ErrNotInMeeting     = errors.New("not in a meeting")
	ErrNotHost          = errors.New("only the host may end the meeting")
	ErrSessionExpired   = errors.New("session expired")
)

// ControlsIdleDelay hides the control bar after this much pointer idle
// time while in fullscreen.
const ControlsIdleDelay = 3 * time.Second

type Orchestrator struct {
	Media     core.MediaSession
	Transport core.TranslationTransport
	Rooms     core.RoomAPI
	Profiles  core.ProfileAPI
	Audio     *audio.Pipeline
	Chat      *chat.Service
	Languages *language.Negotiator

	idleDelay time.Duration

	mu             sync.Mutex
	session        *domain.Session
	localStream    core.MediaStream
	roomCtx        context.Context
	cancelRoom     context.CancelFunc
	muted          bool
	videoOff       bool
	sharing        bool
	fullscreen     bool
	chatVisible    bool
	captions       bool
	controlsShown  bool
	timerSuspended bool
	hideTimer      *time.Timer
	viewportH      int
	banners        []Banner
	expired        bool
}

func New(media core.MediaSession, transport core.TranslationTransport, rooms core.RoomAPI,
	profiles core.ProfileAPI, pipeline *audio.Pipeline, chatSvc *chat.Service,
	languages *language.Negotiator) *Orchestrator {
	o := &Orchestrator{
		Media:         media,
		Transport:     transport,
		Rooms:         rooms,
		Profiles:      profiles,
		Audio:         pipeline,
		Chat:          chatSvc,
		Languages:     languages,
		idleDelay:     ControlsIdleDelay,
		controlsShown: true,
	}
	transport.OnStateChange(o.handleTranslationState)
	return o
}

// handleTranslationState keeps the capture stage in sync with the
// translation connection: a dropped connection deactivates the pipeline
// within one tick, a reconnect reactivates it.
func (o *Orchestrator) handleTranslationState(st core.TranslationState) {
	o.mu.Lock()
	ctx := o.roomCtx
	stream := o.localStream
	o.mu.Unlock()
	if ctx == nil {
		return
	}
	o.Audio.Update(ctx, stream, st.Connected)
}

// Enter starts the media session and the translation transport in
// parallel. Either may fail independently; failures become dismissible
// banners and the meeting stays usable in degraded mode.
func (o *Orchestrator) Enter(ctx context.Context, roomID domain.RoomID, token string) error {
	o.mu.Lock()
	if o.session != nil {
		o.mu.Unlock()
		return ErrAlreadyInMeeting
	}
	// The meeting outlives the call that started it; detach from the
	// caller's cancellation.
	roomCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.roomCtx = roomCtx
	o.cancelRoom = cancel
	o.session = &domain.Session{RoomID: roomID, Token: token}
	o.mu.Unlock()

	profile, err := o.Profiles.FetchProfile(roomCtx)
	if err != nil {
		if o.Expired() {
			// Nothing is built yet; roll the session back and abort.
			o.mu.Lock()
			o.session = nil
			o.roomCtx = nil
			if o.cancelRoom != nil {
				o.cancelRoom()
				o.cancelRoom = nil
			}
			o.mu.Unlock()
			return ErrSessionExpired
		}
		log.Warn().Err(err).Str("module", "meeting").Msg("profile fetch failed")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		stream, err := o.Media.Start(roomCtx, roomID)
		if err != nil {
			log.Error().Err(err).Str("module", "meeting").Str("room", string(roomID)).Msg("media start failed")
			o.addBanner(BannerMedia, "Could not connect to the meeting video. Audio translation may still work.")
			return
		}
		o.mu.Lock()
		o.localStream = stream
		o.mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		if err := o.Transport.Connect(roomCtx, roomID, token); err != nil {
			log.Error().Err(err).Str("module", "meeting").Str("room", string(roomID)).Msg("translation connect failed")
			o.addBanner(BannerTranslation, "Live translation is unavailable. The meeting continues without it.")
		}
	}()
	wg.Wait()

	isHost := false
	if room, err := o.Rooms.FetchRoom(roomCtx, roomID); err == nil {
		isHost = sameIdentity(string(profile.ID), room.CreatedBy)
	} else {
		log.Warn().Err(err).Str("module", "meeting").Msg("room fetch failed, assuming non-host")
	}

	o.mu.Lock()
	if o.session == nil || o.session.RoomID != roomID {
		// Left while entering; everything is already torn down.
		o.mu.Unlock()
		return ErrNotInMeeting
	}
	o.session.IsHost = isHost
	o.session.LocalID = profile.ID
	stream := o.localStream
	o.mu.Unlock()

	if o.Languages != nil {
		if err := o.Languages.Load(roomCtx); err != nil {
			log.Warn().Err(err).Str("module", "meeting").Msg("language preference load failed")
		} else if pref := o.Languages.Preference(); pref.Validate() == nil {
			if err := o.Transport.UpdateLanguages(pref.PrimarySpoken(), pref.PrimaryUnderstood()); err != nil {
				log.Warn().Err(err).Str("module", "meeting").Msg("initial language push failed")
			}
		}
	}

	o.Audio.Update(roomCtx, stream, o.Transport.State().Connected)

	if o.Chat != nil {
		o.Chat.Bind(roomID, token, profile.ID, profile.Name)
		o.Chat.LoadHistory(roomCtx)
		go o.Chat.Run(roomCtx)
	}

	log.Info().Str("module", "meeting").Str("room", string(roomID)).Bool("host", isHost).Msg("entered meeting")
	return nil
}

// Leave tears the meeting down: best-effort room-leave notification,
// then media stop, then transport close. Each step's failure does not
// block the next. Idempotent.
func (o *Orchestrator) Leave(ctx context.Context) {
	o.mu.Lock()
	session := o.session
	if session == nil {
		o.mu.Unlock()
		return
	}
	o.session = nil
	o.mu.Unlock()

	if err := o.Rooms.LeaveRoom(ctx, session.RoomID); err != nil {
		log.Warn().Err(err).Str("module", "meeting").Msg("room leave notify failed")
	}
	o.teardown()
	log.Info().Str("module", "meeting").Str("room", string(session.RoomID)).Msg("left meeting")
}

// EndForAll requests server-side room termination before tearing down
// local state. Host only.
func (o *Orchestrator) EndForAll(ctx context.Context) error {
	o.mu.Lock()
	session := o.session
	if session == nil {
		o.mu.Unlock()
		return ErrNotInMeeting
	}
	if !session.IsHost {
		o.mu.Unlock()
		return ErrNotHost
	}
	o.mu.Unlock()

	if err := o.Rooms.DeleteRoom(ctx, session.RoomID); err != nil {
		return err
	}

	o.mu.Lock()
	o.session = nil
	o.mu.Unlock()
	o.teardown()
	log.Info().Str("module", "meeting").Str("room", string(session.RoomID)).Msg("meeting ended for all")
	return nil
}

// SessionExpired is the forced-logout hook: any 401 on an authenticated
// call lands here.
func (o *Orchestrator) SessionExpired() {
	o.mu.Lock()
	already := o.expired
	o.expired = true
	o.mu.Unlock()
	if !already {
		log.Warn().Str("module", "meeting").Msg("session expired")
	}
}

func (o *Orchestrator) Expired() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.expired
}

func (o *Orchestrator) teardown() {
	o.Audio.Stop()
	o.Media.Stop()
	o.Transport.Disconnect()

	o.mu.Lock()
	o.localStream = nil
	o.roomCtx = nil
	if o.cancelRoom != nil {
		o.cancelRoom()
		o.cancelRoom = nil
	}
	o.stopHideTimerLocked()
	o.fullscreen = false
	o.controlsShown = true
	o.mu.Unlock()
}

// sameIdentity compares user ids as normalized strings; the backend
// mixes numeric and string forms.
func sameIdentity(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	return a != "" && a == b
}
