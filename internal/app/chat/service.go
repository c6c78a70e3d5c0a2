// Package chat manages message history, optimistic send, the real-time
// chat socket and per-message on-demand translation. It owns the message
// list exclusively; no other component mutates it.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lingomeet/lingomeet/internal/app/language"
	"github.com/lingomeet/lingomeet/internal/core"
	"github.com/lingomeet/lingomeet/internal/domain"
)

const (
	// HistoryLimit caps the initial history fetch.
	HistoryLimit = 100
	// KeepAlivePeriod is the ping cadence the chat endpoint expects.
	KeepAlivePeriod = 30 * time.Second
)

var (
	ErrNotBound        = errors.New("chat not bound to a room")
	ErrUnknownMessage  = errors.New("unknown message id")
	ErrAlreadyRunning  = errors.New("translation already in progress")
	ErrEmptyContent    = errors.New("empty message content")
)

type Service struct {
	api    core.ChatAPI
	dial   core.ChatDialer
	target func() string

	pingPeriod time.Duration

	mu        sync.Mutex
	roomID    domain.RoomID
	token     string
	self      domain.UserID
	selfName  string
	messages  []domain.ChatMessage
	compose   string
	loadedFor string
}

// NewService wires the chat subsystem. target yields the normalized
// translation target language (the user's primary understood language).
func NewService(api core.ChatAPI, dial core.ChatDialer, target func() string) *Service {
	return &Service{api: api, dial: dial, target: target, pingPeriod: KeepAlivePeriod}
}

// Bind keys the subsystem to a room/token pair. History and socket state
// from a previous room is discarded.
func (s *Service) Bind(roomID domain.RoomID, token string, self domain.UserID, selfName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID != roomID || s.token != token {
		s.messages = nil
		s.loadedFor = ""
	}
	s.roomID = roomID
	s.token = token
	s.self = self
	s.selfName = selfName
}

// LoadHistory fetches the most recent messages once per room/token pair.
// A failed fetch leaves the history empty and never blocks the component.
func (s *Service) LoadHistory(ctx context.Context) {
	s.mu.Lock()
	roomID, token := s.roomID, s.token
	key := string(roomID) + "|" + token
	if roomID == "" || s.loadedFor == key {
		s.mu.Unlock()
		return
	}
	s.loadedFor = key
	s.mu.Unlock()

	history, err := s.api.History(ctx, roomID, HistoryLimit)
	if err != nil {
		log.Error().Err(err).Str("module", "chat").Str("room", string(roomID)).Msg("history load failed")
		return
	}
	for i := range history {
		history[i].State = domain.MessageConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID != roomID || s.token != token {
		// Room changed while the fetch was in flight.
		return
	}
	s.messages = append(history, s.messages...)
}

// Run opens the real-time channel and pumps inbound messages until ctx
// is done or the connection errors. Connection errors are logged, not
// retried; retry is a fresh user action.
func (s *Service) Run(ctx context.Context) {
	s.mu.Lock()
	roomID, token := s.roomID, s.token
	s.mu.Unlock()
	if roomID == "" {
		log.Warn().Str("module", "chat").Msg("run without bound room")
		return
	}

	sock, err := s.dial(ctx, roomID, token)
	if err != nil {
		log.Error().Err(err).Str("module", "chat").Str("room", string(roomID)).Msg("socket dial failed")
		return
	}
	defer sock.Close()

	go s.keepAlive(ctx, sock)
	go func() {
		<-ctx.Done()
		sock.Close()
	}()

	for {
		msg, err := sock.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Str("module", "chat").Msg("socket read error")
			}
			return
		}
		msg.State = domain.MessageConfirmed
		s.mu.Lock()
		if s.roomID == roomID {
			s.messages = append(s.messages, msg)
		}
		s.mu.Unlock()
	}
}

func (s *Service) keepAlive(ctx context.Context, sock core.ChatSocket) {
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sock.Ping(); err != nil {
				log.Warn().Err(err).Str("module", "chat").Msg("keep-alive failed")
				return
			}
		}
	}
}

// Send appends an optimistic entry, posts it, and either swaps the temp
// id for the server id or rolls the entry back and restores the content
// to the compose box.
func (s *Service) Send(ctx context.Context, content string) error {
	if content == "" {
		return ErrEmptyContent
	}

	s.mu.Lock()
	if s.roomID == "" {
		s.mu.Unlock()
		return ErrNotBound
	}
	pending := domain.NewPendingMessage(s.roomID, s.self, s.selfName, content, "")
	roomID := s.roomID
	s.messages = append(s.messages, pending)
	s.compose = ""
	s.mu.Unlock()

	confirmed, err := s.api.Send(ctx, pending)

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(pending.ID)
	if err != nil {
		if idx >= 0 {
			s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
		}
		if s.roomID == roomID {
			s.compose = content
		}
		return err
	}
	if idx < 0 {
		// The room moved on while the send was in flight; drop silently.
		return nil
	}
	confirmed.State = domain.MessageConfirmed
	s.messages[idx] = confirmed
	return nil
}

// Translate resolves the message's source/target languages and fetches a
// translation once. Equal languages after normalization short-circuit by
// copying the content verbatim without a network call.
func (s *Service) Translate(ctx context.Context, id string) error {
	target := s.target()

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrUnknownMessage
	}
	msg := s.messages[idx]
	if msg.Translating {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	src := language.ResolveSource(msg.Language, msg.Content, target)
	if src == target {
		s.messages[idx].Translated = msg.Content
		if language.Normalize(msg.Language) == language.Unset {
			s.messages[idx].Language = src
		}
		s.mu.Unlock()
		return nil
	}
	s.messages[idx].Translating = true
	s.mu.Unlock()

	translated, err := s.api.Translate(ctx, msg.Content, src, target)

	s.mu.Lock()
	defer s.mu.Unlock()
	idx = s.indexOf(id)
	if idx < 0 {
		return nil
	}
	s.messages[idx].Translating = false
	if err != nil {
		// The translate action stays available for retry.
		log.Error().Err(err).Str("module", "chat").Str("message", id).Msg("translation failed")
		return err
	}
	s.messages[idx].Translated = translated
	if language.Normalize(s.messages[idx].Language) == language.Unset {
		s.messages[idx].Language = src
	}
	return nil
}

// Messages returns a copy of the current history.
func (s *Service) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Compose returns the compose-box content restored by a failed send.
func (s *Service) Compose() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compose
}

// indexOf must be called with s.mu held.
func (s *Service) indexOf(id string) int {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}
