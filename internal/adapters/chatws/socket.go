// Package chatws dials the per-room real-time chat channel. Inbound
// traffic is `{"type":"new_message","message":{...}}` envelopes; the
// outbound keep-alive is `{"type":"ping"}`.
package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lingomeet/lingomeet/internal/core"
	"github.com/lingomeet/lingomeet/internal/domain"
)

// Dialer returns a core.ChatDialer bound to the chat websocket base URL.
func Dialer(wsURL string) core.ChatDialer {
	return func(ctx context.Context, roomID domain.RoomID, token string) (core.ChatSocket, error) {
		u, err := url.Parse(wsURL)
		if err != nil {
			return nil, err
		}
		u.Path = u.Path + "/" + url.PathEscape(string(roomID))

		header := http.Header{}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
		if err != nil {
			return nil, err
		}
		log.Info().Str("module", "chatws").Str("room", string(roomID)).Msg("chat socket open")
		return &socket{conn: ws}, nil
	}
}

type socket struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

type inboundEnvelope struct {
	Type    string             `json:"type"`
	Message domain.ChatMessage `json:"message"`
}

// ReadMessage blocks until the next new_message envelope. Other envelope
// types are consumed and skipped.
func (s *socket) ReadMessage() (domain.ChatMessage, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return domain.ChatMessage{}, err
		}
		var env inboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Error().Err(err).Str("module", "chatws").Msg("bad envelope")
			continue
		}
		switch env.Type {
		case "new_message":
			return env.Message, nil
		case "pong":
			// Keep-alive answer, nothing to surface.
		default:
			log.Warn().Str("module", "chatws").Str("type", env.Type).Msg("unknown envelope")
		}
	}
}

func (s *socket) Ping() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("socket closed")
	}
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
}

func (s *socket) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	_ = s.conn.Close()
}
