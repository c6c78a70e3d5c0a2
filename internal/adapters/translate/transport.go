// Package translate is the websocket client for the translation
// backend: audio chunks out as binary frames, captions, latency and the
// transport-side roster back as JSON envelopes.
package translate

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

var ErrNotConnected = errors.New("translation transport not connected")

type Transport struct {
	url string

	mu      sync.RWMutex
	conn    *wsConn
	cancel  context.CancelFunc
	state   core.TranslationState
	onState func(core.TranslationState)
}

func NewTransport(wsURL string) *Transport {
	return &Transport{url: wsURL}
}

func (t *Transport) Connect(ctx context.Context, roomID domain.RoomID, token string) error {
	u, err := url.Parse(t.url)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("room", string(roomID))
	u.RawQuery = q.Encode()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return err
	}

	conn := newWSConn(ws)
	connCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		cancel()
		conn.close()
		return errors.New("already connected")
	}
	t.conn = conn
	t.cancel = cancel
	t.state.Connected = true
	t.state.LastError = ""
	input, output := t.state.InputLanguage, t.state.OutputLanguage
	t.mu.Unlock()

	go conn.writePump(connCtx)
	go t.readPump(connCtx, conn)

	// Push the desired language pair as soon as the channel is live.
	if input != "" && output != "" {
		_ = t.sendJSON(map[string]string{"type": "languages", "input": input, "output": output})
	}

	log.Info().Str("module", "translate").Str("room", string(roomID)).Msg("connected")
	t.notifyState()
	return nil
}

func (t *Transport) Disconnect() {
	t.mu.Lock()
	conn := t.conn
	cancel := t.cancel
	t.conn = nil
	t.cancel = nil
	t.state.Connected = false
	t.state.Roster = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.close()
		log.Info().Str("module", "translate").Msg("disconnected")
		t.notifyState()
	}
}

// OnStateChange registers the connection-state listener.
func (t *Transport) OnStateChange(fn func(core.TranslationState)) {
	t.mu.Lock()
	t.onState = fn
	t.mu.Unlock()
}

func (t *Transport) notifyState() {
	t.mu.RLock()
	fn := t.onState
	t.mu.RUnlock()
	if fn != nil {
		fn(t.State())
	}
}

// SendAudioChunk forwards one encoded chunk. No queueing beyond the send
// buffer, no retry: a dropped chunk is simply not resent.
func (t *Transport) SendAudioChunk(f core.Frame) error {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.trySend(websocket.BinaryMessage, f)
}

// UpdateLanguages records the desired pair and pushes it when the
// channel is open. The recorded pair is replayed on the next connect.
func (t *Transport) UpdateLanguages(input, output string) error {
	t.mu.Lock()
	t.state.InputLanguage = input
	t.state.OutputLanguage = output
	open := t.conn != nil
	t.mu.Unlock()
	if !open {
		return nil
	}
	return t.sendJSON(map[string]string{"type": "languages", "input": input, "output": output})
}

func (t *Transport) Mute() {
	if err := t.sendJSON(map[string]string{"type": "mute"}); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Warn().Err(err).Str("module", "translate").Msg("mute send failed")
	}
}

func (t *Transport) Unmute() {
	if err := t.sendJSON(map[string]string{"type": "unmute"}); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Warn().Err(err).Str("module", "translate").Msg("unmute send failed")
	}
}

func (t *Transport) State() core.TranslationState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.state
	s.Roster = append([]domain.UserID(nil), t.state.Roster...)
	return s
}

func (t *Transport) sendJSON(v any) error {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.trySend(websocket.TextMessage, b)
}

func (t *Transport) readPump(ctx context.Context, conn *wsConn) {
	defer func() {
		t.mu.Lock()
		owned := t.conn == conn
		if owned {
			t.conn = nil
			t.state.Connected = false
			t.state.Roster = nil
		}
		t.mu.Unlock()
		conn.close()
		// Only the conn that still owns the transport reports the drop;
		// a pump outliving an explicit Disconnect stays silent.
		if owned {
			t.notifyState()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Str("module", "translate").Msg("readPump read error")
				t.mu.Lock()
				t.state.LastError = err.Error()
				t.mu.Unlock()
			}
			return
		}
		t.handleEnvelope(data)
	}
}

func (t *Transport) handleEnvelope(data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "translate").Msg("bad json")
		return
	}

	switch env.Type {
	case "caption":
		var p struct {
			Text      string `json:"text"`
			LatencyMs int64  `json:"latency_ms"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			log.Error().Err(err).Str("module", "translate").Msg("bad caption payload")
			return
		}
		t.mu.Lock()
		t.state.LastCaption = p.Text
		t.state.LatencyMs = p.LatencyMs
		t.mu.Unlock()
	case "roster":
		var p struct {
			Participants []domain.UserID `json:"participants"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			log.Error().Err(err).Str("module", "translate").Msg("bad roster payload")
			return
		}
		t.mu.Lock()
		t.state.Roster = p.Participants
		t.mu.Unlock()
	case "error":
		var p struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &p)
		log.Warn().Str("module", "translate").Str("error", p.Error).Msg("backend error")
		t.mu.Lock()
		t.state.LastError = p.Error
		t.mu.Unlock()
	default:
		log.Warn().Str("module", "translate").Str("type", env.Type).Msg("unknown envelope")
	}
}
