package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lingomeet/lingomeet/internal/core"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// echoBackend records inbound frames and serves scripted envelopes.
type echoBackend struct {
	inbound chan []byte
	serve   chan string
}

func (b *echoBackend) handler(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	go func() {
		for env := range b.serve {
			ws.WriteMessage(websocket.TextMessage, []byte(env))
		}
	}()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		b.inbound <- data
	}
}

func newTestTransport(t *testing.T) (*Transport, *echoBackend) {
	t.Helper()
	backend := &echoBackend{inbound: make(chan []byte, 16), serve: make(chan string, 16)}
	srv := httptest.NewServer(http.HandlerFunc(backend.handler))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(backend.serve) })

	tr := NewTransport("ws" + strings.TrimPrefix(srv.URL, "http"))
	if err := tr.Connect(context.Background(), "room-1", "tok"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(tr.Disconnect)
	return tr, backend
}

func waitState(t *testing.T, tr *Transport, cond func(core.TranslationState) bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond(tr.State()) {
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestCaptionAndLatencyUpdateState(t *testing.T) {
	t.Parallel()

	tr, backend := newTestTransport(t)
	backend.serve <- `{"type":"caption","text":"olá","latency_ms":230}`

	waitState(t, tr, func(s core.TranslationState) bool {
		return s.LastCaption == "olá" && s.LatencyMs == 230
	}, "caption never reached the state snapshot")
}

func TestRosterEnvelopeUpdatesState(t *testing.T) {
	t.Parallel()

	tr, backend := newTestTransport(t)
	backend.serve <- `{"type":"roster","participants":["alice","bob"]}`

	waitState(t, tr, func(s core.TranslationState) bool {
		return len(s.Roster) == 2
	}, "roster never reached the state snapshot")
}

func TestSendAudioChunkArrivesBinary(t *testing.T) {
	t.Parallel()

	tr, backend := newTestTransport(t)
	if err := tr.SendAudioChunk(core.Frame{1, 2, 3}); err != nil {
		t.Fatalf("SendAudioChunk failed: %v", err)
	}
	select {
	case data := <-backend.inbound:
		if len(data) != 3 {
			t.Errorf("unexpected chunk payload %v", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("chunk never arrived")
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	t.Parallel()

	tr := NewTransport("ws://127.0.0.1:0")
	if err := tr.SendAudioChunk(core.Frame{1}); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	// Language updates while closed are recorded, not an error.
	if err := tr.UpdateLanguages("pt", "en"); err != nil {
		t.Fatalf("UpdateLanguages while closed must record the pair: %v", err)
	}
	s := tr.State()
	if s.InputLanguage != "pt" || s.OutputLanguage != "en" {
		t.Errorf("pair not recorded: %+v", s)
	}
}

func TestRemoteCloseNotifiesListener(t *testing.T) {
	t.Parallel()

	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- ws
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	tr := NewTransport("ws" + strings.TrimPrefix(srv.URL, "http"))
	states := make(chan core.TranslationState, 8)
	tr.OnStateChange(func(s core.TranslationState) { states <- s })

	if err := tr.Connect(context.Background(), "room-1", "tok"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(tr.Disconnect)

	select {
	case s := <-states:
		if !s.Connected {
			t.Fatalf("connect notification must report connected: %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification on connect")
	}

	// Backend drops the connection; the read pump must report it.
	(<-conns).Close()

	select {
	case s := <-states:
		if s.Connected {
			t.Fatalf("drop notification must report disconnected: %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification when the backend closed the connection")
	}
}

func TestDisconnectClearsConnectedState(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTransport(t)
	if !tr.State().Connected {
		t.Fatal("expected connected state")
	}
	tr.Disconnect()
	if tr.State().Connected {
		t.Fatal("expected disconnected state")
	}
	// Idempotent.
	tr.Disconnect()
}
