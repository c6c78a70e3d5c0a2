package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lingomeet/lingomeet/internal/app/audio"
	"github.com/lingomeet/lingomeet/internal/app/chat"
	"github.com/lingomeet/lingomeet/internal/app/meeting"
	"github.com/lingomeet/lingomeet/internal/config"
	"github.com/lingomeet/lingomeet/internal/core"
	"github.com/lingomeet/lingomeet/internal/domain"
)

type stubMedia struct{}

func (stubMedia) Start(context.Context, domain.RoomID) (core.MediaStream, error) { return nil, nil }
func (stubMedia) Stop()                                                          {}
func (stubMedia) ToggleMute() bool                                               { return true }
func (stubMedia) ToggleVideo() bool                                              { return true }
func (stubMedia) Participants() map[domain.UserID]core.MediaParticipant          { return nil }
func (stubMedia) Connected() bool                                                { return false }

type stubTransport struct{ muted bool }

func (t *stubTransport) Connect(context.Context, domain.RoomID, string) error { return nil }
func (t *stubTransport) Disconnect()                                          {}
func (t *stubTransport) SendAudioChunk(core.Frame) error                      { return nil }
func (t *stubTransport) UpdateLanguages(string, string) error                 { return nil }
func (t *stubTransport) Mute()                                                { t.muted = true }
func (t *stubTransport) Unmute()                                              { t.muted = false }
func (t *stubTransport) State() core.TranslationState                         { return core.TranslationState{} }
func (t *stubTransport) OnStateChange(func(core.TranslationState))            {}

type stubRooms struct{}

func (stubRooms) LeaveRoom(context.Context, domain.RoomID) error  { return nil }
func (stubRooms) DeleteRoom(context.Context, domain.RoomID) error { return nil }
func (stubRooms) FetchRoom(context.Context, domain.RoomID) (domain.Room, error) {
	return domain.Room{}, nil
}

type stubProfiles struct{}

func (stubProfiles) FetchProfile(context.Context) (domain.Profile, error) {
	return domain.Profile{ID: "u1", Name: "User"}, nil
}
func (stubProfiles) SaveLanguages(context.Context, domain.LanguagePreference) error { return nil }

type stubChatAPI struct{ sends int }

func (a *stubChatAPI) History(context.Context, domain.RoomID, int) ([]domain.ChatMessage, error) {
	return nil, nil
}
func (a *stubChatAPI) Send(_ context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	a.sends++
	msg.ID = "srv-1"
	msg.State = domain.MessageConfirmed
	return msg, nil
}
func (a *stubChatAPI) Translate(context.Context, string, string, string) (string, error) {
	return "", nil
}

func newTestRouter(t *testing.T, limit int) (*httptest.Server, *stubChatAPI) {
	t.Helper()

	chatAPI := &stubChatAPI{}
	svc := chat.NewService(chatAPI, nil, func() string { return "en" })
	svc.Bind("room-1", "tok", "u1", "User")

	transport := &stubTransport{}
	orch := meeting.New(stubMedia{}, transport, stubRooms{}, stubProfiles{},
		audio.NewPipeline(transport), svc, nil)

	cfg := &config.Config{Mode: "release", Secret: "test-secret", StaticPath: t.TempDir()}
	r := SetupRouter(cfg, NewController(orch, NewRateLimiter(limit, time.Minute)))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chatAPI
}

func newCookieClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestRouter(t, 10)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var status meeting.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.InMeeting {
		t.Error("fresh agent must not report an active meeting")
	}
	if !status.ControlsVisible {
		t.Error("controls must be visible by default")
	}
}

func TestToggleMuteEndpoint(t *testing.T) {
	srv, _ := newTestRouter(t, 10)

	resp, err := http.Post(srv.URL+"/api/controls/mute", "application/json", nil)
	if err != nil {
		t.Fatalf("mute request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode toggle reply: %v", err)
	}
	if !body.Enabled {
		t.Error("first mute toggle must report muted")
	}
}

func TestChatSendRateLimited(t *testing.T) {
	srv, chatAPI := newTestRouter(t, 2)

	// Reuse one client so the client-token cookie persists across sends.
	jar := newCookieClient()
	payload := `{"content":"hello"}`
	for i := 0; i < 2; i++ {
		resp, err := jar.Post(srv.URL+"/api/chat/send", "application/json", strings.NewReader(payload))
		if err != nil {
			t.Fatalf("send %d failed: %v", i+1, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("send %d: expected 200, got %d", i+1, resp.StatusCode)
		}
	}

	resp, err := jar.Post(srv.URL+"/api/chat/send", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("third send failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", resp.StatusCode)
	}
	if chatAPI.sends != 2 {
		t.Errorf("expected 2 upstream sends, got %d", chatAPI.sends)
	}
}

func TestDismissUnknownBanner(t *testing.T) {
	srv, _ := newTestRouter(t, 10)

	resp, err := http.Post(srv.URL+"/api/banners/nope/dismiss", "application/json", nil)
	if err != nil {
		t.Fatalf("dismiss request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown banner, got %d", resp.StatusCode)
	}
}

func TestEndForAllWithoutMeeting(t *testing.T) {
	srv, _ := newTestRouter(t, 10)

	resp, err := http.Post(srv.URL+"/api/session/end", "application/json", nil)
	if err != nil {
		t.Fatalf("end request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 outside a meeting, got %d", resp.StatusCode)
	}
}
