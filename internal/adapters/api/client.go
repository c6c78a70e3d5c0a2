// Package api is the HTTP client for the room, profile and chat
// endpoints. Every call carries the bearer token; a 401 anywhere fires
// the session-expired hook exactly once per client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lingomeet/lingomeet/internal/domain"
)

var ErrSessionExpired = errors.New("session expired")

type Client struct {
	baseURL string
	http    *http.Client

	mu        sync.RWMutex
	token     string
	onExpired func()
	expired   bool
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the bearer token for subsequent calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expired = false
}

// OnSessionExpired installs the forced-logout hook.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = fn
}

func (c *Client) LeaveRoom(ctx context.Context, roomID domain.RoomID) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(string(roomID))+"/leave", nil, nil)
}

func (c *Client) DeleteRoom(ctx context.Context, roomID domain.RoomID) error {
	return c.do(ctx, http.MethodDelete, "/rooms/"+url.PathEscape(string(roomID)), nil, nil)
}

func (c *Client) FetchRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, error) {
	var room domain.Room
	err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(string(roomID)), nil, &room)
	return room, err
}

func (c *Client) FetchProfile(ctx context.Context) (domain.Profile, error) {
	var profile domain.Profile
	err := c.do(ctx, http.MethodGet, "/profile/me", nil, &profile)
	return profile, err
}

func (c *Client) SaveLanguages(ctx context.Context, pref domain.LanguagePreference) error {
	return c.do(ctx, http.MethodPut, "/profile/languages", pref, nil)
}

func (c *Client) History(ctx context.Context, roomID domain.RoomID, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	path := "/chat/messages/" + url.PathEscape(string(roomID)) + "?limit=" + strconv.Itoa(limit)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Send(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	var out domain.ChatMessage
	err := c.do(ctx, http.MethodPost, "/chat/messages", msg, &out)
	return out, err
}

type offerRequest struct {
	SDP string `json:"sdp"`
}

type offerResponse struct {
	SDP string `json:"sdp"`
}

// Offer exchanges the local SDP offer for the backend's answer.
func (c *Client) Offer(ctx context.Context, roomID domain.RoomID, sdp string) (string, error) {
	var out offerResponse
	path := "/rooms/" + url.PathEscape(string(roomID)) + "/offer"
	if err := c.do(ctx, http.MethodPost, path, offerRequest{SDP: sdp}, &out); err != nil {
		return "", err
	}
	return out.SDP, nil
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source_language"`
	Target string `json:"target_language"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	var out translateResponse
	req := translateRequest{Text: text, Source: source, Target: target}
	if err := c.do(ctx, http.MethodPost, "/chat/translate", req, &out); err != nil {
		return "", err
	}
	return out.TranslatedText, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.fireExpired()
		return ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) fireExpired() {
	c.mu.Lock()
	fn := c.onExpired
	already := c.expired
	c.expired = true
	c.mu.Unlock()
	if already {
		return
	}
	log.Warn().Str("module", "api").Msg("received 401, session expired")
	if fn != nil {
		fn()
	}
}
