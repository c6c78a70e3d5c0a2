package core

import (
	"context"

	"github.com/lingomeet/lingomeet/internal/domain"
)

// RoomAPI covers the room lifecycle endpoints.
type RoomAPI interface {
	// LeaveRoom notifies the room-leave endpoint. Best-effort; callers
	// may ignore the error.
	LeaveRoom(ctx context.Context, roomID domain.RoomID) error
	// DeleteRoom requests server-side room termination (host only).
	DeleteRoom(ctx context.Context, roomID domain.RoomID) error
	FetchRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, error)
}

// ProfileAPI covers the user profile endpoints.
type ProfileAPI interface {
	FetchProfile(ctx context.Context) (domain.Profile, error)
	SaveLanguages(ctx context.Context, pref domain.LanguagePreference) error
}

// ChatAPI covers the chat REST endpoints.
type ChatAPI interface {
	History(ctx context.Context, roomID domain.RoomID, limit int) ([]domain.ChatMessage, error)
	// Send posts a message and returns the server-confirmed entry.
	Send(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error)
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// ChatSocket is one live real-time chat connection.
type ChatSocket interface {
	// ReadMessage blocks until the next inbound chat message. Non-message
	// envelopes are consumed internally.
	ReadMessage() (domain.ChatMessage, error)
	// Ping writes one keep-alive envelope.
	Ping() error
	Close()
}

// ChatDialer opens the real-time chat channel for a room.
type ChatDialer func(ctx context.Context, roomID domain.RoomID, token string) (ChatSocket, error)
