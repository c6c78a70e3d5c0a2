package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TempIDPrefix marks client-local message ids. Server ids never carry it,
// so there is no collision window between optimistic and confirmed entries.
const TempIDPrefix = "tmp-"

// MessageState tags the delivery lifecycle of a chat entry.
type MessageState int

const (
	MessagePending MessageState = iota
	MessageConfirmed
)

// ChatMessage is one chat entry. Language empty means auto-detect.
type ChatMessage struct {
	ID         string       `json:"id"`
	RoomID     RoomID       `json:"room_id"`
	UserID     UserID       `json:"user_id"`
	UserName   string       `json:"user_name"`
	Content    string       `json:"content"`
	Language   string       `json:"language,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	Translated string       `json:"translated_content,omitempty"`
	State      MessageState `json:"-"`
	// Translating is a transient UI flag, never persisted.
	Translating bool `json:"-"`
}

// NewPendingMessage builds an optimistic entry with a temporary id.
func NewPendingMessage(roomID RoomID, userID UserID, userName, content, language string) ChatMessage {
	return ChatMessage{
		ID:        TempIDPrefix + uuid.NewString(),
		RoomID:    roomID,
		UserID:    userID,
		UserName:  userName,
		Content:   content,
		Language:  language,
		CreatedAt: time.Now(),
		State:     MessagePending,
	}
}

func (m ChatMessage) IsTemp() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}
