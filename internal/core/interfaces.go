package core

import (
	"context"

	"github.com/lingomeet/lingomeet/internal/domain"
)

// Frame is a raw binary payload (e.g. an encoded audio chunk).
type Frame []byte

// MediaStream is a handle to a live media stream.
// Owned by the media layer; consumers hold read access only.
type MediaStream interface {
	ID() string
	AudioTrack() AudioTrack
}

// AudioTrack exposes the encoded frames of one audio track.
type AudioTrack interface {
	// ReadFrame blocks until the next encoded frame or an error.
	// After the owning stream stops it returns a terminal error.
	ReadFrame() ([]byte, error)
	// SupportedFormats lists container/codec combinations the runtime
	// can produce for this track.
	SupportedFormats() []string
}

// MediaParticipant is the media layer's view of one remote peer.
type MediaParticipant struct {
	Stream   MediaStream
	Muted    bool
	VideoOff bool
}

// MediaSession is the opaque peer-media capability the orchestrator
// consumes. Codec negotiation and topology live behind it.
type MediaSession interface {
	// Start joins the room's media channel and returns the local stream.
	Start(ctx context.Context, roomID domain.RoomID) (MediaStream, error)
	Stop()
	ToggleMute() bool
	ToggleVideo() bool
	Participants() map[domain.UserID]MediaParticipant
	Connected() bool
}

// TranslationState is wholly owned by the translation transport; the
// orchestrator only reads it.
type TranslationState struct {
	Connected      bool
	InputLanguage  string
	OutputLanguage string
	LastCaption    string
	LatencyMs      int64
	Roster         []domain.UserID
	LastError      string
}

// TranslationTransport streams microphone audio out and receives
// translated captions back. Independent of the media session.
type TranslationTransport interface {
	Connect(ctx context.Context, roomID domain.RoomID, token string) error
	Disconnect()
	SendAudioChunk(Frame) error
	UpdateLanguages(input, output string) error
	Mute()
	Unmute()
	State() TranslationState
	// OnStateChange registers the listener invoked after every connection
	// transition (connect, disconnect, remote close). A single listener;
	// registering replaces the previous one.
	OnStateChange(func(TranslationState))
}

// Participant is the reconciled per-render view of one meeting member.
// Stream is nil for translation-only placeholders.
type Participant struct {
	ID       domain.UserID
	Stream   MediaStream
	Muted    bool
	VideoOff bool
	Language string
	Name     string
}
