package language

import (
	"context"

	"github.com/lingomeet/lingomeet/internal/core"
	"github.com/lingomeet/lingomeet/internal/domain"
)

// stubTransportBase satisfies core.TranslationTransport with no-ops so
// tests only override what they observe.
type stubTransportBase struct{}

func (stubTransportBase) Connect(context.Context, domain.RoomID, string) error { return nil }
func (stubTransportBase) Disconnect()                                          {}
func (stubTransportBase) SendAudioChunk(core.Frame) error                      { return nil }
func (stubTransportBase) UpdateLanguages(string, string) error                 { return nil }
func (stubTransportBase) Mute()                                                {}
func (stubTransportBase) Unmute()                                              {}
func (stubTransportBase) State() core.TranslationState                         { return core.TranslationState{} }
func (stubTransportBase) OnStateChange(func(core.TranslationState))            {}
