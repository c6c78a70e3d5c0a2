package meeting

import (
	"github.com/lingomeet/lingomeet/internal/app/roster"
	"github.com/lingomeet/lingomeet/internal/core"
	"github.com/lingomeet/lingomeet/internal/domain"
)

// Banner ids for the two transport-connect failure classes.
const (
	BannerMedia       = "media"
	BannerTranslation = "translation"
)

// Banner is a dismissible degraded-mode notice.
type Banner struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (o *Orchestrator) addBanner(id, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, b := range o.banners {
		if b.ID == id {
			return
		}
	}
	o.banners = append(o.banners, Banner{ID: id, Text: text})
}

// DismissBanner removes the addressed banner; reports whether it existed.
func (o *Orchestrator) DismissBanner(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, b := range o.banners {
		if b.ID == id {
			o.banners = append(o.banners[:i], o.banners[i+1:]...)
			return true
		}
	}
	return false
}

func (o *Orchestrator) Banners() []Banner {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Banner, len(o.banners))
	copy(out, o.banners)
	return out
}

// Status is the per-render snapshot of the meeting.
type Status struct {
	InMeeting       bool                   `json:"in_meeting"`
	RoomID          domain.RoomID          `json:"room_id,omitempty"`
	IsHost          bool                   `json:"is_host"`
	Muted           bool                   `json:"muted"`
	VideoOff        bool                   `json:"video_off"`
	ScreenSharing   bool                   `json:"screen_sharing"`
	Fullscreen      bool                   `json:"fullscreen"`
	ChatVisible     bool                   `json:"chat_visible"`
	Captions        bool                   `json:"captions"`
	ControlsVisible bool                   `json:"controls_visible"`
	CaptureFormat   string                 `json:"capture_format,omitempty"`
	Participants    []core.Participant     `json:"participants"`
	Translation     core.TranslationState  `json:"translation"`
	Banners         []Banner               `json:"banners"`
	Expired         bool                   `json:"expired"`
}

// Status recomputes the reconciled roster from the two live sources and
// snapshots every toggle. Purely a read-side projection.
func (o *Orchestrator) Status() Status {
	translation := o.Transport.State()
	media := o.Media.Participants()

	// Display names come from chat traffic; the media and translation
	// layers only carry ids.
	var names map[domain.UserID]string
	if o.Chat != nil {
		names = make(map[domain.UserID]string)
		for _, m := range o.Chat.Messages() {
			if m.UserName != "" {
				names[m.UserID] = m.UserName
			}
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	s := Status{
		InMeeting:       o.session != nil,
		IsHost:          o.session != nil && o.session.IsHost,
		Muted:           o.muted,
		VideoOff:        o.videoOff,
		ScreenSharing:   o.sharing,
		Fullscreen:      o.fullscreen,
		ChatVisible:     o.chatVisible,
		Captions:        o.captions,
		ControlsVisible: o.controlsShown,
		CaptureFormat:   o.Audio.Format(),
		Translation:     translation,
		Banners:         append([]Banner(nil), o.banners...),
		Expired:         o.expired,
	}
	var local domain.UserID
	if o.session != nil {
		s.RoomID = o.session.RoomID
		local = o.session.LocalID
	}
	s.Participants = roster.Reconcile(local, media, translation.Roster, names)
	return s
}
