// Package roster merges the two independently-updating participant
// sources into one addressable set. It holds no state of its own: the
// projection is recomputed from fresh snapshots on every call, so it
// cannot desync from either source.
package roster

import (
	"sort"

	"github.com/lingomeet/lingomeet/internal/core"
	"github.com/lingomeet/lingomeet/internal/domain"
)

// DefaultLanguage is assigned to synthesized placeholder entries.
const DefaultLanguage = "en"

// Reconcile produces a duplicate-free participant set from the media
// participant map (authoritative for stream and flags) and the
// translation transport's roster ids. Ids known only to the translation
// side become placeholders: nil stream, video off, unmuted. Media-layer
// data wins on conflict. Display names come from the names index; ids
// without an entry stay nameless. The result is sorted by id for stable
// rendering.
func Reconcile(local domain.UserID, media map[domain.UserID]core.MediaParticipant, translation []domain.UserID, names map[domain.UserID]string) []core.Participant {
	out := make([]core.Participant, 0, len(media)+len(translation))
	seen := make(map[domain.UserID]bool, len(media))

	for id, mp := range media {
		seen[id] = true
		out = append(out, core.Participant{
			ID:       id,
			Stream:   mp.Stream,
			Muted:    mp.Muted,
			VideoOff: mp.VideoOff,
			Language: DefaultLanguage,
			Name:     names[id],
		})
	}

	for _, id := range translation {
		if id == local || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, core.Participant{
			ID:       id,
			Stream:   nil,
			Muted:    false,
			VideoOff: true,
			Language: DefaultLanguage,
			Name:     names[id],
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
