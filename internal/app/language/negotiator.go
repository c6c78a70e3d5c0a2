// Package language holds the user's speak/understand language sets and
// pushes changes to their two consumers: the translation transport and
// chat translation requests.
package language

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lingomeet/lingomeet/internal/core"
	"github.com/lingomeet/lingomeet/internal/domain"
)

type Negotiator struct {
	api       core.ProfileAPI
	transport core.TranslationTransport

	mu   sync.RWMutex
	pref domain.LanguagePreference
}

func NewNegotiator(api core.ProfileAPI, transport core.TranslationTransport) *Negotiator {
	return &Negotiator{api: api, transport: transport}
}

// Load seeds the local sets from the profile endpoint.
func (n *Negotiator) Load(ctx context.Context) error {
	profile, err := n.api.FetchProfile(ctx)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.pref = profile.Languages
	n.mu.Unlock()
	return nil
}

// Save validates and persists the sets, then reconfigures the translation
// transport with the primary of each. Empty sets are rejected before any
// network call.
func (n *Negotiator) Save(ctx context.Context, speaks, understands []string) error {
	pref, err := domain.NewLanguagePreference(speaks, understands)
	if err != nil {
		return err
	}
	if err := n.api.SaveLanguages(ctx, pref); err != nil {
		return err
	}

	n.mu.Lock()
	n.pref = pref
	n.mu.Unlock()

	if err := n.transport.UpdateLanguages(pref.PrimarySpoken(), pref.PrimaryUnderstood()); err != nil {
		// Persisted state is already correct; the transport picks the
		// languages up on its next connect.
		log.Warn().Err(err).Str("module", "language").Msg("transport reconfigure failed")
	}
	return nil
}

// Preference returns a snapshot of the current sets.
func (n *Negotiator) Preference() domain.LanguagePreference {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pref
}

// ChatTarget is the normalized target language for chat translation.
func (n *Negotiator) ChatTarget() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if t := Normalize(n.pref.PrimaryUnderstood()); t != Unset {
		return t
	}
	return "en"
}
