package language

import (
	"context"
	"errors"
	"testing"

	"github.com/lingomeet/lingomeet/internal/domain"
)

type stubProfileAPI struct {
	saved     []domain.LanguagePreference
	saveErr   error
	profile   domain.Profile
	fetchErr  error
	saveCalls int
}

func (s *stubProfileAPI) FetchProfile(context.Context) (domain.Profile, error) {
	return s.profile, s.fetchErr
}

func (s *stubProfileAPI) SaveLanguages(_ context.Context, pref domain.LanguagePreference) error {
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, pref)
	return nil
}

type stubTransport struct {
	stubTransportBase
	updates [][2]string
}

func (s *stubTransport) UpdateLanguages(input, output string) error {
	s.updates = append(s.updates, [2]string{input, output})
	return nil
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"pt-BR": "pt",
		"pt_br": "pt",
		"EN":    "en",
		"auto":  Unset,
		"":      Unset,
		" es ":  "es",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectMarkers(t *testing.T) {
	t.Parallel()

	if got := Detect("você vem hoje?", "en"); got != "pt" {
		t.Errorf("expected pt, got %q", got)
	}
	if got := Detect("¿cómo estás?", "en"); got != "es" {
		t.Errorf("expected es, got %q", got)
	}
	// No marker: fallback pairing.
	if got := Detect("hello there", "en"); got != "pt" {
		t.Errorf("target en must assume pt, got %q", got)
	}
	if got := Detect("hello there", "pt"); got != "en" {
		t.Errorf("non-en target must assume en, got %q", got)
	}
}

func TestResolveSourcePrefersDeclared(t *testing.T) {
	t.Parallel()

	if got := ResolveSource("ES_mx", "você", "en"); got != "es" {
		t.Errorf("declared language must win, got %q", got)
	}
	if got := ResolveSource("auto", "você", "en"); got != "pt" {
		t.Errorf("auto must fall through to detection, got %q", got)
	}
}

func TestSaveRejectsEmptySetsBeforeNetwork(t *testing.T) {
	t.Parallel()

	api := &stubProfileAPI{}
	n := NewNegotiator(api, &stubTransport{})

	err := n.Save(context.Background(), nil, []string{"en"})
	if !errors.Is(err, domain.ErrEmptyLanguages) {
		t.Fatalf("expected ErrEmptyLanguages, got %v", err)
	}
	if api.saveCalls != 0 {
		t.Error("no network call may happen on validation failure")
	}
	if len(n.Preference().Speaks) != 0 {
		t.Error("persisted preference must be unchanged")
	}
}

func TestSavePersistsAndReconfiguresTransport(t *testing.T) {
	t.Parallel()

	api := &stubProfileAPI{}
	tr := &stubTransport{}
	n := NewNegotiator(api, tr)

	if err := n.Save(context.Background(), []string{"pt-BR", "en"}, []string{"en", "es"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(api.saved) != 1 {
		t.Fatalf("expected one persisted save, got %d", len(api.saved))
	}
	if len(tr.updates) != 1 || tr.updates[0] != [2]string{"pt-BR", "en"} {
		t.Fatalf("transport must be reconfigured with primaries, got %v", tr.updates)
	}
	if n.ChatTarget() != "en" {
		t.Errorf("chat target must follow primary understood, got %q", n.ChatTarget())
	}
}

func TestSaveAPIErrorLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	api := &stubProfileAPI{saveErr: errors.New("boom")}
	tr := &stubTransport{}
	n := NewNegotiator(api, tr)

	if err := n.Save(context.Background(), []string{"en"}, []string{"pt"}); err == nil {
		t.Fatal("expected error")
	}
	if len(tr.updates) != 0 {
		t.Error("transport must not be reconfigured on persistence failure")
	}
	if len(n.Preference().Speaks) != 0 {
		t.Error("local sets must be unchanged on persistence failure")
	}
}
