package domain

import "errors"

var ErrEmptyLanguages = errors.New("speak and understand sets must be non-empty")

// LanguagePreference holds the user's speak/understand language sets.
// The first element of each set is the primary language passed to the
// translation transport.
type LanguagePreference struct {
	Speaks      []string `json:"speaks"`
	Understands []string `json:"understands"`
}

func NewLanguagePreference(speaks, understands []string) (LanguagePreference, error) {
	p := LanguagePreference{Speaks: speaks, Understands: understands}
	if err := p.Validate(); err != nil {
		return LanguagePreference{}, err
	}
	return p, nil
}

func (p LanguagePreference) Validate() error {
	if len(p.Speaks) == 0 || len(p.Understands) == 0 {
		return ErrEmptyLanguages
	}
	return nil
}

// PrimarySpoken is the input language for the translation transport.
func (p LanguagePreference) PrimarySpoken() string {
	if len(p.Speaks) == 0 {
		return ""
	}
	return p.Speaks[0]
}

// PrimaryUnderstood is the output language for the translation transport
// and the default target for chat translation.
func (p LanguagePreference) PrimaryUnderstood() string {
	if len(p.Understands) == 0 {
		return ""
	}
	return p.Understands[0]
}

// Profile is the authenticated user's profile record.
type Profile struct {
	ID        UserID             `json:"id"`
	Name      string             `json:"name"`
	Languages LanguagePreference `json:"languages"`
}
