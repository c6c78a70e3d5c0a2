package language

import "strings"

// Unset is the normalized form of a missing or "auto" language code.
const Unset = ""

// Normalize reduces a language code to its lower-cased primary subtag:
// "pt-BR" and "pt_br" both become "pt". The literal "auto" normalizes
// to Unset.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "_", "-")
	if code == "auto" {
		return Unset
	}
	if i := strings.IndexByte(code, '-'); i >= 0 {
		code = code[:i]
	}
	return code
}

// Portuguese/Spanish diacritic markers checked by Detect, most
// distinctive first.
var (
	ptMarkers = []string{"ã", "õ", "ç", "você", "não", "ê", "â"}
	esMarkers = []string{"ñ", "¿", "¡", "usted", "está", "í"}
)

// Detect guesses the source language of untagged chat text for the given
// normalized target. It is a crude two-language marker check with a
// hard-coded fallback pairing (target "en" assumes "pt", anything else
// assumes "en"); broader coverage needs a real classifier behind this
// function.
func Detect(text, target string) string {
	lower := strings.ToLower(text)
	for _, m := range ptMarkers {
		if strings.Contains(lower, m) {
			return "pt"
		}
	}
	for _, m := range esMarkers {
		if strings.Contains(lower, m) {
			return "es"
		}
	}
	if target == "en" {
		return "pt"
	}
	return "en"
}

// ResolveSource yields the normalized source language for a message:
// its declared language when set, otherwise the Detect heuristic.
func ResolveSource(declared, text, target string) string {
	if src := Normalize(declared); src != Unset {
		return src
	}
	return Detect(text, target)
}
