package audio

// Preference-ordered container/codec combinations for the capture stage.
// Probed once per start against what the runtime supports; the first hit
// wins, otherwise the baseline container is used.
var preferredFormats = []string{
	"audio/webm;codecs=opus",
	"audio/ogg;codecs=opus",
	"audio/mp4",
}

// BaselineFormat is the fallback when no preferred format is supported.
const BaselineFormat = "audio/wav"

// SelectFormat picks the capture format for a track.
func SelectFormat(supported []string) string {
	set := make(map[string]bool, len(supported))
	for _, f := range supported {
		set[f] = true
	}
	for _, f := range preferredFormats {
		if set[f] {
			return f
		}
	}
	return BaselineFormat
}
