package settings

import (
	"math"

	"transcribe/synth"
)

const (
	MinMultiplier = 0.5
	MaxMultiplier = 2.0
	StepSize      = 0.1

	DefaultLanguage   = "en-US"
	DefaultMultiplier = 1.0
)

// Settings is the settings-panel form state. It is never persisted.
type Settings struct {
	Language string
	Voice    string
	Rate     float64
	Pitch    float64
}

func Default() Settings {
	return Settings{
		Language: DefaultLanguage,
		Rate:     DefaultMultiplier,
		Pitch:    DefaultMultiplier,
	}
}

type Language struct {
	Code  string
	Label string
}

var languages = []Language{
	{"en-US", "English (US)"},
	{"en-GB", "English (UK)"},
	{"es-ES", "Spanish"},
	{"fr-FR", "French"},
	{"de-DE", "German"},
	{"ja-JP", "Japanese"},
	{"zh-CN", "Chinese (Simplified)"},
}

func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

func LanguageLabel(code string) string {
	if i := languageIndex(code); i >= 0 {
		return languages[i].Label
	}
	return code
}

func IsLanguage(code string) bool { return languageIndex(code) >= 0 }

// NextLanguage cycles through the language list; dir is +1 or -1.
// Unknown codes restart from the first entry.
func NextLanguage(code string, dir int) string {
	i := languageIndex(code)
	if i < 0 {
		return languages[0].Code
	}
	n := len(languages)
	return languages[((i+dir)%n+n)%n].Code
}

func languageIndex(code string) int {
	for i, l := range languages {
		if l.Code == code {
			return i
		}
	}
	return -1
}

// Clamp snaps v to the 0.1 step and bounds it to [0.5, 2.0]. Out-of-range
// input is clamped, never rejected. NaN yields the default.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultMultiplier
	}
	v = math.Round(v/StepSize) * StepSize
	v = math.Round(v*10) / 10 // drop float noise from the step multiply
	return min(max(v, MinMultiplier), MaxMultiplier)
}

func ClampRate(v float64) float64  { return Clamp(v) }
func ClampPitch(v float64) float64 { return Clamp(v) }

// Step moves v by delta steps and clamps.
func Step(v float64, delta int) float64 {
	return Clamp(v + float64(delta)*StepSize)
}

// ResolveVoice keeps selected while the host still lists it, else picks
// the first voice, else "".
func ResolveVoice(selected string, voices []synth.Voice) string {
	if _, ok := synth.Find(voices, selected); ok {
		return selected
	}
	if len(voices) > 0 {
		return voices[0].ID
	}
	return ""
}

// NextVoice cycles the selection through voices.
func NextVoice(selected string, voices []synth.Voice, dir int) string {
	if len(voices) == 0 {
		return ""
	}
	i := -1
	for j, v := range voices {
		if v.ID == selected {
			i = j
			break
		}
	}
	if i < 0 {
		return voices[0].ID
	}
	n := len(voices)
	return voices[((i+dir)%n+n)%n].ID
}
