package synth

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("speech synthesis unavailable")

// Voice is one host-enumerated voice.
type Voice struct {
	ID   string
	Name string
	Lang string
}

// Utterance is a single speak request. A nil Voice means host default.
type Utterance struct {
	ID    uint64
	Text  string
	Voice *Voice
	Rate  float64
	Pitch float64
}

// Synthesizer is the host text-to-speech capability. Implementations
// serialize utterances themselves: Speak replaces nothing, callers Cancel first.
type Synthesizer interface {
	Name() string
	Speak(ctx context.Context, u Utterance) error
	Cancel()
	OnEnd(fn func(id uint64))
	Voices() []Voice
	OnVoicesChanged(fn func([]Voice))
}

// Find returns the voice with the given ID.
func Find(voices []Voice, id string) (Voice, bool) {
	for _, v := range voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}
