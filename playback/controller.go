package playback

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"transcribe/synth"
)

type State int

const (
	Idle State = iota
	Speaking
)

func (s State) String() string {
	if s == Speaking {
		return "speaking"
	}
	return "idle"
}

// Controller drives one utterance at a time with toggle-to-stop semantics.
// Like the transcript accumulator it is owned by a single goroutine; host
// completions reach it through HandleEnd.
type Controller struct {
	synth   synth.Synthesizer
	state   State
	current uint64
	nextID  uint64
	voices  []synth.Voice
}

// New wraps s. A nil synthesizer yields a controller that never speaks.
func New(s synth.Synthesizer) *Controller {
	c := &Controller{synth: s}
	if s != nil {
		c.voices = s.Voices()
	}
	return c
}

func (c *Controller) Available() bool { return c.synth != nil }

func (c *Controller) State() State { return c.state }

// Current is the id of the playing utterance, zero when idle.
func (c *Controller) Current() uint64 {
	if c.state != Speaking {
		return 0
	}
	return c.current
}

// Speak starts text, or stops the in-flight utterance when already speaking.
// Blank text is ignored. An unknown voiceID falls back to the host default.
func (c *Controller) Speak(ctx context.Context, text, voiceID string, rate, pitch float64) (State, error) {
	if c.synth == nil || strings.TrimSpace(text) == "" {
		return c.state, nil
	}
	if c.state == Speaking {
		c.Stop()
		return c.state, nil
	}

	c.nextID++
	u := synth.Utterance{ID: c.nextID, Text: text, Rate: rate, Pitch: pitch}
	if v, ok := synth.Find(c.voices, voiceID); ok {
		u.Voice = &v
	}
	if err := c.synth.Speak(ctx, u); err != nil {
		return c.state, fmt.Errorf("speak: %w", err)
	}
	c.current = u.ID
	c.state = Speaking
	return c.state, nil
}

// Stop cancels the in-flight utterance, if any.
func (c *Controller) Stop() {
	if c.state != Speaking {
		return
	}
	c.synth.Cancel()
	c.state = Idle
}

// HandleEnd applies a host completion. Completions for anything but the
// current utterance are stale and ignored.
func (c *Controller) HandleEnd(id uint64) bool {
	if c.state != Speaking || id != c.current {
		return false
	}
	c.state = Idle
	return true
}

// SetVoices replaces the voice snapshot.
func (c *Controller) SetVoices(voices []synth.Voice) {
	c.voices = slices.Clone(voices)
}

func (c *Controller) Voices() []synth.Voice { return slices.Clone(c.voices) }

// DefaultVoiceID is the first enumerated voice, or "" when none.
func (c *Controller) DefaultVoiceID() string {
	if len(c.voices) == 0 {
		return ""
	}
	return c.voices[0].ID
}
