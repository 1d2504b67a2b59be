package synth

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Fake records utterances; completion is simulated with Finish.
type Fake struct {
	mu        sync.Mutex
	voices    []Voice
	spoken    []Utterance
	cancelled []uint64
	active    *Utterance
	failNext  error
	onEnd     func(uint64)
	onVoices  func([]Voice)
}

func NewFake(voices ...Voice) *Fake {
	return &Fake{voices: voices}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Speak(_ context.Context, u Utterance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	if f.active != nil {
		return errors.New("fake synth: utterance already active")
	}
	f.spoken = append(f.spoken, u)
	f.active = &u
	return nil
}

func (f *Fake) Cancel() {
	f.mu.Lock()
	if f.active != nil {
		f.cancelled = append(f.cancelled, f.active.ID)
		f.active = nil
	}
	f.mu.Unlock()
}

func (f *Fake) OnEnd(fn func(uint64)) {
	f.mu.Lock()
	f.onEnd = fn
	f.mu.Unlock()
}

func (f *Fake) OnVoicesChanged(fn func([]Voice)) {
	f.mu.Lock()
	f.onVoices = fn
	f.mu.Unlock()
}

func (f *Fake) Voices() []Voice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.voices)
}

// Finish completes the active utterance and fires the end callback.
// It returns false when nothing was playing.
func (f *Fake) Finish() bool {
	f.mu.Lock()
	u := f.active
	f.active = nil
	fn := f.onEnd
	f.mu.Unlock()
	if u == nil {
		return false
	}
	if fn != nil {
		fn(u.ID)
	}
	return true
}

// End fires the end callback for an arbitrary id, as a host would for a
// cancelled utterance.
func (f *Fake) End(id uint64) {
	f.mu.Lock()
	fn := f.onEnd
	f.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

// SetVoices replaces the voice list and notifies.
func (f *Fake) SetVoices(voices ...Voice) {
	f.mu.Lock()
	f.voices = voices
	fn := f.onVoices
	f.mu.Unlock()
	if fn != nil {
		fn(slices.Clone(voices))
	}
}

// FailNext makes the next Speak return err.
func (f *Fake) FailNext(err error) {
	f.mu.Lock()
	f.failNext = err
	f.mu.Unlock()
}

func (f *Fake) Spoken() []Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.spoken)
}

func (f *Fake) Cancelled() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.cancelled)
}

func (f *Fake) Active() (Utterance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return Utterance{}, false
	}
	return *f.active, true
}
