package recognizer

import (
	"context"
	"sync"

	"transcribe/transcript"
)

// Fake is a scripted recognizer. Results are injected with Emit; Stop
// ends the session asynchronously the way a host would.
type Fake struct {
	mu        sync.Mutex
	cb        callbacks
	active    bool
	lang      string
	starts    int
	sessionID string
	failStart error
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Name() string { return "fake" }

func (f *Fake) OnResult(fn func(transcript.Event)) {
	f.mu.Lock()
	f.cb.result = fn
	f.mu.Unlock()
}

func (f *Fake) OnError(fn func(error)) {
	f.mu.Lock()
	f.cb.err = fn
	f.mu.Unlock()
}

func (f *Fake) OnEnd(fn func()) {
	f.mu.Lock()
	f.cb.end = fn
	f.mu.Unlock()
}

// FailStart makes the next Start return err.
func (f *Fake) FailStart(err error) {
	f.mu.Lock()
	f.failStart = err
	f.mu.Unlock()
}

func (f *Fake) Start(ctx context.Context, lang string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		return ErrSessionActive
	}
	if err := f.failStart; err != nil {
		f.failStart = nil
		return err
	}
	f.active = true
	f.lang = lang
	f.sessionID = SessionID(ctx)
	f.starts++
	return nil
}

func (f *Fake) Stop() {
	if cb, ok := f.finish(); ok {
		go cb.emitEnd()
	}
}

// Emit delivers ev when a session is active.
func (f *Fake) Emit(ev transcript.Event) bool {
	f.mu.Lock()
	active, cb := f.active, f.cb
	f.mu.Unlock()
	if !active {
		return false
	}
	cb.emitResult(ev)
	return true
}

// Fail reports err and ends the session.
func (f *Fake) Fail(err error) bool {
	cb, ok := f.finish()
	if !ok {
		return false
	}
	cb.emitError(err)
	cb.emitEnd()
	return true
}

// End ends the session as if the host stopped listening on its own.
func (f *Fake) End() bool {
	cb, ok := f.finish()
	if ok {
		cb.emitEnd()
	}
	return ok
}

func (f *Fake) finish() (callbacks, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return callbacks{}, false
	}
	f.active = false
	return f.cb, true
}

func (f *Fake) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Lang is the language of the most recent Start.
func (f *Fake) Lang() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lang
}

func (f *Fake) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// LastSessionID is the session id the most recent Start was tagged with.
func (f *Fake) LastSessionID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionID
}
