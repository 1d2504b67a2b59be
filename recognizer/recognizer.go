package recognizer

import (
	"context"
	"errors"

	"transcribe/transcript"
)

var (
	ErrSessionActive = errors.New("recognition session already active")
	ErrUnavailable   = errors.New("speech recognition unavailable")
)

// Recognizer is a host speech-recognition capability. A session runs from
// Start until OnEnd fires; OnEnd fires exactly once per started session,
// after any OnError. Callbacks may arrive on any goroutine.
type Recognizer interface {
	Name() string
	Start(ctx context.Context, lang string) error
	Stop()
	OnResult(fn func(transcript.Event))
	OnError(fn func(error))
	OnEnd(fn func())
}

type sessionIDKey struct{}

// WithSessionID tags ctx with the caller's recording session id so a
// binding logs under the same id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionID is the id set by WithSessionID, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// callbacks is the listener set shared by the bindings.
type callbacks struct {
	result func(transcript.Event)
	err    func(error)
	end    func()
}

func (c callbacks) emitResult(ev transcript.Event) {
	if c.result != nil {
		c.result(ev)
	}
}

func (c callbacks) emitError(err error) {
	if c.err != nil {
		c.err(err)
	}
}

func (c callbacks) emitEnd() {
	if c.end != nil {
		c.end()
	}
}
