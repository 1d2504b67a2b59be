// Package shutdown ties process termination signals to a context.
package shutdown

import (
	"context"
	"os/signal"
)

// Context is cancelled on the first termination signal. Call stop to
// release the signal handler.
func Context(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}
