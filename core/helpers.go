package live

import (
	"context"
	"fmt"
	"runtime/debug"
)

// withContextCancelHook runs onContextDone when ctx ends, unless the returned
// channel is closed first.
func withContextCancelHook(ctx context.Context, onContextDone func()) chan struct{} {
	done := make(chan struct{})
	if ctx.Done() == nil {
		return done
	}

	go func() {
		select {
		case <-ctx.Done():
			onContextDone()
		case <-done:
		}
	}()
	return done
}

// panicSafe runs f, turning a panic into a logged error.
func panicSafe(name string, f func()) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%s panicked: %v", name, recovered)
			logger.Error("recovered panic", "name", name, "panic", recovered, "stack", string(debug.Stack()))
		}
	}()

	f()
	return nil
}
