package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownContext returns a context canceled on SIGINT or SIGTERM. The stop
// function releases the signal handler; a second signal after the first is
// handled by the default process behavior, so a stuck shutdown can still be
// interrupted.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
