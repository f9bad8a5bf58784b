// Package orchestrator wires the record loop, the health HTTP server, and
// the termination-signal waiter under a single first-to-complete join.
package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nais/kafka-topic-backup/internal/appstate"
)

// Runnable is anything that blocks until ctx is canceled or it hits a
// fatal error.
type Runnable func(ctx context.Context) error

// Run starts loop and httpServer concurrently alongside a termination
// signal waiter, under a single "first-to-complete wins" join: whichever
// of the three finishes first cancels the other two and triggers graceful
// teardown. Returns nil on clean shutdown (signal received), or the first
// non-nil error otherwise.
func Run(ctx context.Context, state *appstate.State, logger *zap.Logger, loop, httpServer Runnable) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, 3)

	go func() { results <- httpServer(ctx) }()
	go func() { results <- loop(ctx) }()
	go func() { results <- waitForSignal(ctx, logger) }()

	// The first task to complete determines the outcome; cancel triggers
	// the other two to unwind through their suspension points.
	first := <-results
	cancel()
	<-results
	<-results

	state.SetNotAlive()
	return first
}

func waitForSignal(ctx context.Context, logger *zap.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received termination signal, shutting down", zap.String("signal", sig.String()))
		return nil
	case <-ctx.Done():
		return nil
	}
}
