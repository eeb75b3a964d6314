package application

import (
	"context"
	"log/slog"
	"time"
)

// Poller runs one change detection cycle.
type Poller interface {
	PollOnce(ctx context.Context) (PollResult, error)
}

// Watcher drives a Poller on a fixed interval.
type Watcher struct {
	poller Poller
	logger *slog.Logger
}

func NewWatcher(poller Poller, logger *slog.Logger) *Watcher {
	return &Watcher{poller: poller, logger: defaultLogger(logger)}
}

// Start polls immediately and then on every tick until ctx is cancelled.
// A poll in flight when ctx is cancelled runs to completion. Poll errors are
// already logged by the poller and never stop the loop.
func (w *Watcher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := serviceLogger(ctx, w.logger, "Watcher", "Start")
	logger.InfoContext(ctx, "watcher started", slog.Duration("interval", interval))

	pollCtx := context.WithoutCancel(ctx)
	_, _ = w.poller.PollOnce(pollCtx)

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(pollCtx, "watcher stopped")
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			_, _ = w.poller.PollOnce(pollCtx)
		}
	}
}
