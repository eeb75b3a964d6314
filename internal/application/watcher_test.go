package application

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPoller struct {
	calls  atomic.Int32
	notify chan struct{}
	err    error
}

func (p *countingPoller) PollOnce(ctx context.Context) (PollResult, error) {
	p.calls.Add(1)
	if ctx.Err() != nil {
		return PollResult{}, errors.New("poll ran on a cancelled context")
	}
	select {
	case p.notify <- struct{}{}:
	default:
	}
	return PollResult{}, p.err
}

func TestWatcherPollsImmediatelyAndOnTicks(t *testing.T) {
	poller := &countingPoller{notify: make(chan struct{}, 8), err: errors.New("transient")}
	watcher := NewWatcher(poller, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watcher.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-poller.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for poll %d", i+1)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop after cancellation")
	}
	if got := poller.calls.Load(); got < 3 {
		t.Fatalf("expected at least 3 polls, got %d", got)
	}
}
