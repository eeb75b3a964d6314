package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/notify"
)

// FutureUsageSource is the slice of the repository the change notifier polls.
type FutureUsageSource interface {
	FindFuture(ctx context.Context) ([]domain.ResourceUsage, error)
}

// PollObserver receives per-cycle outcomes. Metrics collectors implement it.
type PollObserver interface {
	ObservePoll(duration time.Duration, err error)
	ObserveEvent(kind notify.Kind)
	ObserveNotificationFailure(kind notify.Kind)
}

type nopObserver struct{}

func (nopObserver) ObservePoll(time.Duration, error) {}
func (nopObserver) ObserveEvent(notify.Kind) {}
func (nopObserver) ObserveNotificationFailure(notify.Kind) {}

// PollResult summarises one diff cycle.
type PollResult struct {
	Created              int
	Updated              int
	Deleted              int
	NotificationFailures int
}

// ChangeNotifier diffs successive snapshots of future reservations and
// publishes created, updated and deleted events.
type ChangeNotifier struct {
	source   FutureUsageSource
	notifier notify.Notifier
	observer PollObserver
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	previous map[domain.UsageID]domain.ResourceUsage
}

type ChangeNotifierOption func(*ChangeNotifier)

func WithPollObserver(observer PollObserver) ChangeNotifierOption {
	return func(c *ChangeNotifier) {
		if observer != nil {
			c.observer = observer
		}
	}
}

func WithNotifierClock(now func() time.Time) ChangeNotifierOption {
	return func(c *ChangeNotifier) {
		if now != nil {
			c.now = now
		}
	}
}

func WithNotifierLogger(logger *slog.Logger) ChangeNotifierOption {
	return func(c *ChangeNotifier) { c.logger = logger }
}

// NewChangeNotifier takes the initial snapshot. Reservations that already
// exist at startup are never reported as created.
func NewChangeNotifier(ctx context.Context, source FutureUsageSource, notifier notify.Notifier, opts ...ChangeNotifierOption) (*ChangeNotifier, error) {
	c := &ChangeNotifier{
		source:   source,
		notifier: notifier,
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = defaultLogger(c.logger)

	snapshot, err := c.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	c.previous = snapshot
	return c, nil
}

// PollOnce fetches the current snapshot and diffs it against the previous one
// under a single lock. A fetch failure aborts the cycle and keeps the previous
// snapshot. Notification failures are logged and counted, never returned.
func (c *ChangeNotifier) PollOnce(ctx context.Context) (result PollResult, err error) {
	logger := serviceLogger(ctx, c.logger, "ChangeNotifier", "PollOnce")
	started := time.Now()
	defer func() {
		c.observer.ObservePoll(time.Since(started), err)
		if err != nil {
			logger.ErrorContext(ctx, "poll failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	current, err := c.fetch(ctx)
	if err != nil {
		return PollResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	publish := func(kind notify.Kind, usage domain.ResourceUsage) {
		c.observer.ObserveEvent(kind)
		if nErr := c.notifier.Notify(ctx, notify.Event{Kind: kind, Usage: usage}); nErr != nil {
			result.NotificationFailures++
			c.observer.ObserveNotificationFailure(kind)
			logger.WarnContext(ctx, "notification failed",
				"kind", string(kind), "usage_id", usage.ID().String(), "error", nErr)
		}
	}

	for _, id := range sortedIDs(current) {
		if _, ok := c.previous[id]; !ok {
			result.Created++
			publish(notify.KindCreated, current[id])
		}
	}
	for _, id := range sortedIDs(current) {
		if prev, ok := c.previous[id]; ok && !prev.Equal(current[id]) {
			result.Updated++
			publish(notify.KindUpdated, current[id])
		}
	}
	for _, id := range sortedIDs(c.previous) {
		prev := c.previous[id]
		if _, ok := current[id]; ok {
			continue
		}
		// Reservations that simply ended are not cancellations.
		if !prev.IsFuture(now) {
			continue
		}
		result.Deleted++
		publish(notify.KindDeleted, prev)
	}

	c.previous = current
	if result != (PollResult{}) {
		logger.InfoContext(ctx, "changes published",
			"created", result.Created, "updated", result.Updated, "deleted", result.Deleted,
			"notification_failures", result.NotificationFailures)
	}
	return result, nil
}

// SnapshotSize reports how many reservations the last snapshot holds.
func (c *ChangeNotifier) SnapshotSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.previous)
}

func (c *ChangeNotifier) fetch(ctx context.Context) (map[domain.UsageID]domain.ResourceUsage, error) {
	usages, err := c.source.FindFuture(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch future reservations: %w", err)
	}
	snapshot := make(map[domain.UsageID]domain.ResourceUsage, len(usages))
	for _, usage := range usages {
		snapshot[usage.ID()] = usage
	}
	return snapshot, nil
}

func sortedIDs(m map[domain.UsageID]domain.ResourceUsage) []domain.UsageID {
	ids := make([]domain.UsageID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
