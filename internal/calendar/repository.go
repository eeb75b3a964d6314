package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/example/lab-resource-manager/internal/config"
	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/logging"
	"github.com/example/lab-resource-manager/internal/persistence"
)

// lookback keeps in-progress events in the fetch window.
const lookback = 24 * time.Hour

// Repository stores reservations as calendar events, one calendar per server
// or room.
type Repository struct {
	client  Client
	catalog *config.ResourceConfig
	mapping Mapping
	codec   codec
	now     func() time.Time
	logger  *slog.Logger
}

type RepositoryOption func(*Repository)

func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) RepositoryOption {
	return func(r *Repository) { r.logger = logger }
}

// NewRepository wires a backend client. Events created by serviceAccount
// carry their owner in the description.
func NewRepository(client Client, catalog *config.ResourceConfig, mapping Mapping, serviceAccount string, opts ...RepositoryOption) *Repository {
	r := &Repository{
		client:  client,
		catalog: catalog,
		mapping: mapping,
		codec:   codec{catalog: catalog, serviceAccount: serviceAccount},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ persistence.ResourceUsageRepository = (*Repository)(nil)

// FindByID resolves id as a usage id, then as an event id through the
// reverse map, then by probing every calendar. The returned reservation
// always carries the requested id.
func (r *Repository) FindByID(ctx context.Context, id domain.UsageID) (domain.ResourceUsage, error) {
	ext, usageID, found, err := r.resolve(ctx, id)
	if err != nil {
		return domain.ResourceUsage{}, err
	}
	if !found {
		return r.findByEventID(ctx, string(id))
	}

	event, err := r.client.GetEvent(ctx, ext.CalendarID, ext.EventID)
	if err != nil {
		return domain.ResourceUsage{}, mapClientError("get event", err)
	}
	usage, err := r.codec.decode(usageID, ext.CalendarID, event)
	if err != nil {
		return domain.ResourceUsage{}, err
	}
	if usage.ID() != id {
		r.log(ctx).Debug("overriding resolved usage id", "requested", id, "resolved", usage.ID())
		usage = usage.WithID(id)
	}
	return usage, nil
}

// FindFuture lists in-progress and upcoming reservations across every
// configured calendar. Unparsable events are logged and skipped.
func (r *Repository) FindFuture(ctx context.Context) ([]domain.ResourceUsage, error) {
	now := r.now()
	timeMin := now.Add(-lookback)
	logger := r.log(ctx)

	var usages []domain.ResourceUsage
	for _, calendarID := range r.catalog.CalendarIDs() {
		events, err := r.client.ListEvents(ctx, calendarID, timeMin)
		if err != nil {
			return nil, mapClientError("list events", err)
		}
		for _, event := range events {
			if !event.End.After(now) {
				continue
			}
			usage, err := r.usageFromEvent(ctx, calendarID, event)
			if err != nil {
				if errors.Is(err, persistence.ErrUnavailable) {
					return nil, err
				}
				logger.Warn("skipping unparsable event", "calendar_id", calendarID, "event_id", event.ID, "error", err)
				continue
			}
			usages = append(usages, usage)
		}
	}
	return usages, nil
}

func (r *Repository) FindOverlapping(ctx context.Context, period domain.TimePeriod) ([]domain.ResourceUsage, error) {
	usages, err := r.FindFuture(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(usages, func(u domain.ResourceUsage) bool {
		return !u.TimePeriod().OverlapsWith(period)
	}), nil
}

func (r *Repository) FindByOwner(ctx context.Context, owner domain.EmailAddress) ([]domain.ResourceUsage, error) {
	usages, err := r.FindFuture(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(usages, func(u domain.ResourceUsage) bool {
		return u.Owner() != owner
	}), nil
}

// Save inserts new reservations, updates mapped ones in place and moves them
// when their resources now live in another calendar.
func (r *Repository) Save(ctx context.Context, usage domain.ResourceUsage) error {
	calendarID, event, err := r.codec.encode(usage)
	if err != nil {
		return err
	}

	ext, found, err := r.mapping.ExternalID(ctx, usage.ID())
	if err != nil {
		return err
	}

	if found && ext.CalendarID == calendarID {
		event.ID = ext.EventID
		if _, err := r.client.UpdateEvent(ctx, calendarID, event); err != nil {
			return mapClientError("update event", err)
		}
		return nil
	}

	if found {
		if err := r.client.DeleteEvent(ctx, ext.CalendarID, ext.EventID); err != nil && !errors.Is(err, ErrEventNotFound) {
			return mapClientError("delete moved event", err)
		}
	}

	created, err := r.client.InsertEvent(ctx, calendarID, event)
	if err != nil {
		return mapClientError("insert event", err)
	}
	if created.ID == "" {
		return fmt.Errorf("%w: inserted event has no id", ErrMalformedEvent)
	}
	return r.mapping.SaveMapping(ctx, usage.ID(), ExternalID{CalendarID: calendarID, EventID: created.ID})
}

// Delete removes the event behind id with the same resolution as FindByID.
// Unmapped ids are tried as event ids in every calendar.
func (r *Repository) Delete(ctx context.Context, id domain.UsageID) error {
	ext, usageID, found, err := r.resolve(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return r.deleteByEventID(ctx, string(id))
	}

	if err := r.client.DeleteEvent(ctx, ext.CalendarID, ext.EventID); err != nil {
		return mapClientError("delete event", err)
	}
	return r.mapping.DeleteMapping(ctx, usageID)
}

// resolve covers the first two lookup tiers.
func (r *Repository) resolve(ctx context.Context, id domain.UsageID) (ExternalID, domain.UsageID, bool, error) {
	ext, ok, err := r.mapping.ExternalID(ctx, id)
	if err != nil {
		return ExternalID{}, "", false, err
	}
	if ok {
		return ext, id, true, nil
	}

	usageID, ok, err := r.mapping.UsageID(ctx, string(id))
	if err != nil || !ok {
		return ExternalID{}, "", false, err
	}
	ext, ok, err = r.mapping.ExternalID(ctx, usageID)
	if err != nil {
		return ExternalID{}, "", false, err
	}
	if !ok {
		return ExternalID{}, "", false, persistence.ErrNotFound
	}
	return ext, usageID, true, nil
}

func (r *Repository) findByEventID(ctx context.Context, eventID string) (domain.ResourceUsage, error) {
	for _, calendarID := range r.catalog.CalendarIDs() {
		event, err := r.client.GetEvent(ctx, calendarID, eventID)
		if errors.Is(err, ErrEventNotFound) {
			continue
		}
		if err != nil {
			return domain.ResourceUsage{}, mapClientError("get event", err)
		}
		usage, err := r.usageFromEvent(ctx, calendarID, event)
		if err != nil {
			return domain.ResourceUsage{}, err
		}
		return usage.WithID(domain.UsageID(eventID)), nil
	}
	return domain.ResourceUsage{}, persistence.ErrNotFound
}

// deleteByEventID tries every calendar. A transport failure outranks
// not-found when no calendar accepted the delete.
func (r *Repository) deleteByEventID(ctx context.Context, eventID string) error {
	logger := r.log(ctx)
	var lastErr error
	for _, calendarID := range r.catalog.CalendarIDs() {
		err := r.client.DeleteEvent(ctx, calendarID, eventID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrEventNotFound) {
			logger.Debug("delete attempt failed", "calendar_id", calendarID, "event_id", eventID, "error", err)
			lastErr = err
		}
	}
	if lastErr != nil {
		return mapClientError("delete event", lastErr)
	}
	return persistence.ErrNotFound
}

// usageFromEvent decodes an event, creating a mapping for events first seen
// in the calendar.
func (r *Repository) usageFromEvent(ctx context.Context, calendarID string, event Event) (domain.ResourceUsage, error) {
	id, ok, err := r.mapping.UsageID(ctx, event.ID)
	if err != nil {
		return domain.ResourceUsage{}, err
	}

	usage, err := r.codec.decode(domain.NewUsageID(), calendarID, event)
	if err != nil {
		return domain.ResourceUsage{}, err
	}
	if ok {
		return usage.WithID(id), nil
	}

	if err := r.mapping.SaveMapping(ctx, usage.ID(), ExternalID{CalendarID: calendarID, EventID: event.ID}); err != nil {
		return domain.ResourceUsage{}, err
	}
	return usage, nil
}

func (r *Repository) log(ctx context.Context) *slog.Logger {
	return logging.Resolve(ctx, r.logger).With("component", "calendar_repository")
}

func mapClientError(op string, err error) error {
	if errors.Is(err, ErrEventNotFound) {
		return fmt.Errorf("%s: %w", op, persistence.ErrNotFound)
	}
	if errors.Is(err, persistence.ErrUnavailable) {
		return err
	}
	return persistence.NewConnectionError(op, err)
}
