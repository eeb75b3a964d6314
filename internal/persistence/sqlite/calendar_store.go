// Package sqlite is a local calendar backend for running without Google
// Calendar. Events, calendar sharing and the reservation id mapping live in
// one SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/lab-resource-manager/internal/calendar"
	"github.com/example/lab-resource-manager/internal/domain"
)

// DefaultCreator is recorded as the creator of events written through the store.
const DefaultCreator = "lab-resource-manager@localhost"

// CalendarStore implements calendar.Client and calendar.Mapping.
type CalendarStore struct {
	pool    *ConnectionPool
	errs    *ErrorMapper
	retry   *RetryHelper
	creator string
	now     func() time.Time
}

var (
	_ calendar.Client  = (*CalendarStore)(nil)
	_ calendar.Mapping = (*CalendarStore)(nil)
)

// Open migrates the database at config.Path and returns a store on it.
func Open(ctx context.Context, config Config, creator string) (*CalendarStore, error) {
	if err := RunMigrations(config); err != nil {
		return nil, err
	}
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewCalendarStore(pool, creator), nil
}

func NewCalendarStore(pool *ConnectionPool, creator string) *CalendarStore {
	if creator == "" {
		creator = DefaultCreator
	}
	return &CalendarStore{
		pool:    pool,
		errs:    NewErrorMapper(),
		retry:   NewRetryHelper(DefaultRetryConfig()),
		creator: creator,
		now:     time.Now,
	}
}

// Creator is the identity stamped on inserted events.
func (s *CalendarStore) Creator() string { return s.creator }

func (s *CalendarStore) Close() error { return s.pool.Close() }

const eventColumns = `event_id, summary, description, creator_email, start_at, end_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (calendar.Event, error) {
	var (
		event      calendar.Event
		start, end int64
	)
	if err := row.Scan(&event.ID, &event.Summary, &event.Description, &event.CreatorEmail, &start, &end); err != nil {
		return calendar.Event{}, err
	}
	event.Start = time.UnixMilli(start).UTC()
	event.End = time.UnixMilli(end).UTC()
	return event, nil
}

func (s *CalendarStore) ListEvents(ctx context.Context, calendarID string, timeMin time.Time) ([]calendar.Event, error) {
	var events []calendar.Event
	err := s.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+eventColumns+` FROM calendar_events
			 WHERE calendar_id = ? AND end_at > ?
			 ORDER BY start_at, event_id`,
			calendarID, timeMin.UnixMilli())
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			event, err := scanEvent(rows)
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, s.errs.MapError("list events", err)
	}
	return events, nil
}

func (s *CalendarStore) GetEvent(ctx context.Context, calendarID, eventID string) (calendar.Event, error) {
	row := s.pool.DB().QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM calendar_events WHERE calendar_id = ? AND event_id = ?`,
		calendarID, eventID)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return calendar.Event{}, calendar.ErrEventNotFound
	}
	if err != nil {
		return calendar.Event{}, s.errs.MapError("get event", err)
	}
	return event, nil
}

func (s *CalendarStore) InsertEvent(ctx context.Context, calendarID string, event calendar.Event) (calendar.Event, error) {
	event.ID = uuid.NewString()
	event.CreatorEmail = s.creator
	now := s.now().UnixMilli()

	err := s.retry.WithRetry(ctx, func() error {
		_, err := s.pool.DB().ExecContext(ctx,
			`INSERT INTO calendar_events (calendar_id, event_id, summary, description, creator_email, start_at, end_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			calendarID, event.ID, event.Summary, event.Description, event.CreatorEmail,
			event.Start.UnixMilli(), event.End.UnixMilli(), now, now)
		return s.errs.MapError("insert event", err)
	})
	if err != nil {
		return calendar.Event{}, err
	}
	return event, nil
}

// UpdateEvent rewrites the mutable fields. The creator is preserved.
func (s *CalendarStore) UpdateEvent(ctx context.Context, calendarID string, event calendar.Event) (calendar.Event, error) {
	var updated calendar.Event
	err := s.retry.WithRetry(ctx, func() error {
		return s.errs.MapError("update event", s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx,
				`UPDATE calendar_events
				 SET summary = ?, description = ?, start_at = ?, end_at = ?, updated_at = ?
				 WHERE calendar_id = ? AND event_id = ?`,
				event.Summary, event.Description, event.Start.UnixMilli(), event.End.UnixMilli(), s.now().UnixMilli(),
				calendarID, event.ID)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return calendar.ErrEventNotFound
			}
			updated, err = scanEvent(tx.QueryRowContext(ctx,
				`SELECT `+eventColumns+` FROM calendar_events WHERE calendar_id = ? AND event_id = ?`,
				calendarID, event.ID))
			return err
		}))
	})
	if err != nil {
		return calendar.Event{}, err
	}
	return updated, nil
}

func (s *CalendarStore) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return s.retry.WithRetry(ctx, func() error {
		res, err := s.pool.DB().ExecContext(ctx,
			`DELETE FROM calendar_events WHERE calendar_id = ? AND event_id = ?`, calendarID, eventID)
		if err != nil {
			return s.errs.MapError("delete event", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return s.errs.MapError("delete event", err)
		}
		if n == 0 {
			return calendar.ErrEventNotFound
		}
		return nil
	})
}

func (s *CalendarStore) GrantAccess(ctx context.Context, calendarID, email, role string) error {
	return s.retry.WithRetry(ctx, func() error {
		_, err := s.pool.DB().ExecContext(ctx,
			`INSERT INTO calendar_acl (calendar_id, email, role, granted_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (calendar_id, email) DO UPDATE SET role = excluded.role, granted_at = excluded.granted_at`,
			calendarID, email, role, s.now().UnixMilli())
		return s.errs.MapError("grant access", err)
	})
}

func (s *CalendarStore) RevokeAccess(ctx context.Context, calendarID, email string) error {
	return s.retry.WithRetry(ctx, func() error {
		res, err := s.pool.DB().ExecContext(ctx,
			`DELETE FROM calendar_acl WHERE calendar_id = ? AND email = ?`, calendarID, email)
		if err != nil {
			return s.errs.MapError("revoke access", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return s.errs.MapError("revoke access", err)
		} else if n == 0 {
			return calendar.ErrAccessRuleNotFound
		}
		return nil
	})
}

// Role returns the role email holds on calendarID.
func (s *CalendarStore) Role(ctx context.Context, calendarID, email string) (string, error) {
	var role string
	err := s.pool.DB().QueryRowContext(ctx,
		`SELECT role FROM calendar_acl WHERE calendar_id = ? AND email = ?`, calendarID, email).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", calendar.ErrAccessRuleNotFound
	}
	if err != nil {
		return "", s.errs.MapError("read access", err)
	}
	return role, nil
}

func (s *CalendarStore) ExternalID(ctx context.Context, id domain.UsageID) (calendar.ExternalID, bool, error) {
	var ext calendar.ExternalID
	err := s.pool.DB().QueryRowContext(ctx,
		`SELECT calendar_id, event_id FROM usage_mappings WHERE usage_id = ?`, string(id)).
		Scan(&ext.CalendarID, &ext.EventID)
	if errors.Is(err, sql.ErrNoRows) {
		return calendar.ExternalID{}, false, nil
	}
	if err != nil {
		return calendar.ExternalID{}, false, s.errs.MapError("read mapping", err)
	}
	return ext, true, nil
}

func (s *CalendarStore) UsageID(ctx context.Context, eventID string) (domain.UsageID, bool, error) {
	var id string
	err := s.pool.DB().QueryRowContext(ctx,
		`SELECT usage_id FROM usage_mappings WHERE event_id = ?`, eventID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.errs.MapError("read mapping", err)
	}
	return domain.UsageID(id), true, nil
}

// SaveMapping upserts the mapping for id. Any other reservation still
// pointing at the same event loses its mapping.
func (s *CalendarStore) SaveMapping(ctx context.Context, id domain.UsageID, ext calendar.ExternalID) error {
	return s.retry.WithRetry(ctx, func() error {
		return s.errs.MapError("save mapping", s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM usage_mappings WHERE event_id = ? AND usage_id <> ?`, ext.EventID, string(id)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO usage_mappings (usage_id, calendar_id, event_id) VALUES (?, ?, ?)
				 ON CONFLICT (usage_id) DO UPDATE SET calendar_id = excluded.calendar_id, event_id = excluded.event_id`,
				string(id), ext.CalendarID, ext.EventID)
			return err
		}))
	})
}

func (s *CalendarStore) DeleteMapping(ctx context.Context, id domain.UsageID) error {
	return s.retry.WithRetry(ctx, func() error {
		_, err := s.pool.DB().ExecContext(ctx, `DELETE FROM usage_mappings WHERE usage_id = ?`, string(id))
		return s.errs.MapError("delete mapping", err)
	})
}

