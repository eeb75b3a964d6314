// Package calendar stores reservations as events in per-resource calendars.
package calendar

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEventNotFound is returned by a Client when the event does not exist.
	ErrEventNotFound = errors.New("calendar: event not found")
	// ErrAccessRuleNotFound is returned by RevokeAccess when no rule matches the email.
	ErrAccessRuleNotFound = errors.New("calendar: access rule not found")
	// ErrMalformedEvent marks events that cannot be turned into reservations.
	ErrMalformedEvent = errors.New("calendar: malformed event")
	// ErrMultipleCalendars is returned when a reservation mixes resources
	// stored in different calendars.
	ErrMultipleCalendars = errors.New("calendar: resources belong to different calendars")
	// ErrUnknownResource is returned when a resource has no configured calendar.
	ErrUnknownResource = errors.New("calendar: resource is not configured")
)

// RoleWriter lets a user create and edit events on a calendar.
const RoleWriter = "writer"

// Event is the backend neutral view of a calendar event.
type Event struct {
	ID           string
	Summary      string
	Description  string
	CreatorEmail string
	Start        time.Time
	End          time.Time
}

// Client is the calendar backend port.
type Client interface {
	// ListEvents returns events ending after timeMin.
	ListEvents(ctx context.Context, calendarID string, timeMin time.Time) ([]Event, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (Event, error)
	// InsertEvent ignores event.ID and returns the stored event with its new id.
	InsertEvent(ctx context.Context, calendarID string, event Event) (Event, error)
	UpdateEvent(ctx context.Context, calendarID string, event Event) (Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	GrantAccess(ctx context.Context, calendarID, email, role string) error
	RevokeAccess(ctx context.Context, calendarID, email string) error
}
