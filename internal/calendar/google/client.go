// Package google implements the calendar client on the Google Calendar v3 API.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/example/lab-resource-manager/internal/calendar"
)

// Client talks to Google Calendar with service account credentials.
type Client struct {
	svc *gcal.Service
}

var _ calendar.Client = (*Client)(nil)

// NewFromKeyFile authenticates with a service account JSON key.
func NewFromKeyFile(ctx context.Context, keyPath string) (*Client, error) {
	return New(ctx, option.WithCredentialsFile(keyPath), option.WithScopes(gcal.CalendarScope))
}

func New(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ServiceAccountEmail reads client_email from a service account key file.
func ServiceAccountEmail(keyPath string) (string, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return "", fmt.Errorf("read service account key: %w", err)
	}
	var key struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return "", fmt.Errorf("decode service account key: %w", err)
	}
	if key.ClientEmail == "" {
		return "", errors.New("service account key has no client_email")
	}
	return key.ClientEmail, nil
}

func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin time.Time) ([]calendar.Event, error) {
	var events []calendar.Event
	call := c.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			events = append(events, fromAPI(item))
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (calendar.Event, error) {
	item, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return calendar.Event{}, mapError(err)
	}
	if item.Status == "cancelled" {
		return calendar.Event{}, calendar.ErrEventNotFound
	}
	return fromAPI(item), nil
}

func (c *Client) InsertEvent(ctx context.Context, calendarID string, event calendar.Event) (calendar.Event, error) {
	item, err := c.svc.Events.Insert(calendarID, toAPI(event)).Context(ctx).Do()
	if err != nil {
		return calendar.Event{}, mapError(err)
	}
	return fromAPI(item), nil
}

func (c *Client) UpdateEvent(ctx context.Context, calendarID string, event calendar.Event) (calendar.Event, error) {
	body := toAPI(event)
	body.Id = event.ID
	item, err := c.svc.Events.Update(calendarID, event.ID, body).Context(ctx).Do()
	if err != nil {
		return calendar.Event{}, mapError(err)
	}
	return fromAPI(item), nil
}

func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return mapError(c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do())
}

func (c *Client) GrantAccess(ctx context.Context, calendarID, email, role string) error {
	rule := &gcal.AclRule{
		Role:  role,
		Scope: &gcal.AclRuleScope{Type: "user", Value: email},
	}
	_, err := c.svc.Acl.Insert(calendarID, rule).Context(ctx).Do()
	return mapError(err)
}

func (c *Client) RevokeAccess(ctx context.Context, calendarID, email string) error {
	acl, err := c.svc.Acl.List(calendarID).Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}
	for _, rule := range acl.Items {
		if rule.Scope != nil && rule.Scope.Value == email {
			return mapError(c.svc.Acl.Delete(calendarID, rule.Id).Context(ctx).Do())
		}
	}
	return calendar.ErrAccessRuleNotFound
}

func fromAPI(item *gcal.Event) calendar.Event {
	event := calendar.Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
	}
	if item.Creator != nil {
		event.CreatorEmail = item.Creator.Email
	}
	// All-day events have no DateTime and decode with zero times.
	if item.Start != nil && item.Start.DateTime != "" {
		event.Start, _ = time.Parse(time.RFC3339, item.Start.DateTime)
	}
	if item.End != nil && item.End.DateTime != "" {
		event.End, _ = time.Parse(time.RFC3339, item.End.DateTime)
	}
	return event
}

func toAPI(event calendar.Event) *gcal.Event {
	return &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start:       &gcal.EventDateTime{DateTime: event.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: event.End.Format(time.RFC3339)},
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return fmt.Errorf("%w: %s", calendar.ErrEventNotFound, apiErr.Message)
	}
	return err
}
