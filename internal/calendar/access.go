package calendar

import (
	"context"
	"fmt"

	"github.com/example/lab-resource-manager/internal/config"
	"github.com/example/lab-resource-manager/internal/domain"
)

// AccessService shares resource calendars with users.
type AccessService struct {
	client  Client
	catalog *config.ResourceConfig
}

func NewAccessService(client Client, catalog *config.ResourceConfig) *AccessService {
	return &AccessService{client: client, catalog: catalog}
}

// CalendarIDs lists the calendars a grant covers, servers first.
func (s *AccessService) CalendarIDs() []string {
	return s.catalog.CalendarIDs()
}

// GrantAccess gives email writer access to calendarID.
func (s *AccessService) GrantAccess(ctx context.Context, calendarID string, email domain.EmailAddress) error {
	if err := s.client.GrantAccess(ctx, calendarID, email.String(), RoleWriter); err != nil {
		return fmt.Errorf("share calendar %s with %s: %w", calendarID, email, err)
	}
	return nil
}

func (s *AccessService) RevokeAccess(ctx context.Context, calendarID string, email domain.EmailAddress) error {
	if err := s.client.RevokeAccess(ctx, calendarID, email.String()); err != nil {
		return fmt.Errorf("revoke %s on calendar %s: %w", email, calendarID, err)
	}
	return nil
}
