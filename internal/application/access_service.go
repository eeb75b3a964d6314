package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/persistence"
)

// CalendarAccess shares resource calendars with a user.
type CalendarAccess interface {
	CalendarIDs() []string
	GrantAccess(ctx context.Context, calendarID string, email domain.EmailAddress) error
}

// AccessService links chat identities to emails and grants calendar access.
type AccessService struct {
	identities persistence.IdentityLinkRepository
	calendars  CalendarAccess
	now        func() time.Time
	logger     *slog.Logger
}

func NewAccessService(identities persistence.IdentityLinkRepository, calendars CalendarAccess, now func() time.Time, logger *slog.Logger) *AccessService {
	if now == nil {
		now = time.Now
	}
	return &AccessService{identities: identities, calendars: calendars, now: now, logger: defaultLogger(logger)}
}

func (s *AccessService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccessService", operation, attrs...)
}

// GrantUserResourceAccess links externalUserID on system to email, shares
// every resource calendar with email, then saves the link. The first failing
// grant aborts and the link is not saved; grants already made stay in place.
func (s *AccessService) GrantUserResourceAccess(ctx context.Context, system domain.ExternalSystem, externalUserID string, email domain.EmailAddress) (err error) {
	if s == nil {
		return fmt.Errorf("AccessService is nil")
	}

	logger := s.loggerWith(ctx, "GrantUserResourceAccess", "system", string(system), "email", email.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to grant resource access", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource access granted")
	}()

	link, err := s.resolveLink(ctx, system, externalUserID, email)
	if err != nil {
		return err
	}

	for _, calendarID := range s.calendars.CalendarIDs() {
		if err := s.calendars.GrantAccess(ctx, calendarID, email); err != nil {
			return fmt.Errorf("grant access: %w", err)
		}
	}

	if err := s.identities.Save(ctx, link); err != nil {
		return fmt.Errorf("save identity link: %w", err)
	}
	return nil
}

// LinkIdentity records the link without touching calendar access.
func (s *AccessService) LinkIdentity(ctx context.Context, system domain.ExternalSystem, externalUserID string, email domain.EmailAddress) (err error) {
	if s == nil {
		return fmt.Errorf("AccessService is nil")
	}

	logger := s.loggerWith(ctx, "LinkIdentity", "system", string(system), "email", email.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to link identity", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "identity linked")
	}()

	link, err := s.resolveLink(ctx, system, externalUserID, email)
	if err != nil {
		return err
	}
	if err := s.identities.Save(ctx, link); err != nil {
		return fmt.Errorf("save identity link: %w", err)
	}
	return nil
}

func (s *AccessService) resolveLink(ctx context.Context, system domain.ExternalSystem, externalUserID string, email domain.EmailAddress) (*domain.IdentityLink, error) {
	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
	}
	if externalUserID == "" {
		vErr.add("external_user_id", "external user id is required")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	now := s.now()
	link, err := s.identities.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		link = domain.NewIdentityLink(email, now)
	case err != nil:
		return nil, fmt.Errorf("find identity link: %w", err)
	}

	if err := link.LinkExternalIdentity(system, externalUserID, now); err != nil {
		if errors.Is(err, domain.ErrAlreadyLinked) {
			return nil, fmt.Errorf("%w: %s on %s", ErrEmailAlreadyLinked, email, system)
		}
		return nil, err
	}
	return link, nil
}
