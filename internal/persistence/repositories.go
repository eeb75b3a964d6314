package persistence

import (
	"context"

	"github.com/example/lab-resource-manager/internal/domain"
)

// ResourceUsageRepository stores reservations. FindByID and Delete return
// ErrNotFound for unknown ids.
type ResourceUsageRepository interface {
	FindByID(ctx context.Context, id domain.UsageID) (domain.ResourceUsage, error)
	// FindFuture returns reservations whose end is strictly after now.
	FindFuture(ctx context.Context) ([]domain.ResourceUsage, error)
	FindOverlapping(ctx context.Context, period domain.TimePeriod) ([]domain.ResourceUsage, error)
	FindByOwner(ctx context.Context, owner domain.EmailAddress) ([]domain.ResourceUsage, error)
	// Save upserts by id.
	Save(ctx context.Context, usage domain.ResourceUsage) error
	Delete(ctx context.Context, id domain.UsageID) error
}

// IdentityLinkRepository stores identity links keyed by email. Lookups
// return ErrNotFound when nothing matches.
type IdentityLinkRepository interface {
	FindByEmail(ctx context.Context, email domain.EmailAddress) (*domain.IdentityLink, error)
	FindByExternalUserID(ctx context.Context, system domain.ExternalSystem, userID string) (*domain.IdentityLink, error)
	FindAll(ctx context.Context) ([]*domain.IdentityLink, error)
	Save(ctx context.Context, link *domain.IdentityLink) error
	Delete(ctx context.Context, email domain.EmailAddress) error
}
