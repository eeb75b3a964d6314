// Package memory provides map backed repositories for tests and the
// offline development mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/persistence"
)

// UsageStore is an in-memory ResourceUsageRepository.
type UsageStore struct {
	mu     sync.RWMutex
	usages map[domain.UsageID]domain.ResourceUsage
	now    func() time.Time
}

var _ persistence.ResourceUsageRepository = (*UsageStore)(nil)

// NewUsageStore returns an empty store. now defaults to time.Now.
func NewUsageStore(now func() time.Time) *UsageStore {
	if now == nil {
		now = time.Now
	}
	return &UsageStore{usages: make(map[domain.UsageID]domain.ResourceUsage), now: now}
}

func (s *UsageStore) FindByID(ctx context.Context, id domain.UsageID) (domain.ResourceUsage, error) {
	if err := ctx.Err(); err != nil {
		return domain.ResourceUsage{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	usage, ok := s.usages[id]
	if !ok {
		return domain.ResourceUsage{}, persistence.ErrNotFound
	}
	return usage.WithID(usage.ID()), nil
}

func (s *UsageStore) FindFuture(ctx context.Context) ([]domain.ResourceUsage, error) {
	now := s.now()
	return s.filter(ctx, func(u domain.ResourceUsage) bool { return u.IsFuture(now) })
}

func (s *UsageStore) FindOverlapping(ctx context.Context, period domain.TimePeriod) ([]domain.ResourceUsage, error) {
	return s.filter(ctx, func(u domain.ResourceUsage) bool { return u.TimePeriod().OverlapsWith(period) })
}

func (s *UsageStore) FindByOwner(ctx context.Context, owner domain.EmailAddress) ([]domain.ResourceUsage, error) {
	now := s.now()
	return s.filter(ctx, func(u domain.ResourceUsage) bool { return u.Owner() == owner && u.IsFuture(now) })
}

func (s *UsageStore) Save(ctx context.Context, usage domain.ResourceUsage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usages[usage.ID()] = usage.WithID(usage.ID())
	return nil
}

func (s *UsageStore) Delete(ctx context.Context, id domain.UsageID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usages[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.usages, id)
	return nil
}

func (s *UsageStore) filter(ctx context.Context, keep func(domain.ResourceUsage) bool) ([]domain.ResourceUsage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ResourceUsage, 0, len(s.usages))
	for _, usage := range s.usages {
		if keep(usage) {
			out = append(out, usage.WithID(usage.ID()))
		}
	}
	sortUsages(out)
	return out, nil
}

// sortUsages orders by start then id so results are deterministic.
func sortUsages(usages []domain.ResourceUsage) {
	sort.Slice(usages, func(i, j int) bool {
		si, sj := usages[i].TimePeriod().Start(), usages[j].TimePeriod().Start()
		if si.Equal(sj) {
			return usages[i].ID() < usages[j].ID()
		}
		return si.Before(sj)
	})
}

// IdentityStore is an in-memory IdentityLinkRepository.
type IdentityStore struct {
	mu    sync.RWMutex
	links map[domain.EmailAddress]*domain.IdentityLink
}

var _ persistence.IdentityLinkRepository = (*IdentityStore)(nil)

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{links: make(map[domain.EmailAddress]*domain.IdentityLink)}
}

func (s *IdentityStore) FindByEmail(ctx context.Context, email domain.EmailAddress) (*domain.IdentityLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[email]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return link.Clone(), nil
}

func (s *IdentityStore) FindByExternalUserID(ctx context.Context, system domain.ExternalSystem, userID string) (*domain.IdentityLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.links {
		if identity, ok := link.IdentityFor(system); ok && identity.UserID == userID {
			return link.Clone(), nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (s *IdentityStore) FindAll(ctx context.Context) ([]*domain.IdentityLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.IdentityLink, 0, len(s.links))
	for _, link := range s.links {
		out = append(out, link.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email() < out[j].Email() })
	return out, nil
}

func (s *IdentityStore) Save(ctx context.Context, link *domain.IdentityLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[link.Email()] = link.Clone()
	return nil
}

func (s *IdentityStore) Delete(ctx context.Context, email domain.EmailAddress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[email]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.links, email)
	return nil
}
