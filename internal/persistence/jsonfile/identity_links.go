package jsonfile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/persistence"
)

type identityLinkRecord struct {
	Email              string                   `json:"email"`
	ExternalIdentities []externalIdentityRecord `json:"external_identities"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

type externalIdentityRecord struct {
	System   string    `json:"system"`
	UserID   string    `json:"user_id"`
	LinkedAt time.Time `json:"linked_at"`
}

// IdentityLinkRepository keeps identity links in one JSON object keyed by
// email. The file is loaded on first access and rewritten on every change.
type IdentityLinkRepository struct {
	path string

	mu     sync.Mutex
	loaded bool
	cache  map[string]identityLinkRecord
}

var _ persistence.IdentityLinkRepository = (*IdentityLinkRepository)(nil)

func NewIdentityLinkRepository(path string) *IdentityLinkRepository {
	return &IdentityLinkRepository{path: path}
}

func (r *IdentityLinkRepository) FindByEmail(ctx context.Context, email domain.EmailAddress) (*domain.IdentityLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	record, ok := r.cache[string(email)]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return record.toDomain()
}

func (r *IdentityLinkRepository) FindByExternalUserID(ctx context.Context, system domain.ExternalSystem, userID string) (*domain.IdentityLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	for _, record := range r.cache {
		for _, identity := range record.ExternalIdentities {
			if identity.System == string(system) && identity.UserID == userID {
				return record.toDomain()
			}
		}
	}
	return nil, persistence.ErrNotFound
}

func (r *IdentityLinkRepository) FindAll(ctx context.Context) ([]*domain.IdentityLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(r.cache))
	for email := range r.cache {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	links := make([]*domain.IdentityLink, 0, len(emails))
	for _, email := range emails {
		link, err := r.cache[email].toDomain()
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

func (r *IdentityLinkRepository) Save(ctx context.Context, link *domain.IdentityLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return err
	}
	key := string(link.Email())
	previous, existed := r.cache[key]
	r.cache[key] = toRecord(link)
	if err := Write(r.path, r.cache); err != nil {
		if existed {
			r.cache[key] = previous
		} else {
			delete(r.cache, key)
		}
		return err
	}
	return nil
}

func (r *IdentityLinkRepository) Delete(ctx context.Context, email domain.EmailAddress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return err
	}
	key := string(email)
	previous, ok := r.cache[key]
	if !ok {
		return persistence.ErrNotFound
	}
	delete(r.cache, key)
	if err := Write(r.path, r.cache); err != nil {
		r.cache[key] = previous
		return err
	}
	return nil
}

func (r *IdentityLinkRepository) ensureLoaded() error {
	if r.loaded {
		return nil
	}
	cache := make(map[string]identityLinkRecord)
	if _, err := Read(r.path, &cache); err != nil {
		return fmt.Errorf("load identity links: %w", err)
	}
	r.cache = cache
	r.loaded = true
	return nil
}

func toRecord(link *domain.IdentityLink) identityLinkRecord {
	identities := link.ExternalIdentities()
	record := identityLinkRecord{
		Email:              string(link.Email()),
		ExternalIdentities: make([]externalIdentityRecord, 0, len(identities)),
		CreatedAt:          link.CreatedAt().UTC(),
		UpdatedAt:          link.UpdatedAt().UTC(),
	}
	for _, identity := range identities {
		record.ExternalIdentities = append(record.ExternalIdentities, externalIdentityRecord{
			System:   string(identity.System),
			UserID:   identity.UserID,
			LinkedAt: identity.LinkedAt.UTC(),
		})
	}
	return record
}

func (r identityLinkRecord) toDomain() (*domain.IdentityLink, error) {
	email, err := domain.NewEmailAddress(r.Email)
	if err != nil {
		return nil, fmt.Errorf("identity link record: %w", err)
	}
	identities := make([]domain.ExternalIdentity, 0, len(r.ExternalIdentities))
	for _, identity := range r.ExternalIdentities {
		identities = append(identities, domain.ExternalIdentity{
			System:   domain.ExternalSystem(identity.System),
			UserID:   identity.UserID,
			LinkedAt: identity.LinkedAt,
		})
	}
	return domain.ReconstructIdentityLink(email, identities, r.CreatedAt, r.UpdatedAt), nil
}
