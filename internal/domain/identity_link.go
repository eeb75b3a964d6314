package domain

import (
	"slices"
	"time"
)

// ExternalSystem names a platform whose user ids can be linked to an email.
type ExternalSystem string

const ExternalSystemSlack ExternalSystem = "slack"

// ExternalIdentity is a user id on an external platform.
type ExternalIdentity struct {
	System   ExternalSystem
	UserID   string
	LinkedAt time.Time
}

// IdentityLink associates an email with at most one identity per external system.
type IdentityLink struct {
	email      EmailAddress
	identities []ExternalIdentity
	createdAt  time.Time
	updatedAt  time.Time
}

// NewIdentityLink creates an unlinked record for email.
func NewIdentityLink(email EmailAddress, now time.Time) *IdentityLink {
	return &IdentityLink{email: email, createdAt: now, updatedAt: now}
}

// ReconstructIdentityLink rehydrates a stored link. Later duplicates of a system are dropped.
func ReconstructIdentityLink(email EmailAddress, identities []ExternalIdentity, createdAt, updatedAt time.Time) *IdentityLink {
	link := &IdentityLink{email: email, createdAt: createdAt, updatedAt: updatedAt}
	for _, identity := range identities {
		if link.HasIdentityFor(identity.System) {
			continue
		}
		link.identities = append(link.identities, identity)
	}
	return link
}

func (l *IdentityLink) Email() EmailAddress { return l.email }

func (l *IdentityLink) CreatedAt() time.Time { return l.createdAt }

func (l *IdentityLink) UpdatedAt() time.Time { return l.updatedAt }

// ExternalIdentities returns a copy in link order.
func (l *IdentityLink) ExternalIdentities() []ExternalIdentity {
	return slices.Clone(l.identities)
}

// IdentityFor returns the identity linked for system.
func (l *IdentityLink) IdentityFor(system ExternalSystem) (ExternalIdentity, bool) {
	for _, identity := range l.identities {
		if identity.System == system {
			return identity, true
		}
	}
	return ExternalIdentity{}, false
}

func (l *IdentityLink) HasIdentityFor(system ExternalSystem) bool {
	_, ok := l.IdentityFor(system)
	return ok
}

// LinkExternalIdentity attaches userID for system.
func (l *IdentityLink) LinkExternalIdentity(system ExternalSystem, userID string, now time.Time) error {
	if l.HasIdentityFor(system) {
		return ErrAlreadyLinked
	}
	l.identities = append(l.identities, ExternalIdentity{System: system, UserID: userID, LinkedAt: now})
	l.updatedAt = now
	return nil
}

// UnlinkExternalIdentity removes the identity for system.
func (l *IdentityLink) UnlinkExternalIdentity(system ExternalSystem, now time.Time) error {
	idx := slices.IndexFunc(l.identities, func(identity ExternalIdentity) bool {
		return identity.System == system
	})
	if idx < 0 {
		return ErrNotLinked
	}
	l.identities = slices.Delete(l.identities, idx, idx+1)
	l.updatedAt = now
	return nil
}

// Clone returns an independent copy.
func (l *IdentityLink) Clone() *IdentityLink {
	if l == nil {
		return nil
	}
	clone := *l
	clone.identities = slices.Clone(l.identities)
	return &clone
}
