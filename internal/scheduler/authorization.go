package scheduler

import (
	"errors"
	"fmt"

	"github.com/example/lab-resource-manager/internal/domain"
)

// ErrForbidden is matched by every ForbiddenError.
var ErrForbidden = errors.New("scheduler: forbidden")

// Action names a guarded operation.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ForbiddenError reports an actor attempting to mutate a reservation they do not own.
type ForbiddenError struct {
	Actor    domain.EmailAddress
	Action   Action
	Resource string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s is not allowed to %s %s", e.Actor, e.Action, e.Resource)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// AuthorizationPolicy allows only the owner to change a reservation.
type AuthorizationPolicy struct{}

func (AuthorizationPolicy) AuthorizeRead(domain.EmailAddress, domain.ResourceUsage) error {
	return nil
}

func (p AuthorizationPolicy) AuthorizeUpdate(actor domain.EmailAddress, usage domain.ResourceUsage) error {
	return p.ownerOnly(actor, ActionUpdate, usage)
}

func (p AuthorizationPolicy) AuthorizeDelete(actor domain.EmailAddress, usage domain.ResourceUsage) error {
	return p.ownerOnly(actor, ActionDelete, usage)
}

func (AuthorizationPolicy) ownerOnly(actor domain.EmailAddress, action Action, usage domain.ResourceUsage) error {
	if actor == usage.Owner() {
		return nil
	}
	return &ForbiddenError{
		Actor:    actor,
		Action:   action,
		Resource: fmt.Sprintf("ResourceUsage(%s)", usage.ID()),
	}
}
