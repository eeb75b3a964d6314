// Package notify delivers reservation change messages to the destinations
// configured per resource.
package notify

import (
	"context"

	"github.com/example/lab-resource-manager/internal/config"
	"github.com/example/lab-resource-manager/internal/domain"
)

// Kind classifies a reservation change.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// Event is one observed change. Deleted events carry the last known state.
type Event struct {
	Kind  Kind
	Usage domain.ResourceUsage
}

// Notifier is the port the change notifier publishes to.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Message is a rendered notification bound for one destination.
type Message struct {
	Text  string
	Event Event
}

// Sender delivers a rendered message to a destination.
type Sender interface {
	Send(ctx context.Context, destination config.NotificationConfig, message Message) error
}
