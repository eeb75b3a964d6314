package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/lab-resource-manager/internal/config"
	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/logging"
	"github.com/example/lab-resource-manager/internal/persistence"
)

// ErrUnsupportedDestination is returned for a destination type with no sender.
var ErrUnsupportedDestination = errors.New("notify: unsupported destination type")

// Router fans events out to every destination configured for the
// reservation's resources.
type Router struct {
	catalog    *config.ResourceConfig
	identities persistence.IdentityLinkRepository
	senders    map[string]Sender
	now        func() time.Time
	logger     *slog.Logger
}

type RouterOption func(*Router)

// WithSender registers sender for destinations of type kind, replacing any
// previous one.
func WithSender(kind string, sender Sender) RouterOption {
	return func(r *Router) { r.senders[kind] = sender }
}

func WithRouterClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

// NewRouter registers the Slack and mock senders by default.
func NewRouter(catalog *config.ResourceConfig, identities persistence.IdentityLinkRepository, opts ...RouterOption) *Router {
	r := &Router{
		catalog:    catalog,
		identities: identities,
		senders:    map[string]Sender{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if _, ok := r.senders[config.NotificationSlack]; !ok {
		r.senders[config.NotificationSlack] = NewSlackSender(nil, r.logger)
	}
	if _, ok := r.senders[config.NotificationMock]; !ok {
		r.senders[config.NotificationMock] = NewMockSender(r.logger)
	}
	return r
}

var _ Notifier = (*Router)(nil)

// Notify sends to each destination once. Failures are collected and
// returned joined; one failing destination never stops the others.
func (r *Router) Notify(ctx context.Context, event Event) error {
	destinations := r.destinations(event.Usage)
	if len(destinations) == 0 {
		return nil
	}

	logger := logging.Resolve(ctx, r.logger).With("usage_id", event.Usage.ID().String(), "kind", string(event.Kind))
	link := r.lookupIdentity(ctx, logger, event.Usage.Owner())

	var errs []error
	for _, destination := range destinations {
		sender, ok := r.senders[destination.Type]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedDestination, destination.Type))
			continue
		}
		message := Message{
			Text:  NewRenderer(destination, r.now).Render(event, displayUser(destination, event.Usage.Owner(), link)),
			Event: event,
		}
		if err := sender.Send(ctx, destination, message); err != nil {
			logger.Warn("notification delivery failed", "destination", destination.Type, "error", err)
			errs = append(errs, fmt.Errorf("send %s notification: %w", destination.Type, err))
		}
	}
	return errors.Join(errs...)
}

// destinations collects the notification configs of every resource, keeping
// first-seen order and dropping duplicates.
func (r *Router) destinations(usage domain.ResourceUsage) []config.NotificationConfig {
	seen := map[config.NotificationConfig]struct{}{}
	var out []config.NotificationConfig
	for _, resource := range usage.Resources() {
		for _, destination := range r.catalog.NotificationsFor(resource) {
			if _, dup := seen[destination]; dup {
				continue
			}
			seen[destination] = struct{}{}
			out = append(out, destination)
		}
	}
	return out
}

func (r *Router) lookupIdentity(ctx context.Context, logger *slog.Logger, owner domain.EmailAddress) *domain.IdentityLink {
	if r.identities == nil {
		return nil
	}
	link, err := r.identities.FindByEmail(ctx, owner)
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			logger.Warn("identity lookup failed", "email", owner.String(), "error", err)
		}
		return nil
	}
	return link
}

// displayUser mentions linked Slack users on Slack destinations and falls
// back to the email everywhere else.
func displayUser(destination config.NotificationConfig, owner domain.EmailAddress, link *domain.IdentityLink) string {
	if destination.Type == config.NotificationSlack && link != nil {
		if identity, ok := link.IdentityFor(domain.ExternalSystemSlack); ok {
			return "<@" + identity.UserID + ">"
		}
	}
	return owner.String()
}
