package testfixtures

import (
	"context"
	"log/slog"
	"testing"

	"github.com/example/lab-resource-manager/internal/application"
	"github.com/example/lab-resource-manager/internal/notify"
	"github.com/example/lab-resource-manager/internal/persistence"
	"github.com/example/lab-resource-manager/internal/persistence/memory"
)

// ServiceFactory wires application services to in-memory stores sharing one
// clock.
type ServiceFactory struct {
	Clock      *Clock
	Usages     *memory.UsageStore
	Identities *memory.IdentityStore
	Logger     *slog.Logger
}

type ServiceFactoryOption func(*ServiceFactory)

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		f.Clock = clock
	}
}

func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		f.Logger = logger
	}
}

func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	f := &ServiceFactory{}
	for _, opt := range opts {
		opt(f)
	}
	if f.Clock == nil {
		f.Clock = NewClock(ReferenceTime())
	}
	f.Usages = memory.NewUsageStore(f.Clock.NowFunc())
	f.Identities = memory.NewIdentityStore()
	return f
}

// Reservations builds a ReservationService over repo, or over the factory's
// memory store when repo is nil.
func (f *ServiceFactory) Reservations(repo persistence.ResourceUsageRepository) *application.ReservationService {
	if repo == nil {
		repo = f.Usages
	}
	return application.NewReservationService(repo, f.Clock.NowFunc(), f.Logger)
}

// ChangeNotifier takes its initial snapshot from the factory's memory store.
func (f *ServiceFactory) ChangeNotifier(tb testing.TB, notifier notify.Notifier, opts ...application.ChangeNotifierOption) *application.ChangeNotifier {
	tb.Helper()
	opts = append([]application.ChangeNotifierOption{
		application.WithNotifierClock(f.Clock.NowFunc()),
		application.WithNotifierLogger(f.Logger),
	}, opts...)
	cn, err := application.NewChangeNotifier(context.Background(), f.Usages, notifier, opts...)
	if err != nil {
		tb.Fatalf("NewChangeNotifier: %v", err)
	}
	return cn
}
