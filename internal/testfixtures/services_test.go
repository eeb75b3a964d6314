package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/lab-resource-manager/internal/application"
	"github.com/example/lab-resource-manager/internal/notify"
)

type eventLog struct {
	events []notify.Event
}

func (l *eventLog) Notify(_ context.Context, event notify.Event) error {
	l.events = append(l.events, event)
	return nil
}

func TestServiceFactoryWiresSharedClock(t *testing.T) {
	factory := NewServiceFactory()
	svc := factory.Reservations(nil)
	log := &eventLog{}
	cn := factory.ChangeNotifier(t, log)

	usage, err := svc.Create(context.Background(), application.CreateReservationInput{
		Owner:     Alice,
		Start:     At(10, 0),
		End:       At(12, 0),
		Resources: GPUs(t, "Thalys", "0-1"),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := cn.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce returned error: %v", err)
	}
	if len(log.events) != 1 || log.events[0].Kind != notify.KindCreated || log.events[0].Usage.ID() != usage.ID() {
		t.Fatalf("expected one created event, got %+v", log.events)
	}

	// Once the reservation has ended it leaves the snapshot without a deletion.
	factory.Clock.Advance(5 * time.Hour)
	if _, err := cn.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce returned error: %v", err)
	}
	if len(log.events) != 1 {
		t.Fatalf("expected no further events, got %+v", log.events)
	}
}

func TestSQLiteHarnessRoundTrip(t *testing.T) {
	clock := NewClock(time.Time{})
	harness := NewSQLiteHarness(t, clock)
	factory := NewServiceFactory(WithClock(clock))
	svc := factory.Reservations(harness.Repository)

	created, err := svc.Create(context.Background(), application.CreateReservationInput{
		Owner:     Bob,
		Start:     At(13, 0),
		End:       At(15, 0),
		Resources: GPUs(t, "Rigel", "all"),
		Notes:     "fine-tuning",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := svc.Get(context.Background(), created.ID())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !got.Equal(created) {
		t.Fatalf("expected stored reservation to round trip, got %+v", got)
	}

	if err := harness.Access.GrantAccess(context.Background(), "rigel@group.calendar.google.com", Alice); err != nil {
		t.Fatalf("GrantAccess returned error: %v", err)
	}
	if role, err := harness.Store.Role(context.Background(), "rigel@group.calendar.google.com", Alice.String()); err != nil || role != "writer" {
		t.Fatalf("expected writer role, got %q (%v)", role, err)
	}
}
