package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/persistence"
	"github.com/example/lab-resource-manager/internal/persistence/memory"
)

type calendarAccessStub struct {
	ids     []string
	failOn  string
	granted []string
}

func (c *calendarAccessStub) CalendarIDs() []string { return c.ids }

func (c *calendarAccessStub) GrantAccess(_ context.Context, calendarID string, email domain.EmailAddress) error {
	if calendarID == c.failOn {
		return errors.New("acl insert failed")
	}
	c.granted = append(c.granted, calendarID+" "+email.String())
	return nil
}

func newCalendarAccess() *calendarAccessStub {
	return &calendarAccessStub{ids: []string{"cal-thalys", "cal-rigel", "cal-room-a"}}
}

func TestAccessService_GrantUserResourceAccess(t *testing.T) {
	t.Run("links a new user and shares every calendar", func(t *testing.T) {
		identities := memory.NewIdentityStore()
		calendars := newCalendarAccess()
		svc := NewAccessService(identities, calendars, clock, nil)

		if err := svc.GrantUserResourceAccess(context.Background(), domain.ExternalSystemSlack, "U123", alice); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []string{"cal-thalys a@x.com", "cal-rigel a@x.com", "cal-room-a a@x.com"}
		if len(calendars.granted) != len(want) {
			t.Fatalf("expected grants %v, got %v", want, calendars.granted)
		}
		for i := range want {
			if calendars.granted[i] != want[i] {
				t.Fatalf("expected grants %v, got %v", want, calendars.granted)
			}
		}

		link, err := identities.FindByExternalUserID(context.Background(), domain.ExternalSystemSlack, "U123")
		if err != nil {
			t.Fatalf("expected link to be saved, got %v", err)
		}
		if link.Email() != alice {
			t.Fatalf("expected link for %s, got %s", alice, link.Email())
		}
	})

	t.Run("extends an existing link without a slack identity", func(t *testing.T) {
		identities := memory.NewIdentityStore()
		if err := identities.Save(context.Background(), domain.NewIdentityLink(alice, baseNow)); err != nil {
			t.Fatalf("seed link: %v", err)
		}
		svc := NewAccessService(identities, newCalendarAccess(), clock, nil)

		if err := svc.GrantUserResourceAccess(context.Background(), domain.ExternalSystemSlack, "U123", alice); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		link, _ := identities.FindByEmail(context.Background(), alice)
		if identity, ok := link.IdentityFor(domain.ExternalSystemSlack); !ok || identity.UserID != "U123" {
			t.Fatalf("expected slack identity U123, got %+v", link.ExternalIdentities())
		}
	})

	t.Run("refuses an email already linked", func(t *testing.T) {
		identities := memory.NewIdentityStore()
		existing := domain.NewIdentityLink(alice, baseNow)
		if err := existing.LinkExternalIdentity(domain.ExternalSystemSlack, "U999", baseNow); err != nil {
			t.Fatalf("seed link: %v", err)
		}
		if err := identities.Save(context.Background(), existing); err != nil {
			t.Fatalf("seed link: %v", err)
		}
		calendars := newCalendarAccess()
		svc := NewAccessService(identities, calendars, clock, nil)

		err := svc.GrantUserResourceAccess(context.Background(), domain.ExternalSystemSlack, "U123", alice)
		if !errors.Is(err, ErrEmailAlreadyLinked) {
			t.Fatalf("expected ErrEmailAlreadyLinked, got %v", err)
		}
		if len(calendars.granted) != 0 {
			t.Fatalf("expected no grants, got %v", calendars.granted)
		}
	})

	t.Run("stops at the first failing calendar", func(t *testing.T) {
		identities := memory.NewIdentityStore()
		calendars := newCalendarAccess()
		calendars.failOn = "cal-rigel"
		svc := NewAccessService(identities, calendars, clock, nil)

		if err := svc.GrantUserResourceAccess(context.Background(), domain.ExternalSystemSlack, "U123", alice); err == nil {
			t.Fatalf("expected grant failure")
		}
		if len(calendars.granted) != 1 {
			t.Fatalf("expected only the first calendar to be shared, got %v", calendars.granted)
		}
		if _, err := identities.FindByEmail(context.Background(), alice); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected link not to be saved, got %v", err)
		}
	})

	t.Run("validates input", func(t *testing.T) {
		svc := NewAccessService(memory.NewIdentityStore(), newCalendarAccess(), clock, nil)

		err := svc.GrantUserResourceAccess(context.Background(), domain.ExternalSystemSlack, "", "")
		var vErr *ValidationError
		if !errors.As(err, &vErr) || len(vErr.FieldErrors) != 2 {
			t.Fatalf("expected two field errors, got %v", err)
		}
	})
}

func TestAccessService_LinkIdentity(t *testing.T) {
	identities := memory.NewIdentityStore()
	calendars := newCalendarAccess()
	svc := NewAccessService(identities, calendars, clock, nil)

	if err := svc.LinkIdentity(context.Background(), domain.ExternalSystemSlack, "U777", bob); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(calendars.granted) != 0 {
		t.Fatalf("expected no calendar grants, got %v", calendars.granted)
	}
	if _, err := identities.FindByExternalUserID(context.Background(), domain.ExternalSystemSlack, "U777"); err != nil {
		t.Fatalf("expected link to be saved, got %v", err)
	}
}
