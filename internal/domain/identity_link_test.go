package domain

import (
	"errors"
	"testing"
	"time"
)

func TestIdentityLink_LinkAndUnlink(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	link := NewIdentityLink("user@example.com", created)

	if link.HasIdentityFor(ExternalSystemSlack) {
		t.Fatalf("expected new link to have no identities")
	}

	linkedAt := created.Add(time.Hour)
	if err := link.LinkExternalIdentity(ExternalSystemSlack, "U123", linkedAt); err != nil {
		t.Fatalf("LinkExternalIdentity returned error: %v", err)
	}
	identity, ok := link.IdentityFor(ExternalSystemSlack)
	if !ok || identity.UserID != "U123" || !identity.LinkedAt.Equal(linkedAt) {
		t.Fatalf("unexpected identity: %+v (found=%v)", identity, ok)
	}
	if !link.UpdatedAt().Equal(linkedAt) || !link.CreatedAt().Equal(created) {
		t.Fatalf("unexpected timestamps: created=%s updated=%s", link.CreatedAt(), link.UpdatedAt())
	}

	if err := link.LinkExternalIdentity(ExternalSystemSlack, "U999", linkedAt); !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("expected ErrAlreadyLinked, got %v", err)
	}

	if err := link.UnlinkExternalIdentity(ExternalSystemSlack, linkedAt); err != nil {
		t.Fatalf("UnlinkExternalIdentity returned error: %v", err)
	}
	if err := link.UnlinkExternalIdentity(ExternalSystemSlack, linkedAt); !errors.Is(err, ErrNotLinked) {
		t.Fatalf("expected ErrNotLinked, got %v", err)
	}
}

func TestReconstructIdentityLink_DropsDuplicateSystems(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	link := ReconstructIdentityLink("user@example.com", []ExternalIdentity{
		{System: ExternalSystemSlack, UserID: "U1", LinkedAt: now},
		{System: ExternalSystemSlack, UserID: "U2", LinkedAt: now},
	}, now, now)

	if got := len(link.ExternalIdentities()); got != 1 {
		t.Fatalf("expected one identity, got %d", got)
	}
	if identity, _ := link.IdentityFor(ExternalSystemSlack); identity.UserID != "U1" {
		t.Fatalf("expected first identity to win, got %q", identity.UserID)
	}

	clone := link.Clone()
	_ = clone.UnlinkExternalIdentity(ExternalSystemSlack, now)
	if !link.HasIdentityFor(ExternalSystemSlack) {
		t.Fatalf("expected clone mutation not to affect original")
	}
}
