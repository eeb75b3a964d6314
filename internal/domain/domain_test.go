package domain

import (
	"errors"
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 15, hour, minute, 0, 0, time.UTC)
}

func mustPeriod(t *testing.T, start, end time.Time) TimePeriod {
	t.Helper()
	p, err := NewTimePeriod(start, end)
	if err != nil {
		t.Fatalf("NewTimePeriod returned error: %v", err)
	}
	return p
}

func TestNewTimePeriod(t *testing.T) {
	t.Parallel()

	t.Run("rejects start equal to end", func(t *testing.T) {
		t.Parallel()
		_, err := NewTimePeriod(at(10, 0), at(10, 0))
		var pErr *InvalidTimePeriodError
		if !errors.As(err, &pErr) {
			t.Fatalf("expected InvalidTimePeriodError, got %v", err)
		}
		if !errors.Is(err, ErrInvalidTimePeriod) {
			t.Fatalf("expected error to match ErrInvalidTimePeriod")
		}
	})

	t.Run("rejects start after end", func(t *testing.T) {
		t.Parallel()
		if _, err := NewTimePeriod(at(12, 0), at(10, 0)); !errors.Is(err, ErrInvalidTimePeriod) {
			t.Fatalf("expected ErrInvalidTimePeriod, got %v", err)
		}
	})

	t.Run("accepts valid interval", func(t *testing.T) {
		t.Parallel()
		p := mustPeriod(t, at(10, 0), at(12, 0))
		if p.Duration() != 2*time.Hour {
			t.Fatalf("expected 2h duration, got %s", p.Duration())
		}
	})
}

func TestTimePeriod_OverlapsWith(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b [2]time.Time
		want bool
	}{
		{"partial overlap", [2]time.Time{at(10, 0), at(12, 0)}, [2]time.Time{at(11, 0), at(13, 0)}, true},
		{"contained", [2]time.Time{at(10, 0), at(14, 0)}, [2]time.Time{at(11, 0), at(12, 0)}, true},
		{"touching edges do not overlap", [2]time.Time{at(10, 0), at(12, 0)}, [2]time.Time{at(12, 0), at(13, 0)}, false},
		{"disjoint", [2]time.Time{at(8, 0), at(9, 0)}, [2]time.Time{at(10, 0), at(11, 0)}, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := mustPeriod(t, tc.a[0], tc.a[1])
			b := mustPeriod(t, tc.b[0], tc.b[1])
			if got := a.OverlapsWith(b); got != tc.want {
				t.Fatalf("a.OverlapsWith(b) = %v, want %v", got, tc.want)
			}
			if got := b.OverlapsWith(a); got != tc.want {
				t.Fatalf("b.OverlapsWith(a) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResource_ConflictsWith(t *testing.T) {
	t.Parallel()

	gpu := GPU{Server: "Thalys", DeviceNumber: 0, Model: "A100"}
	if !gpu.ConflictsWith(GPU{Server: "Thalys", DeviceNumber: 0, Model: "A100"}) {
		t.Fatalf("expected identical gpu to conflict")
	}
	if !gpu.ConflictsWith(GPU{Server: "Thalys", DeviceNumber: 0, Model: "other"}) {
		t.Fatalf("expected model to be ignored when comparing gpus")
	}
	if gpu.ConflictsWith(GPU{Server: "Thalys", DeviceNumber: 1, Model: "A100"}) {
		t.Fatalf("expected different device not to conflict")
	}
	if gpu.ConflictsWith(GPU{Server: "Freccia", DeviceNumber: 0, Model: "A100"}) {
		t.Fatalf("expected different server not to conflict")
	}

	room := Room{Name: "Meeting A"}
	if !room.ConflictsWith(Room{Name: "Meeting A"}) {
		t.Fatalf("expected same room to conflict")
	}
	if room.ConflictsWith(Room{Name: "Meeting B"}) {
		t.Fatalf("expected different rooms not to conflict")
	}

	if gpu.ConflictsWith(Room{Name: "Thalys"}) || (Room{Name: "Thalys"}).ConflictsWith(gpu) {
		t.Fatalf("expected cross-variant comparisons never to conflict")
	}
}

func TestResourceUsage_Construction(t *testing.T) {
	t.Parallel()

	owner, err := NewEmailAddress("a@x.com")
	if err != nil {
		t.Fatalf("NewEmailAddress returned error: %v", err)
	}
	period := mustPeriod(t, at(10, 0), at(12, 0))

	if _, err := NewResourceUsage(owner, period, nil, ""); !errors.Is(err, ErrNoResourceItems) {
		t.Fatalf("expected ErrNoResourceItems, got %v", err)
	}

	if _, err := NewResourceUsage(owner, TimePeriod{}, []Resource{Room{Name: "A"}}, ""); !errors.Is(err, ErrInvalidTimePeriod) {
		t.Fatalf("expected ErrInvalidTimePeriod for zero period, got %v", err)
	}

	first, err := NewResourceUsage(owner, period, []Resource{Room{Name: "A"}}, "notes")
	if err != nil {
		t.Fatalf("NewResourceUsage returned error: %v", err)
	}
	second, err := NewResourceUsage(owner, period, []Resource{Room{Name: "A"}}, "notes")
	if err != nil {
		t.Fatalf("NewResourceUsage returned error: %v", err)
	}
	if first.ID() == "" || first.ID() == second.ID() {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", first.ID(), second.ID())
	}

	rebuilt, err := ReconstructResourceUsage("fixed", owner, period, []Resource{Room{Name: "A"}}, "notes")
	if err != nil {
		t.Fatalf("ReconstructResourceUsage returned error: %v", err)
	}
	if rebuilt.ID() != "fixed" {
		t.Fatalf("expected reconstructed id to be kept, got %q", rebuilt.ID())
	}
}

func TestResourceUsage_Equal(t *testing.T) {
	t.Parallel()

	period := mustPeriod(t, at(10, 0), at(12, 0))
	usage, err := ReconstructResourceUsage("u1", "a@x.com", period, []Resource{GPU{Server: "Thalys", DeviceNumber: 0, Model: "A100"}}, "")
	if err != nil {
		t.Fatalf("ReconstructResourceUsage returned error: %v", err)
	}

	same, _ := ReconstructResourceUsage("u1", "a@x.com", period, []Resource{GPU{Server: "Thalys", DeviceNumber: 0, Model: "A100"}}, "")
	if !usage.Equal(same) {
		t.Fatalf("expected structurally identical usages to be equal")
	}

	changed := same
	changed.UpdateNotes("moved")
	if usage.Equal(changed) {
		t.Fatalf("expected notes change to break equality")
	}

	moved := same
	moved.UpdateTimePeriod(mustPeriod(t, at(11, 0), at(12, 0)))
	if usage.Equal(moved) {
		t.Fatalf("expected period change to break equality")
	}

	if usage.WithID("u2").Equal(usage) {
		t.Fatalf("expected id change to break equality")
	}
}

func TestEmailAddress(t *testing.T) {
	t.Parallel()

	if _, err := NewEmailAddress("no-at-sign"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	email, err := NewEmailAddress("  alice@example.com ")
	if err != nil {
		t.Fatalf("NewEmailAddress returned error: %v", err)
	}
	if email.String() != "alice@example.com" || email.LocalPart() != "alice" {
		t.Fatalf("unexpected email parts: %q / %q", email, email.LocalPart())
	}
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	resources := []Resource{
		GPU{Server: "Thalys", DeviceNumber: 0, Model: "A100"},
		Room{Name: "Meeting A"},
	}
	if got := FormatResources(resources); got != "Thalys / A100 / GPU:0\nMeeting A" {
		t.Fatalf("unexpected resources format: %q", got)
	}

	tokyo := time.FixedZone("Asia/Tokyo", 9*60*60)
	period := mustPeriod(t, at(10, 0), at(12, 0))
	if got := FormatTimePeriod(period, tokyo); got != "2024-01-15 19:00 - 2024-01-15 21:00 (Asia/Tokyo)" {
		t.Fatalf("unexpected period format: %q", got)
	}
}
