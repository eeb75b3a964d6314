package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/lab-resource-manager/internal/domain"
)

type overlapFinderStub struct {
	usages []domain.ResourceUsage
	err    error
	period domain.TimePeriod
}

func (s *overlapFinderStub) FindOverlapping(ctx context.Context, period domain.TimePeriod) ([]domain.ResourceUsage, error) {
	s.period = period
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.ResourceUsage
	for _, u := range s.usages {
		if u.TimePeriod().OverlapsWith(period) {
			out = append(out, u)
		}
	}
	return out, nil
}

func hour(h int) time.Time {
	return time.Date(2024, 1, 15, h, 0, 0, 0, time.UTC)
}

func mustUsage(t *testing.T, id domain.UsageID, owner domain.EmailAddress, start, end int, resources ...domain.Resource) domain.ResourceUsage {
	t.Helper()
	period, err := domain.NewTimePeriod(hour(start), hour(end))
	if err != nil {
		t.Fatalf("NewTimePeriod returned error: %v", err)
	}
	usage, err := domain.ReconstructResourceUsage(id, owner, period, resources, "")
	if err != nil {
		t.Fatalf("ReconstructResourceUsage returned error: %v", err)
	}
	return usage
}

func TestConflictChecker_Check(t *testing.T) {
	t.Parallel()

	gpu0 := domain.GPU{Server: "Thalys", DeviceNumber: 0, Model: "A100"}
	gpu1 := domain.GPU{Server: "Thalys", DeviceNumber: 1, Model: "A100"}
	existing := mustUsage(t, "usage-a", "a@x.com", 10, 12, gpu0)
	finder := &overlapFinderStub{usages: []domain.ResourceUsage{existing}}
	checker := NewConflictChecker(finder)
	candidate, _ := domain.NewTimePeriod(hour(11), hour(13))

	t.Run("same device in overlapping window conflicts", func(t *testing.T) {
		conflict, err := checker.Check(context.Background(), candidate, []domain.Resource{gpu0}, "")
		if err != nil {
			t.Fatalf("Check returned error: %v", err)
		}
		if conflict == nil {
			t.Fatalf("expected conflict")
		}
		if conflict.ConflictingUsageID != "usage-a" {
			t.Fatalf("expected conflict with usage-a, got %s", conflict.ConflictingUsageID)
		}
		if conflict.ResourceDescription != "Thalys / A100 / GPU:0" {
			t.Fatalf("unexpected description %q", conflict.ResourceDescription)
		}
	})

	t.Run("other device in same window is free", func(t *testing.T) {
		conflict, err := checker.Check(context.Background(), candidate, []domain.Resource{gpu1}, "")
		if err != nil {
			t.Fatalf("Check returned error: %v", err)
		}
		if conflict != nil {
			t.Fatalf("expected no conflict, got %v", conflict)
		}
	})

	t.Run("excluded reservation is ignored", func(t *testing.T) {
		conflict, err := checker.Check(context.Background(), candidate, []domain.Resource{gpu0}, "usage-a")
		if err != nil {
			t.Fatalf("Check returned error: %v", err)
		}
		if conflict != nil {
			t.Fatalf("expected self to be excluded, got %v", conflict)
		}
	})

	t.Run("repository failures are returned as errors", func(t *testing.T) {
		boom := errors.New("boom")
		failing := NewConflictChecker(&overlapFinderStub{err: boom})
		conflict, err := failing.Check(context.Background(), candidate, []domain.Resource{gpu0}, "")
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped repository error, got %v", err)
		}
		if conflict != nil {
			t.Fatalf("expected nil conflict on error")
		}
	})
}

func TestDetectConflict_ReportsFirstInOverlapOrder(t *testing.T) {
	t.Parallel()

	room := domain.Room{Name: "Meeting A"}
	gpu := domain.GPU{Server: "Thalys", DeviceNumber: 3, Model: "A100"}
	first := mustUsage(t, "first", "a@x.com", 9, 11, gpu)
	second := mustUsage(t, "second", "b@x.com", 9, 11, room)

	conflict := DetectConflict([]domain.ResourceUsage{first, second}, []domain.Resource{room, gpu}, "")
	if conflict == nil {
		t.Fatalf("expected conflict")
	}
	if conflict.ConflictingUsageID != "second" || conflict.Resource != domain.Resource(room) {
		t.Fatalf("expected candidate order to win, got %+v", conflict)
	}
}
