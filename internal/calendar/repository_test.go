package calendar

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/lab-resource-manager/internal/config"
	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/persistence"
)

const serviceAccount = "bot@lab.iam.gserviceaccount.com"

var testNow = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func testCatalog() *config.ResourceConfig {
	return &config.ResourceConfig{
		Servers: []config.ServerConfig{
			{
				Name:       "Thalys",
				CalendarID: "cal-thalys",
				Devices: []config.DeviceConfig{
					{ID: 0, Model: "A100"}, {ID: 1, Model: "A100"}, {ID: 2, Model: "A100"}, {ID: 3, Model: "A100"},
				},
			},
			{
				Name:       "Rigel",
				CalendarID: "cal-rigel",
				Devices:    []config.DeviceConfig{{ID: 0, Model: "RTX 6000"}, {ID: 1, Model: "RTX 6000"}},
			},
		},
		Rooms: []config.RoomConfig{{Name: "Meeting A", CalendarID: "cal-room-a"}},
	}
}

func at(h int) time.Time {
	return testNow.Add(time.Duration(h) * time.Hour)
}

func newTestRepository(t *testing.T) (*Repository, *fakeClient, *IDMapper) {
	t.Helper()
	client := newFakeClient(serviceAccount)
	mapper := NewIDMapper(filepath.Join(t.TempDir(), "mappings.json"))
	repo := NewRepository(client, testCatalog(), mapper, serviceAccount, WithClock(func() time.Time { return testNow }))
	return repo, client, mapper
}

func newUsage(t *testing.T, owner domain.EmailAddress, start, end int, notes string, resources ...domain.Resource) domain.ResourceUsage {
	t.Helper()
	period, err := domain.NewTimePeriod(at(start), at(end))
	if err != nil {
		t.Fatalf("NewTimePeriod returned error: %v", err)
	}
	usage, err := domain.NewResourceUsage(owner, period, resources, notes)
	if err != nil {
		t.Fatalf("NewResourceUsage returned error: %v", err)
	}
	return usage
}

func gpu(server string, n int) domain.GPU {
	model := "A100"
	if server == "Rigel" {
		model = "RTX 6000"
	}
	return domain.GPU{Server: server, DeviceNumber: n, Model: model}
}

func TestRepository_SaveAndFind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, client, _ := newTestRepository(t)

	usage := newUsage(t, "alice@example.com", 1, 3, "training run", gpu("Thalys", 0), gpu("Thalys", 2))
	if err := repo.Save(ctx, usage); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	stored := client.events["cal-thalys"]["evt-1"]
	if stored.Summary != "0,2" {
		t.Fatalf("expected device spec title, got %q", stored.Summary)
	}
	if stored.Description != "予約者: alice@example.com\n\ntraining run" {
		t.Fatalf("unexpected description %q", stored.Description)
	}

	got, err := repo.FindByID(ctx, usage.ID())
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if !got.Equal(usage) {
		t.Fatalf("expected round trip to preserve usage, got %+v", got)
	}

	t.Run("event id resolves through reverse mapping", func(t *testing.T) {
		byEvent, err := repo.FindByID(ctx, "evt-1")
		if err != nil {
			t.Fatalf("FindByID by event id returned error: %v", err)
		}
		if byEvent.ID() != "evt-1" {
			t.Fatalf("expected requested id to be preserved, got %s", byEvent.ID())
		}
		if byEvent.Owner() != "alice@example.com" {
			t.Fatalf("unexpected owner %s", byEvent.Owner())
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "missing")
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRepository_FindByID_UnmappedEventScansCalendars(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, client, mapper := newTestRepository(t)

	client.put("cal-room-a", Event{
		ID:           "external-1",
		Summary:      "Meeting A",
		CreatorEmail: "bob@example.com",
		Description:  "standup",
		Start:        at(2),
		End:          at(3),
	})

	usage, err := repo.FindByID(ctx, "external-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if usage.ID() != "external-1" {
		t.Fatalf("expected requested id, got %s", usage.ID())
	}
	if usage.Owner() != "bob@example.com" {
		t.Fatalf("expected creator as owner, got %s", usage.Owner())
	}
	if !usage.HasRoom() {
		t.Fatalf("expected room reservation")
	}

	if _, ok, _ := mapper.UsageID(ctx, "external-1"); !ok {
		t.Fatalf("expected lazy mapping to be created")
	}
}

func TestRepository_SaveUpdatesInPlaceAndMoves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, client, mapper := newTestRepository(t)

	usage := newUsage(t, "alice@example.com", 1, 3, "", gpu("Thalys", 1))
	if err := repo.Save(ctx, usage); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	period, _ := domain.NewTimePeriod(at(2), at(4))
	usage.UpdateTimePeriod(period)
	usage.UpdateNotes("extended")
	if err := repo.Save(ctx, usage); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if client.count("cal-thalys") != 1 {
		t.Fatalf("expected in place update, got %d events", client.count("cal-thalys"))
	}
	if got := client.events["cal-thalys"]["evt-1"]; !got.Start.Equal(at(2)) {
		t.Fatalf("expected updated start, got %s", got.Start)
	}

	moved, err := domain.ReconstructResourceUsage(usage.ID(), usage.Owner(), usage.TimePeriod(), []domain.Resource{gpu("Rigel", 0)}, "")
	if err != nil {
		t.Fatalf("ReconstructResourceUsage returned error: %v", err)
	}
	if err := repo.Save(ctx, moved); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if client.count("cal-thalys") != 0 || client.count("cal-rigel") != 1 {
		t.Fatalf("expected event to move calendars, thalys=%d rigel=%d", client.count("cal-thalys"), client.count("cal-rigel"))
	}
	ext, _, _ := mapper.ExternalID(ctx, usage.ID())
	if ext.CalendarID != "cal-rigel" || ext.EventID != "evt-2" {
		t.Fatalf("expected mapping to follow the move, got %+v", ext)
	}
	if _, ok, _ := mapper.UsageID(ctx, "evt-1"); ok {
		t.Fatalf("expected stale reverse entry to be dropped")
	}
}

func TestRepository_SaveRejectsMixedCalendars(t *testing.T) {
	t.Parallel()
	repo, _, _ := newTestRepository(t)

	usage := newUsage(t, "alice@example.com", 1, 2, "", gpu("Thalys", 0), domain.Room{Name: "Meeting A"})
	if err := repo.Save(context.Background(), usage); !errors.Is(err, ErrMultipleCalendars) {
		t.Fatalf("expected ErrMultipleCalendars, got %v", err)
	}
}

func TestRepository_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, client, mapper := newTestRepository(t)

	usage := newUsage(t, "alice@example.com", 1, 2, "", domain.Room{Name: "Meeting A"})
	if err := repo.Save(ctx, usage); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := repo.Delete(ctx, usage.ID()); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if client.count("cal-room-a") != 0 {
		t.Fatalf("expected event to be deleted")
	}
	if _, ok, _ := mapper.ExternalID(ctx, usage.ID()); ok {
		t.Fatalf("expected mapping to be removed")
	}

	t.Run("unmapped event ids fall back to every calendar", func(t *testing.T) {
		client.put("cal-rigel", Event{ID: "raw", Summary: "0", CreatorEmail: "c@example.com", Start: at(1), End: at(2)})
		if err := repo.Delete(ctx, "raw"); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
		if client.count("cal-rigel") != 0 {
			t.Fatalf("expected raw event to be deleted")
		}
	})

	t.Run("missing ids are not found", func(t *testing.T) {
		if err := repo.Delete(ctx, "nope"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("transport failures are not reported as not found", func(t *testing.T) {
		client.mu.Lock()
		client.delErr["cal-rigel"] = errors.New("connection reset")
		client.mu.Unlock()
		t.Cleanup(func() {
			client.mu.Lock()
			delete(client.delErr, "cal-rigel")
			client.mu.Unlock()
		})

		err := repo.Delete(ctx, "nope")
		if !errors.Is(err, persistence.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
		if errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected transport failure not to match ErrNotFound, got %v", err)
		}
	})
}

func TestRepository_FindFuture(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, client, _ := newTestRepository(t)

	client.put("cal-thalys", Event{ID: "ongoing", Summary: "0-1", CreatorEmail: "a@example.com", Start: at(-1), End: at(1)})
	client.put("cal-thalys", Event{ID: "ended", Summary: "2", CreatorEmail: "a@example.com", Start: at(-3), End: at(-1)})
	client.put("cal-thalys", Event{ID: "bad-spec", Summary: "9", CreatorEmail: "a@example.com", Start: at(1), End: at(2)})
	client.put("cal-room-a", Event{ID: "no-owner", Summary: "Meeting A", CreatorEmail: serviceAccount, Description: "", Start: at(1), End: at(2)})
	client.put("cal-room-a", Event{ID: "room", Summary: "Meeting A", CreatorEmail: serviceAccount, Description: "予約者: b@example.com", Start: at(4), End: at(5)})

	usages, err := repo.FindFuture(ctx)
	if err != nil {
		t.Fatalf("FindFuture returned error: %v", err)
	}
	if len(usages) != 2 {
		t.Fatalf("expected ongoing and room reservations, got %d", len(usages))
	}
	if len(usages[0].Resources()) != 2 {
		t.Fatalf("expected range title to expand, got %v", usages[0].Resources())
	}
	if usages[1].Owner() != "b@example.com" {
		t.Fatalf("expected owner from description, got %s", usages[1].Owner())
	}

	again, err := repo.FindFuture(ctx)
	if err != nil {
		t.Fatalf("FindFuture returned error: %v", err)
	}
	if again[0].ID() != usages[0].ID() {
		t.Fatalf("expected stable ids across fetches, got %s and %s", usages[0].ID(), again[0].ID())
	}

	t.Run("filters by owner and overlap", func(t *testing.T) {
		owned, err := repo.FindByOwner(ctx, "b@example.com")
		if err != nil || len(owned) != 1 {
			t.Fatalf("expected one reservation for b, got %d (%v)", len(owned), err)
		}
		window, _ := domain.NewTimePeriod(at(0), at(2))
		overlapping, err := repo.FindOverlapping(ctx, window)
		if err != nil || len(overlapping) != 1 {
			t.Fatalf("expected one overlapping reservation, got %d (%v)", len(overlapping), err)
		}
	})

	t.Run("backend failures are transient errors", func(t *testing.T) {
		client.listErr = errors.New("503")
		defer func() { client.listErr = nil }()
		_, err := repo.FindFuture(ctx)
		if !errors.Is(err, persistence.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})
}
