package testfixtures

import (
	"testing"
	"time"

	"github.com/example/lab-resource-manager/internal/config"
	"github.com/example/lab-resource-manager/internal/domain"
)

const (
	Alice domain.EmailAddress = "alice@lab.example.com"
	Bob   domain.EmailAddress = "bob@lab.example.com"
)

// Catalog is a small lab: Thalys with four A100s, Rigel with two H100s and
// one meeting room. Every resource notifies a mock destination in Tokyo.
func Catalog() *config.ResourceConfig {
	mock := []config.NotificationConfig{{Type: "mock", Timezone: "Asia/Tokyo"}}
	return &config.ResourceConfig{
		Servers: []config.ServerConfig{
			{
				Name:       "Thalys",
				CalendarID: "thalys@group.calendar.google.com",
				Devices: []config.DeviceConfig{
					{ID: 0, Model: "A100"}, {ID: 1, Model: "A100"},
					{ID: 2, Model: "A100"}, {ID: 3, Model: "A100"},
				},
				Notifications: mock,
			},
			{
				Name:       "Rigel",
				CalendarID: "rigel@group.calendar.google.com",
				Devices: []config.DeviceConfig{
					{ID: 0, Model: "H100"}, {ID: 1, Model: "H100"},
				},
				Notifications: mock,
			},
		},
		Rooms: []config.RoomConfig{
			{Name: "Meeting A", CalendarID: "meeting-a@group.calendar.google.com", Notifications: mock},
		},
	}
}

// GPUs resolves a device spec on a Catalog server and fails the test on error.
func GPUs(tb testing.TB, server, spec string) []domain.Resource {
	tb.Helper()
	cfg, ok := Catalog().Server(server)
	if !ok {
		tb.Fatalf("unknown fixture server %q", server)
	}
	resources, err := domain.CreateGPUs(spec, cfg.Name, cfg.DomainDevices())
	if err != nil {
		tb.Fatalf("CreateGPUs(%q, %q): %v", spec, server, err)
	}
	return resources
}

// Usage builds a reservation with a fixed id.
func Usage(tb testing.TB, id domain.UsageID, owner domain.EmailAddress, start, end time.Time, resources []domain.Resource, notes string) domain.ResourceUsage {
	tb.Helper()
	period, err := domain.NewTimePeriod(start, end)
	if err != nil {
		tb.Fatalf("NewTimePeriod: %v", err)
	}
	usage, err := domain.ReconstructResourceUsage(id, owner, period, resources, notes)
	if err != nil {
		tb.Fatalf("ReconstructResourceUsage: %v", err)
	}
	return usage
}
