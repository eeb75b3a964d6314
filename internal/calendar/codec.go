package calendar

import (
	"fmt"
	"strings"

	"github.com/example/lab-resource-manager/internal/config"
	"github.com/example/lab-resource-manager/internal/domain"
)

const (
	ownerPrefix    = "予約者: "
	notesSeparator = "\n\n"
)

// codec converts between reservations and events for a resource catalog.
type codec struct {
	catalog        *config.ResourceConfig
	serviceAccount string
}

// calendarFor returns the single calendar holding every resource of usage.
func (c codec) calendarFor(resources []domain.Resource) (string, error) {
	if len(resources) == 0 {
		return "", domain.ErrNoResourceItems
	}
	calendarID := ""
	for _, r := range resources {
		id, ok := c.catalog.CalendarFor(r)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownResource, r.Describe())
		}
		if calendarID != "" && id != calendarID {
			return "", ErrMultipleCalendars
		}
		calendarID = id
	}
	return calendarID, nil
}

// encode renders usage as an event. The title is the device spec for server
// calendars and the room name for room calendars.
func (c codec) encode(usage domain.ResourceUsage) (string, Event, error) {
	resources := usage.Resources()
	calendarID, err := c.calendarFor(resources)
	if err != nil {
		return "", Event{}, err
	}

	var summary string
	switch first := resources[0].(type) {
	case domain.GPU:
		devices := make([]int, 0, len(resources))
		for _, r := range resources {
			if gpu, ok := r.(domain.GPU); ok {
				devices = append(devices, gpu.DeviceNumber)
			}
		}
		summary = domain.FormatDeviceSpec(devices)
	case domain.Room:
		summary = first.Name
	}

	description := ownerPrefix + usage.Owner().String()
	if usage.Notes() != "" {
		description += notesSeparator + usage.Notes()
	}

	return calendarID, Event{
		Summary:     summary,
		Description: description,
		Start:       usage.TimePeriod().Start(),
		End:         usage.TimePeriod().End(),
	}, nil
}

// decode rebuilds a reservation with the given id from an event stored in calendarID.
func (c codec) decode(id domain.UsageID, calendarID string, event Event) (domain.ResourceUsage, error) {
	owner, err := c.owner(event)
	if err != nil {
		return domain.ResourceUsage{}, err
	}

	period, err := domain.NewTimePeriod(event.Start, event.End)
	if err != nil {
		return domain.ResourceUsage{}, fmt.Errorf("%w: event %s: %w", ErrMalformedEvent, event.ID, err)
	}

	resources, err := c.resources(calendarID, event.Summary)
	if err != nil {
		return domain.ResourceUsage{}, err
	}

	var notes string
	if _, rest, ok := strings.Cut(event.Description, notesSeparator); ok {
		notes = rest
	}

	return domain.ReconstructResourceUsage(id, owner, period, resources, notes)
}

// owner is the creator unless the service account created the event, in
// which case the first description line names the user.
func (c codec) owner(event Event) (domain.EmailAddress, error) {
	creator := strings.TrimSpace(event.CreatorEmail)
	if creator == "" {
		return "", fmt.Errorf("%w: event %s has no creator", ErrMalformedEvent, event.ID)
	}
	if creator != c.serviceAccount {
		return domain.NewEmailAddress(creator)
	}

	firstLine, _, _ := strings.Cut(event.Description, "\n")
	email, ok := strings.CutPrefix(firstLine, ownerPrefix)
	if !ok {
		return "", fmt.Errorf("%w: event %s has no owner line", ErrMalformedEvent, event.ID)
	}
	return domain.NewEmailAddress(email)
}

func (c codec) resources(calendarID, title string) ([]domain.Resource, error) {
	if room, ok := c.catalog.RoomByCalendarID(calendarID); ok {
		return []domain.Resource{domain.Room{Name: room.Name}}, nil
	}
	server, ok := c.catalog.ServerByCalendarID(calendarID)
	if !ok {
		return nil, fmt.Errorf("%w: calendar %s", ErrUnknownResource, calendarID)
	}
	return domain.CreateGPUs(title, server.Name, server.DomainDevices())
}
