package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// UsageID identifies a reservation independently of any calendar event id.
type UsageID string

// NewUsageID allocates a fresh random identifier.
func NewUsageID() UsageID {
	return UsageID(uuid.NewString())
}

func (id UsageID) String() string { return string(id) }

// ResourceUsage is a reservation of one or more resources for a period.
type ResourceUsage struct {
	id        UsageID
	owner     EmailAddress
	period    TimePeriod
	resources []Resource
	notes     string
}

// NewResourceUsage builds a reservation with a fresh id.
func NewResourceUsage(owner EmailAddress, period TimePeriod, resources []Resource, notes string) (ResourceUsage, error) {
	return ReconstructResourceUsage(NewUsageID(), owner, period, resources, notes)
}

// ReconstructResourceUsage rehydrates a reservation that already has an id.
func ReconstructResourceUsage(id UsageID, owner EmailAddress, period TimePeriod, resources []Resource, notes string) (ResourceUsage, error) {
	if len(resources) == 0 {
		return ResourceUsage{}, ErrNoResourceItems
	}
	if period.IsZero() || !period.Start().Before(period.End()) {
		return ResourceUsage{}, &InvalidTimePeriodError{Start: period.Start(), End: period.End()}
	}
	return ResourceUsage{
		id:        id,
		owner:     owner,
		period:    period,
		resources: slices.Clone(resources),
		notes:     notes,
	}, nil
}

func (u ResourceUsage) ID() UsageID { return u.id }

func (u ResourceUsage) Owner() EmailAddress { return u.owner }

func (u ResourceUsage) TimePeriod() TimePeriod { return u.period }

// Resources returns a copy of the resource list.
func (u ResourceUsage) Resources() []Resource { return slices.Clone(u.resources) }

// Notes is empty when the reservation has none.
func (u ResourceUsage) Notes() string { return u.notes }

// UpdateTimePeriod replaces the period. Conflict checks are the caller's job.
func (u *ResourceUsage) UpdateTimePeriod(period TimePeriod) {
	u.period = period
}

func (u *ResourceUsage) UpdateNotes(notes string) {
	u.notes = notes
}

// WithID returns a copy carrying id.
func (u ResourceUsage) WithID(id UsageID) ResourceUsage {
	u.id = id
	u.resources = slices.Clone(u.resources)
	return u
}

// IsFuture reports whether the reservation has not fully elapsed at now.
func (u ResourceUsage) IsFuture(now time.Time) bool {
	return u.period.End().After(now)
}

// Equal compares every field.
func (u ResourceUsage) Equal(other ResourceUsage) bool {
	if u.id != other.id || u.owner != other.owner || u.notes != other.notes {
		return false
	}
	if !u.period.Equal(other.period) {
		return false
	}
	return slices.Equal(u.resources, other.resources)
}

// HasGPU reports whether any resource is a GPU.
func (u ResourceUsage) HasGPU() bool {
	return slices.ContainsFunc(u.resources, func(r Resource) bool {
		_, ok := r.(GPU)
		return ok
	})
}

// HasRoom reports whether any resource is a Room.
func (u ResourceUsage) HasRoom() bool {
	return slices.ContainsFunc(u.resources, func(r Resource) bool {
		_, ok := r.(Room)
		return ok
	})
}
