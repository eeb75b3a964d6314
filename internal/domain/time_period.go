package domain

import "time"

// TimePeriod is a half-open interval [start, end).
type TimePeriod struct {
	start time.Time
	end   time.Time
}

// NewTimePeriod validates that start is strictly before end.
func NewTimePeriod(start, end time.Time) (TimePeriod, error) {
	if !start.Before(end) {
		return TimePeriod{}, &InvalidTimePeriodError{Start: start, End: end}
	}
	return TimePeriod{start: start, end: end}, nil
}

func (p TimePeriod) Start() time.Time { return p.start }

func (p TimePeriod) End() time.Time { return p.end }

func (p TimePeriod) Duration() time.Duration { return p.end.Sub(p.start) }

// OverlapsWith reports whether the two intervals share any instant.
func (p TimePeriod) OverlapsWith(other TimePeriod) bool {
	return p.start.Before(other.end) && other.start.Before(p.end)
}

// Contains reports whether t falls inside the period.
func (p TimePeriod) Contains(t time.Time) bool {
	return !t.Before(p.start) && t.Before(p.end)
}

// Equal compares instants, ignoring location.
func (p TimePeriod) Equal(other TimePeriod) bool {
	return p.start.Equal(other.start) && p.end.Equal(other.end)
}

// IsZero reports whether the period was never constructed.
func (p TimePeriod) IsZero() bool {
	return p.start.IsZero() && p.end.IsZero()
}
