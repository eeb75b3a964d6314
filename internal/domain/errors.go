package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTimePeriod is matched by every InvalidTimePeriodError.
	ErrInvalidTimePeriod = errors.New("domain: invalid time period")
	// ErrNoResourceItems is returned when a usage is built without resources.
	ErrNoResourceItems = errors.New("domain: resource usage requires at least one resource")
	// ErrInvalidEmail is returned for addresses without an @.
	ErrInvalidEmail = errors.New("domain: invalid email address")
	// ErrAlreadyLinked is returned when an identity link already holds an identity for the system.
	ErrAlreadyLinked = errors.New("domain: external system already linked")
	// ErrNotLinked is returned when unlinking a system that has no identity.
	ErrNotLinked = errors.New("domain: external system not linked")
)

// InvalidTimePeriodError reports a period whose start is not before its end.
type InvalidTimePeriodError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidTimePeriodError) Error() string {
	return fmt.Sprintf("invalid time period: start %s must be before end %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *InvalidTimePeriodError) Unwrap() error {
	return ErrInvalidTimePeriod
}
