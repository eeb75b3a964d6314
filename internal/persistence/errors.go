package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrConflict is returned when a write collides with existing state.
	ErrConflict = errors.New("persistence: conflict")
	// ErrUnavailable is matched by every ConnectionError.
	ErrUnavailable = errors.New("persistence: backend unavailable")
)

// ConnectionError wraps a transport failure talking to a backing store. It is
// usually transient.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}

// NewConnectionError wraps err unless it is nil.
func NewConnectionError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ConnectionError{Op: op, Err: err}
}
