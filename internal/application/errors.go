package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/lab-resource-manager/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the actor may not perform the operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested reservation does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrEmailAlreadyLinked is returned when an email already carries an
	// identity for the requested external system.
	ErrEmailAlreadyLinked = errors.New("application: email already linked to another user")
)

// ConflictError reports a double booking found by the conflict checker.
type ConflictError struct {
	Conflict scheduler.Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("resource %s is already reserved by %s",
		e.Conflict.ResourceDescription, e.Conflict.ConflictingUsageID)
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error lists the offending fields in a stable order.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field + ": " + v.FieldErrors[field]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
