package application

import (
	"testing"

	"github.com/example/lab-resource-manager/internal/scheduler"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"start": "start is required", "end": "end is required"}}
	if got, want := withFields.Error(), "validation failed: end: end is required; start: start is required"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestConflictError_Error(t *testing.T) {
	t.Parallel()

	err := &ConflictError{Conflict: scheduler.Conflict{ResourceDescription: "Thalys / A100 / GPU:0", ConflictingUsageID: "usage-a"}}
	if got, want := err.Error(), "resource Thalys / A100 / GPU:0 is already reserved by usage-a"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
