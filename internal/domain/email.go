package domain

import (
	"fmt"
	"strings"
)

// EmailAddress is the primary user identity.
type EmailAddress string

// NewEmailAddress trims the value and requires an @.
func NewEmailAddress(value string) (EmailAddress, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || !strings.Contains(trimmed, "@") {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, value)
	}
	return EmailAddress(trimmed), nil
}

func (e EmailAddress) String() string { return string(e) }

// LocalPart returns the part before the @.
func (e EmailAddress) LocalPart() string {
	local, _, _ := strings.Cut(string(e), "@")
	return local
}
