package session

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a session identifier no longer resolves.
var ErrNotFound = errors.New("session not found")

// ValidationError reports a missing or malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
