package patient

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a patient identifier no longer resolves.
var ErrNotFound = errors.New("patient not found")

// ConflictError reports a CIN uniqueness violation. The write is rejected
// and the store is left unchanged.
type ConflictError struct {
	CIN string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("CIN %q already exists", e.CIN)
}

// ValidationError reports a missing or malformed field. The operation is
// aborted before any store mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsConflict reports whether err is a CIN uniqueness violation.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
