package application

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the administrator credential.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrRegistrationClosed is returned when a submission targets a missing or closed event.
	ErrRegistrationClosed = errors.New("application: registration closed")
	// ErrConfirmationRequired is returned when a destructive command was not confirmed.
	ErrConfirmationRequired = errors.New("application: confirmation required")
	// ErrUnreadableUpload is returned when an upload is not a readable spreadsheet.
	ErrUnreadableUpload = errors.New("application: unreadable spreadsheet")
	// ErrNothingToExport is returned when the response collection is empty.
	ErrNothingToExport = errors.New("application: nothing to export")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if msg, ok := v.FieldErrors["intents"]; ok && len(v.FieldErrors) == 1 {
		return msg
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}
