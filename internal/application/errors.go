package application

import "errors"

var (
	// ErrUnauthorized is returned when a caller presents no or an invalid API key.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested rule, profile, calendar or entry does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a profile, calendar or entry id is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrNoSchedule is returned when an operation needs a schedule that was never loaded.
	ErrNoSchedule = errors.New("application: no schedule loaded")
	// ErrStoreUnreadable is returned when a stored collection could not be
	// read, and by Save when writing would overwrite it.
	ErrStoreUnreadable = errors.New("application: stored data unreadable")
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
	v.FieldErrors[field] = message
}
