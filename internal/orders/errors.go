package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the referenced order (or user) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidStatus indicates a status value outside the enumerated set.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidTransition indicates the requested status change is not allowed
	// from the order's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStorageUnavailable indicates the persistence layer could not be reached.
	// Order creation must abort on it; no partial writes.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports bad or missing input. No side effect has occurred
// when it is returned.
type ValidationError struct {
	Fields              map[string]string
	UnavailableProducts []string
}

func (e *ValidationError) Error() string {
	var parts []string
	for f, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, msg))
	}
	if len(e.UnavailableProducts) > 0 {
		parts = append(parts, "unavailable products: "+strings.Join(e.UnavailableProducts, ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
