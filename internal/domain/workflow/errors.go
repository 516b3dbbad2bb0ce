package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when the current status does not permit the action
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUnauthorized is returned when the actor lacks the role or ownership an action requires
	ErrUnauthorized = errors.New("not authorized")

	// ErrGuardFailed is returned when a guard condition fails.
	// Lifecycle guards check ownership and roles, so it matches ErrUnauthorized.
	ErrGuardFailed = fmt.Errorf("%w: guard condition failed", ErrUnauthorized)

	// ErrConflict is returned when a status-conditioned write finds the row already changed
	ErrConflict = errors.New("mission was modified concurrently")

	// ErrValidation is returned for malformed input
	ErrValidation = errors.New("validation failed")
)

// ValidationError describes an invalid input field
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
