package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when the ride is not in a state that allows the operation
	ErrInvalidTransition = errors.New("invalid ride transition")
	// ErrAlreadyTaken is returned to a driver who lost the accept race
	ErrAlreadyTaken = errors.New("ride already taken")
	// ErrConfigurationMissing is returned when no service zone or radius covers the request
	ErrConfigurationMissing = errors.New("dispatch configuration missing")
	// ErrStoreUnavailable wraps transient storage and network failures
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrActiveRideExists is returned when a passenger already has a non-terminal ride
	ErrActiveRideExists = errors.New("passenger already has an active ride")
	ErrRideNotFound     = errors.New("ride not found")
	ErrDriverNotFound   = errors.New("driver not found")
	ErrNotParticipant   = errors.New("user is not allowed to act on this ride")
	ErrAlreadyRated     = errors.New("ride already rated")
	ErrValidation       = errors.New("validation failed")
)

// ValidationError reports malformed input rejected before any state change
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Unavailable marks err as a transient store failure
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
