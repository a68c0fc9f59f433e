// Package common defines shared constants and sentinel errors used across
// TeamFlow layers. Callers should use errors.Is / errors.As to match them.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal       = errors.New("internal error")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors.
	ErrValidation     = errors.New("validation error")
	ErrInvalidProject = errors.New("invalid project")

	// Timer state errors.
	ErrAlreadyRunning = errors.New("timer already running")
	ErrInvalidState   = errors.New("invalid state")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// AlreadyRunningError is returned by start when the user still has an open
// (active or paused) entry. EntryID lets the caller recover that entry.
type AlreadyRunningError struct {
	EntryID int64
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("%s: entry %d", ErrAlreadyRunning, e.EntryID)
}

func (e *AlreadyRunningError) Unwrap() error { return ErrAlreadyRunning }

// Validationf builds an ErrValidation-wrapped error with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
