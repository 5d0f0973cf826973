package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

var (
	// ErrInvalidInput marks records rejected before they reach the store.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSetupIncomplete is returned by CompleteSetup while steps remain.
	ErrSetupIncomplete = errors.New("setup has incomplete steps")
	// ErrSetupClosed is returned when a completed session is modified.
	ErrSetupClosed = errors.New("setup session already completed")
	// ErrPhotosDisabled is returned by photo operations without a blob store.
	ErrPhotosDisabled = errors.New("photo storage not configured")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
