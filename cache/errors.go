package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for cache operations.
var (
	// ErrClosed is returned by Get and Remove after Shutdown.
	ErrClosed = errors.New("cache: cache is closed")

	// ErrCreate matches any error returned by a creator.
	ErrCreate = errors.New("cache: create failed")

	// ErrCreateInFlight is returned, wrapped in a CreateError, by Get for a
	// key whose previous creator overran the create timeout and is still
	// running.
	ErrCreateInFlight = errors.New("cache: abandoned create still running")

	// ErrNilCreate is returned by New when no creator is given.
	ErrNilCreate = errors.New("cache: create func is nil")

	// ErrNilTransform is returned by New when no transform is given.
	ErrNilTransform = errors.New("cache: transform func is nil")

	// ErrInvalidOption is returned by New when an option does not fit the
	// cache's resource type.
	ErrInvalidOption = errors.New("cache: invalid option")
)

// CreateError wraps an error returned by the creator for Key.
// It matches both ErrCreate and the creator's error with errors.Is.
type CreateError struct {
	Key string
	Err error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("cache: create %q: %v", e.Key, e.Err)
}

// Unwrap returns the creator's error.
func (e *CreateError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCreate.
func (e *CreateError) Is(target error) bool {
	return target == ErrCreate
}
