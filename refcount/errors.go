package refcount

import (
	"errors"
	"fmt"
)

// Sentinel errors for reference counting.
var (
	// ErrOwnershipViolation matches any *OwnershipViolationError.
	ErrOwnershipViolation = errors.New("refcount: owner does not hold a reference")

	// ErrAlreadyReserved matches any *AlreadyReservedError.
	ErrAlreadyReserved = errors.New("refcount: owner already holds a reference")

	// ErrDestroyed is returned when reserving a resource that was destroyed.
	ErrDestroyed = errors.New("refcount: resource already destroyed")

	// ErrNotCloseable is returned by ForceClose when the resource has no
	// destruction action.
	ErrNotCloseable = errors.New("refcount: resource has no destruction action")

	// ErrNilOwner is returned when a nil owner is passed.
	ErrNilOwner = errors.New("refcount: owner is nil")
)

// OwnershipViolationError reports a release or transfer by an owner that
// does not currently hold a reference. It is a contract violation and is
// never retried.
type OwnershipViolationError struct {
	Owner    *Owner
	Resource string
}

func (e *OwnershipViolationError) Error() string {
	return fmt.Sprintf("%s: %s on %s", ErrOwnershipViolation, e.Owner, e.Resource)
}

// Is reports whether target is ErrOwnershipViolation.
func (e *OwnershipViolationError) Is(target error) bool {
	return target == ErrOwnershipViolation
}

// AlreadyReservedError reports a second reservation by the same owner.
type AlreadyReservedError struct {
	Owner    *Owner
	Resource string
}

func (e *AlreadyReservedError) Error() string {
	return fmt.Sprintf("%s: %s on %s", ErrAlreadyReserved, e.Owner, e.Resource)
}

// Is reports whether target is ErrAlreadyReserved.
func (e *AlreadyReservedError) Is(target error) bool {
	return target == ErrAlreadyReserved
}
