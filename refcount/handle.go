package refcount

// Handle is one live reference to a Resource, held by a single owner.
type Handle[T any] struct {
	resource *Resource[T]
	owner    *Owner
}

// Acquire reserves a reference on r for owner and returns it as a Handle.
func Acquire[T any](r *Resource[T], owner *Owner) (*Handle[T], error) {
	if err := r.Reserve(owner); err != nil {
		return nil, err
	}
	return &Handle[T]{resource: r, owner: owner}, nil
}

// Value returns the underlying value.
func (h *Handle[T]) Value() T {
	return h.resource.Value()
}

// Owner returns the owner the reference was reserved for.
func (h *Handle[T]) Owner() *Owner {
	return h.owner
}

// Resource returns the underlying Resource.
func (h *Handle[T]) Resource() *Resource[T] {
	return h.resource
}

// Release drops the reference. Releasing twice returns an
// *OwnershipViolationError.
func (h *Handle[T]) Release() error {
	return h.resource.Release(h.owner)
}
