package refcount

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Resource is a value with an owner-tagged reference count and a one-shot
// destruction action.
//
// Contract:
// - Concurrency: all methods are safe for concurrent use.
// - Ownership: an owner holds at most one reference at a time.
// - Errors: releasing without holding a reference fails and never mutates the count.
type Resource[T any] struct {
	mu        sync.Mutex
	value     T
	destroy   func(T) error
	owners    map[*Owner]struct{}
	destroyed bool

	lmu       sync.RWMutex
	listeners []listenerEntry
	nextID    uint64
}

// Option configures a Resource.
type Option[T any] func(*Resource[T])

// WithDestroy sets the destruction action, replacing the io.Closer default.
func WithDestroy[T any](fn func(T) error) Option[T] {
	return func(r *Resource[T]) {
		r.destroy = fn
	}
}

// WithListener registers a listener at construction time.
func WithListener[T any](l Listener) Option[T] {
	return func(r *Resource[T]) {
		r.AddListener(l)
	}
}

// New wraps value in a Resource with a count of zero.
//
// If value implements io.Closer, Close is the destruction action unless
// WithDestroy overrides it. Without either, the resource is released by
// count only and cannot be force-closed.
func New[T any](value T, opts ...Option[T]) *Resource[T] {
	r := &Resource[T]{
		value:  value,
		owners: make(map[*Owner]struct{}),
	}
	if c, ok := any(value).(io.Closer); ok {
		r.destroy = func(T) error { return c.Close() }
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Value returns the wrapped value. It stays accessible after destruction.
func (r *Resource[T]) Value() T {
	return r.value
}

// Reserve registers owner as a holder and increments the count.
func (r *Resource[T]) Reserve(owner *Owner) error {
	if owner == nil {
		return ErrNilOwner
	}

	r.mu.Lock()
	if r.destroyed {
		desc := r.describeLocked()
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDestroyed, desc)
	}
	if _, ok := r.owners[owner]; ok {
		desc := r.describeLocked()
		r.mu.Unlock()
		return &AlreadyReservedError{Owner: owner, Resource: desc}
	}
	r.owners[owner] = struct{}{}
	count := len(r.owners)
	r.mu.Unlock()

	r.notify(Event{Kind: EventReserved, Owner: owner, Count: count})
	return nil
}

// Release drops the reference held by owner. When the count reaches zero the
// destruction action runs in the calling goroutine, before listeners are
// told about the release. The destruction action's error is returned.
func (r *Resource[T]) Release(owner *Owner) error {
	if owner == nil {
		return ErrNilOwner
	}

	r.mu.Lock()
	if _, ok := r.owners[owner]; !ok {
		desc := r.describeLocked()
		r.mu.Unlock()
		return &OwnershipViolationError{Owner: owner, Resource: desc}
	}
	delete(r.owners, owner)
	count := len(r.owners)
	last := count == 0 && !r.destroyed
	if last {
		r.destroyed = true
	}
	r.mu.Unlock()

	var err error
	if last {
		err = r.runDestroy()
	}

	r.notify(Event{Kind: EventReleased, Owner: owner, Count: count})
	if last {
		r.notify(Event{Kind: EventDestroyed, Owner: owner})
	}
	return err
}

// Transfer moves the reference held by from to to without changing the count.
func (r *Resource[T]) Transfer(from, to *Owner) error {
	if from == nil || to == nil {
		return ErrNilOwner
	}

	r.mu.Lock()
	if _, ok := r.owners[from]; !ok {
		desc := r.describeLocked()
		r.mu.Unlock()
		return &OwnershipViolationError{Owner: from, Resource: desc}
	}
	if r.destroyed {
		desc := r.describeLocked()
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDestroyed, desc)
	}
	if _, ok := r.owners[to]; ok {
		desc := r.describeLocked()
		r.mu.Unlock()
		return &AlreadyReservedError{Owner: to, Resource: desc}
	}
	delete(r.owners, from)
	r.owners[to] = struct{}{}
	count := len(r.owners)
	r.mu.Unlock()

	r.notify(Event{Kind: EventTransferred, Owner: to, From: from, Count: count})
	return nil
}

// RefCount returns the current count. The value is a snapshot and may be
// stale by the time the caller reads it.
func (r *Resource[T]) RefCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}

// Holds reports whether owner currently holds a reference.
func (r *Resource[T]) Holds(owner *Owner) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.owners[owner]
	return ok
}

// Owners returns a snapshot of the current holders, sorted by name.
func (r *Resource[T]) Owners() []*Owner {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ownersLocked()
}

// Destroyed reports whether the destruction action has been started.
func (r *Resource[T]) Destroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

// CanForceClose reports whether the resource has a destruction action.
func (r *Resource[T]) CanForceClose() bool {
	return r.destroy != nil
}

// ForceClose runs the destruction action now, regardless of outstanding
// references. Holders keep their ledger entries and may still release them,
// but no new reservations are accepted. It is a no-op on a destroyed resource.
func (r *Resource[T]) ForceClose() error {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return nil
	}
	if r.destroy == nil {
		r.mu.Unlock()
		return ErrNotCloseable
	}
	r.destroyed = true
	count := len(r.owners)
	r.mu.Unlock()

	err := r.runDestroy()
	r.notify(Event{Kind: EventDestroyed, Count: count})
	return err
}

// String describes the resource for leak reports.
func (r *Resource[T]) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.describeLocked()
}

func (r *Resource[T]) describeLocked() string {
	owners := r.ownersLocked()
	names := make([]string, len(owners))
	for i, o := range owners {
		names[i] = o.String()
	}
	return fmt.Sprintf("%T@%p refCount=%d owners=[%s]", r.value, r, len(owners), strings.Join(names, " "))
}

func (r *Resource[T]) ownersLocked() []*Owner {
	owners := make([]*Owner, 0, len(r.owners))
	for o := range r.owners {
		owners = append(owners, o)
	}
	sort.Slice(owners, func(i, j int) bool {
		if owners[i].name != owners[j].name {
			return owners[i].name < owners[j].name
		}
		return owners[i].seq < owners[j].seq
	})
	return owners
}

func (r *Resource[T]) runDestroy() (err error) {
	if r.destroy == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("refcount: destroy %T panicked: %v", r.value, p)
		}
	}()
	if derr := r.destroy(r.value); derr != nil {
		return fmt.Errorf("refcount: destroy %T: %w", r.value, derr)
	}
	return nil
}
