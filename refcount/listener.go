package refcount

// EventKind identifies what changed on a Resource.
type EventKind uint8

const (
	// EventReserved is sent after an owner reserved a reference.
	EventReserved EventKind = iota
	// EventReleased is sent after an owner released a reference.
	EventReleased
	// EventTransferred is sent after a reference moved between owners.
	EventTransferred
	// EventDestroyed is sent after the destruction action ran.
	EventDestroyed
)

func (k EventKind) String() string {
	switch k {
	case EventReserved:
		return "reserved"
	case EventReleased:
		return "released"
	case EventTransferred:
		return "transferred"
	case EventDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Event describes a single change to a Resource's reference count.
type Event struct {
	Kind EventKind
	// Owner is the owner that reserved or released, or the receiving owner
	// of a transfer. It is nil for a forced close.
	Owner *Owner
	// From is the giving owner of a transfer.
	From *Owner
	// Count is the reference count right after the change.
	Count int
}

// Listener observes reference count changes.
//
// Listeners run synchronously in the goroutine that changed the count. They
// must not block and must not reserve or release on the same resource.
type Listener interface {
	OnReferenceChange(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// OnReferenceChange calls f(e).
func (f ListenerFunc) OnReferenceChange(e Event) {
	f(e)
}

type listenerEntry struct {
	id uint64
	l  Listener
}

// AddListener registers l and returns a function that unregisters it.
func (r *Resource[T]) AddListener(l Listener) (remove func()) {
	r.lmu.Lock()
	defer r.lmu.Unlock()

	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, listenerEntry{id: id, l: l})

	return func() {
		r.lmu.Lock()
		defer r.lmu.Unlock()
		for i, e := range r.listeners {
			if e.id == id {
				r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

func (r *Resource[T]) notify(e Event) {
	r.lmu.RLock()
	listeners := make([]Listener, len(r.listeners))
	for i, entry := range r.listeners {
		listeners[i] = entry.l
	}
	r.lmu.RUnlock()

	for _, l := range listeners {
		l.OnReferenceChange(e)
	}
}
