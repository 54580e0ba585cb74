// Package refcount provides owner-tagged reference counting for resources
// that must be destroyed deterministically.
//
// A Resource wraps a value together with a one-shot destruction action. Every
// reference is reserved under an Owner, and only the owner that reserved a
// reference may release it. When the last reference is released the
// destruction action runs exactly once, in the releasing goroutine.
//
// # Basic Usage
//
//	r := refcount.New(conn) // conn implements io.Closer
//	owner := refcount.NewOwner("worker")
//
//	h, err := refcount.Acquire(r, owner)
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//
// # Change Notifications
//
// Listeners registered with AddListener observe every change to the count.
// They run synchronously in the goroutine that changed the count, after the
// resource's internal lock has been released, so they must be fast. The
// count carried by an Event is the value at the moment of the change, not a
// later re-read.
package refcount
