package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/jonwraymond/refcache/observe"
	"github.com/jonwraymond/refcache/reaper"
	"github.com/jonwraymond/refcache/refcount"
	"github.com/jonwraymond/refcache/resilience"
)

// CreateFunc builds the resource for key. It runs with the cache lock held.
type CreateFunc[K comparable, T any] func(ctx context.Context, key K) (T, error)

// TransformFunc derives the caller-facing view from a freshly acquired
// handle. It must not release h; the caller owns it through the view. If it
// fails, the cache releases h and Get returns the error.
type TransformFunc[T, V any] func(h *refcount.Handle[T]) (V, error)

// Passthrough returns a TransformFunc whose view is the handle itself.
func Passthrough[T any]() TransformFunc[T, *refcount.Handle[T]] {
	return func(h *refcount.Handle[T]) (*refcount.Handle[T], error) {
		return h, nil
	}
}

type entry[T any] struct {
	res      *refcount.Resource[T]
	unlisten func()
}

// Cache lazily creates and shares reference-counted resources by key.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use. One lock guards
//     the map, the retained set and the closed flag; Get holds it across
//     creation, so creation is serialized across all keys.
//   - Ownership: every Get returns a view backed by a fresh owner's
//     reference; the caller must release it exactly once.
//   - Errors: creator errors are returned as *CreateError; ownership errors
//     are never swallowed.
type Cache[K comparable, T, V any] struct {
	mu       sync.Mutex
	entries  map[K]*entry[T]
	retained []*refcount.Resource[T]
	closed   bool

	// abandoned holds keys whose creator overran the create timeout and has
	// not returned yet.
	abandoned map[K]*flight

	owner      *refcount.Owner
	callerName string
	create     CreateFunc[K, T]
	timeout    time.Duration
	transform  TransformFunc[T, V]
	resOpts    []refcount.Option[T]

	meta    observe.CacheMeta
	logger  observe.Logger
	metrics observe.Metrics
	tracer  observe.Tracer
	reaper  *reaper.Reaper

	leakTracing   bool
	drainTimeout  time.Duration
	drainInterval time.Duration
}

// New creates a Cache that builds resources with create and hands them out
// through transform.
func New[K comparable, T, V any](create CreateFunc[K, T], transform TransformFunc[T, V], opts ...Option) (*Cache[K, T, V], error) {
	if create == nil {
		return nil, ErrNilCreate
	}
	if transform == nil {
		return nil, ErrNilTransform
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[K, T, V]{
		entries:       make(map[K]*entry[T]),
		abandoned:     make(map[K]*flight),
		owner:         refcount.NewOwner(o.name),
		callerName:    o.name + "/get",
		transform:     transform,
		reaper:        o.reaper,
		leakTracing:   o.leakTracing,
		drainTimeout:  o.drainTimeout,
		drainInterval: o.drainInterval,
	}
	if c.reaper == nil {
		c.reaper = reaper.Default()
	}

	if o.destroy != nil {
		fn, ok := o.destroy.(func(T) error)
		if !ok {
			return nil, fmt.Errorf("%w: WithDestroy expects func(%s) error, got %T",
				ErrInvalidOption, reflect.TypeFor[T](), o.destroy)
		}
		c.resOpts = append(c.resOpts, refcount.WithDestroy(fn))
	}

	if o.observer != nil {
		fromObs, err := observe.MiddlewareFromObserver(o.observer)
		if err != nil {
			return nil, fmt.Errorf("cache: observer: %w", err)
		}
		if o.logger == nil {
			o.logger = fromObs.Logger()
		}
		if o.metrics == nil {
			o.metrics = fromObs.Metrics()
		}
		if o.tracer == nil {
			o.tracer = fromObs.Tracer()
		}
	}

	mw := observe.NewMiddleware(o.tracer, o.metrics, o.logger)
	c.meta = observe.CacheMeta{Name: o.name, Kind: reflect.TypeFor[T]().String()}
	c.logger = mw.Logger().WithCache(c.meta)
	c.metrics = mw.Metrics()
	c.tracer = mw.Tracer()

	c.create = observe.InstrumentCreate(mw, c.meta, create)
	c.timeout = o.createTimeout

	return c, nil
}

// Get returns a view of the resource for key, creating it on first use.
// The view holds its own reference, which the caller must release.
func (c *Cache[K, T, V]) Get(ctx context.Context, key K) (view V, err error) {
	ctx, span := c.tracer.StartSpan(ctx, "get", c.meta)
	defer func() { c.tracer.EndSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return view, ErrClosed
	}

	h, hit, err := c.acquireLocked(ctx, key)
	if err != nil {
		return view, err
	}
	if hit {
		c.metrics.RecordHit(ctx, c.meta)
	}

	view, err = c.transform(h)
	if err != nil {
		if rerr := h.Release(); rerr != nil {
			c.logger.Error(ctx, "release after failed transform",
				observe.Field{Key: "key", Value: fmt.Sprint(key)},
				observe.Field{Key: "error", Value: rerr},
			)
		}
		var zero V
		return zero, err
	}
	return view, nil
}

// acquireLocked reserves a fresh caller reference on the resource for key,
// creating the resource on a miss. An entry whose resource was destroyed
// behind the cache's back, including between lookup and reservation, is
// dropped and the key recreated.
func (c *Cache[K, T, V]) acquireLocked(ctx context.Context, key K) (*refcount.Handle[T], bool, error) {
	owner := refcount.NewOwner(c.callerName)

	if e, ok := c.entries[key]; ok {
		h, err := refcount.Acquire(e.res, owner)
		if err == nil {
			return h, true, nil
		}
		if !errors.Is(err, refcount.ErrDestroyed) {
			return nil, false, err
		}
		c.logger.Debug(ctx, "dropping destroyed entry", observe.Field{Key: "key", Value: fmt.Sprint(key)})
		_ = c.dropLocked(ctx, key, e)
	}

	res, err := c.createLocked(ctx, key)
	if err != nil {
		return nil, false, err
	}
	h, err := refcount.Acquire(res, owner)
	return h, false, err
}

func (c *Cache[K, T, V]) createLocked(ctx context.Context, key K) (*refcount.Resource[T], error) {
	if _, ok := c.abandoned[key]; ok {
		return nil, &CreateError{Key: fmt.Sprint(key), Err: ErrCreateInFlight}
	}

	value, err := c.callCreateLocked(ctx, key)
	if err != nil {
		return nil, &CreateError{Key: fmt.Sprint(key), Err: err}
	}

	res := refcount.New(value, c.resOpts...)
	if err := res.Reserve(c.owner); err != nil {
		return nil, err
	}

	c.entries[key] = &entry[T]{
		res:      res,
		unlisten: res.AddListener(refcount.ListenerFunc(c.onReferenceChange)),
	}
	c.metrics.RecordEntries(ctx, c.meta, 1)
	return res, nil
}

// flight tracks one creator call made under a create timeout.
type flight struct {
	mu        sync.Mutex
	finished  bool
	abandoned bool
}

// errLateResult marks a late creator result that was already disposed of.
var errLateResult = errors.New("cache: late create result discarded")

// callCreateLocked runs the creator, bounded by the create timeout if one is
// set. A creator that overruns keeps its key in c.abandoned until it returns,
// so no second creator runs for that key in the meantime.
func (c *Cache[K, T, V]) callCreateLocked(ctx context.Context, key K) (T, error) {
	if c.timeout <= 0 {
		return c.create(ctx, key)
	}

	f := &flight{}
	value, err := resilience.CallWithTimeout(ctx, c.timeout, func(ctx context.Context) (T, error) {
		v, err := c.create(ctx, key)

		f.mu.Lock()
		f.finished = true
		abandoned := f.abandoned
		f.mu.Unlock()
		if !abandoned {
			return v, err
		}

		// Get no longer waits on this call, so taking the cache lock is safe.
		if err == nil {
			c.discard(v)
		}
		c.mu.Lock()
		if c.abandoned[key] == f {
			delete(c.abandoned, key)
		}
		c.mu.Unlock()

		var zero T
		return zero, errLateResult
	}, c.discard)
	if err == nil {
		return value, nil
	}

	f.mu.Lock()
	if !f.finished {
		f.abandoned = true
		c.abandoned[key] = f
		c.logger.Warn(ctx, "creator abandoned after timeout",
			observe.Field{Key: "key", Value: fmt.Sprint(key)},
			observe.Field{Key: "timeout_ms", Value: c.timeout.Milliseconds()},
		)
	}
	f.mu.Unlock()
	return value, err
}

// Remove drops the cache's reference for key and deletes the entry. A
// resource still held elsewhere stays alive until its holders release it;
// the next Get creates a new instance. Remove on a missing key is a no-op.
// The error is the destruction error when Remove released the last
// reference.
func (c *Cache[K, T, V]) Remove(key K) error {
	ctx := context.Background()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	e, ok := c.entries[key]
	if !ok {
		return nil
	}

	err := c.dropLocked(ctx, key, e)
	c.metrics.RecordRemove(ctx, c.meta)
	return err
}

// dropLocked releases the keep-alive reference of e, deletes key and moves
// the resource to the retained set if it is still referenced.
func (c *Cache[K, T, V]) dropLocked(ctx context.Context, key K, e *entry[T]) error {
	var err error
	if e.res.Holds(c.owner) {
		err = e.res.Release(c.owner)
		if err != nil {
			c.logger.Error(ctx, "release keep-alive reference",
				observe.Field{Key: "key", Value: fmt.Sprint(key)},
				observe.Field{Key: "error", Value: err},
			)
		}
	}

	e.unlisten()
	delete(c.entries, key)
	c.metrics.RecordEntries(ctx, c.meta, -1)

	if !e.res.Destroyed() {
		c.retained = append(c.retained, e.res)
	}
	return err
}

func (c *Cache[K, T, V]) discard(v T) {
	r := refcount.New(v, c.resOpts...)
	if !r.CanForceClose() {
		return
	}
	if err := r.ForceClose(); err != nil {
		c.logger.Error(context.Background(), "destroy abandoned resource",
			observe.Field{Key: "error", Value: err},
		)
	}
}

// Len returns the number of entries in the map.
func (c *Cache[K, T, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether key has a live entry.
func (c *Cache[K, T, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && !e.res.Destroyed()
}

// Name returns the cache name.
func (c *Cache[K, T, V]) Name() string {
	return c.meta.Name
}
