package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/refcache/observe"
	"github.com/jonwraymond/refcache/refcount"
)

// Shutdown closes the cache. It releases the keep-alive reference of every
// entry and clears the map. With leak tracing enabled it then waits up to
// the drain timeout, or until ctx is done, for resources still referenced
// elsewhere; each one left is reported as a leak and force-closed.
//
// Leaks are reported through the logger and metrics, not as errors.
// Shutdown is idempotent.
func (c *Cache[K, T, V]) Shutdown(ctx context.Context) (err error) {
	ctx, span := c.tracer.StartSpan(ctx, "shutdown", c.meta)
	defer func() { c.tracer.EndSpan(span, err) }()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	for key, e := range c.entries {
		c.shutdownEntryLocked(ctx, key, e)
	}
	c.pruneRetainedLocked()
	retained := len(c.retained)
	c.mu.Unlock()

	if retained == 0 || !c.leakTracing {
		return nil
	}

	c.drain(ctx, retained)
	return nil
}

// Close is Shutdown without a deadline beyond the drain timeout.
func (c *Cache[K, T, V]) Close() error {
	return c.Shutdown(context.Background())
}

func (c *Cache[K, T, V]) shutdownEntryLocked(ctx context.Context, key K, e *entry[T]) {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error(ctx, "release panicked during shutdown",
				observe.Field{Key: "key", Value: fmt.Sprint(key)},
				observe.Field{Key: "panic", Value: fmt.Sprint(p)},
			)
			// The entry must still leave the map.
			delete(c.entries, key)
		}
	}()
	_ = c.dropLocked(ctx, key, e)
}

// drain polls the retained set until it is empty, the drain timeout passes
// or ctx is done. The lock is only held to check.
func (c *Cache[K, T, V]) drain(ctx context.Context, retained int) {
	start := time.Now()
	timer := time.NewTimer(c.drainTimeout)
	defer timer.Stop()
	ticker := time.NewTicker(c.drainInterval)
	defer ticker.Stop()

	for {
		c.mu.Lock()
		c.pruneRetainedLocked()
		remaining := len(c.retained)
		c.mu.Unlock()

		if remaining == 0 {
			elapsed := time.Since(start)
			fields := []observe.Field{
				{Key: "retained", Value: retained},
				{Key: "elapsed_ms", Value: float64(elapsed.Microseconds()) / 1000.0},
			}
			if elapsed <= 10*c.drainInterval {
				c.logger.Debug(ctx, "retained resources drained", fields...)
			} else {
				c.logger.Info(ctx, "retained resources drained", fields...)
			}
			return
		}

		select {
		case <-ticker.C:
		case <-timer.C:
			c.reportLeaks(ctx, time.Since(start))
			return
		case <-ctx.Done():
			c.reportLeaks(ctx, time.Since(start))
			return
		}
	}
}

func (c *Cache[K, T, V]) reportLeaks(ctx context.Context, waited time.Duration) {
	c.mu.Lock()
	c.pruneRetainedLocked()
	leaked := make([]*refcount.Resource[T], len(c.retained))
	copy(leaked, c.retained)
	c.mu.Unlock()

	for _, r := range leaked {
		forced := r.CanForceClose()
		c.logger.Warn(ctx, "resource leaked",
			observe.Field{Key: "leak", Value: r.String()},
			observe.Field{Key: "waited_ms", Value: waited.Milliseconds()},
		)
		c.metrics.RecordLeak(ctx, c.meta, forced)

		if !forced {
			c.logger.Warn(ctx, "leaked resource cannot be force-closed",
				observe.Field{Key: "leak", Value: r.String()},
			)
			continue
		}
		if err := r.ForceClose(); err != nil {
			c.logger.Error(ctx, "force-close leaked resource",
				observe.Field{Key: "leak", Value: r.String()},
				observe.Field{Key: "error", Value: err},
			)
		}
	}

	c.mu.Lock()
	c.pruneRetainedLocked()
	c.mu.Unlock()
}
