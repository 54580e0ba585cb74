package cache

import (
	"context"
	"slices"

	"github.com/jonwraymond/refcache/observe"
	"github.com/jonwraymond/refcache/refcount"
)

// onReferenceChange runs in the goroutine that changed the count. When an
// external holder leaves the keep-alive reference as the only one, the
// entry is reclaimed on the reaper instead of inline.
func (c *Cache[K, T, V]) onReferenceChange(e refcount.Event) {
	if e.Kind != refcount.EventReleased || e.Owner == c.owner || e.Count != 1 {
		return
	}
	c.reaper.Run(c.reclaim)
}

// reclaim drops every entry held only by the cache. It rescans the whole
// map, so one job also covers releases whose jobs have not run yet.
func (c *Cache[K, T, V]) reclaim() {
	ctx := context.Background()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	n := 0
	for key, e := range c.entries {
		if e.res.RefCount() > 1 {
			continue
		}
		// dropLocked logs release failures; the scan goes on regardless.
		_ = c.dropLocked(ctx, key, e)
		n++
	}
	c.pruneRetainedLocked()

	if n > 0 {
		c.metrics.RecordReclaim(ctx, c.meta, n)
		c.logger.Debug(ctx, "reclaimed entries", observe.Field{Key: "count", Value: n})
	}
}

func (c *Cache[K, T, V]) pruneRetainedLocked() {
	c.retained = slices.DeleteFunc(c.retained, func(r *refcount.Resource[T]) bool {
		return r.Destroyed()
	})
}
