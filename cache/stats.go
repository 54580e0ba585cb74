package cache

import (
	"context"
	"fmt"

	"github.com/jonwraymond/refcache/health"
)

// Stats is a point-in-time snapshot of a cache.
type Stats struct {
	// Entries is the number of keys in the map.
	Entries int
	// Retained is the number of removed resources still referenced elsewhere.
	Retained int
	// Closed reports whether Shutdown has been called.
	Closed bool
}

// Stats returns a snapshot of the cache.
func (c *Cache[K, T, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneRetainedLocked()
	return Stats{
		Entries:  len(c.entries),
		Retained: len(c.retained),
		Closed:   c.closed,
	}
}

// RetainedLen returns the number of removed resources still referenced
// elsewhere.
func (c *Cache[K, T, V]) RetainedLen() int {
	return c.Stats().Retained
}

// Retained describes each removed resource still referenced elsewhere.
func (c *Cache[K, T, V]) Retained() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneRetainedLocked()
	out := make([]string, len(c.retained))
	for i, r := range c.retained {
		out[i] = r.String()
	}
	return out
}

// Checker reports the cache as a health check named after the cache:
// unhealthy once closed, degraded while removed resources are still
// referenced, healthy otherwise.
func (c *Cache[K, T, V]) Checker() health.Checker {
	return health.NewCheckerFunc(c.meta.Name, func(context.Context) health.Result {
		s := c.Stats()
		details := map[string]any{
			"entries":  s.Entries,
			"retained": s.Retained,
		}

		switch {
		case s.Closed:
			return health.Unhealthy("cache is closed", ErrClosed).WithDetails(details)
		case s.Retained > 0:
			details["retained_resources"] = c.Retained()
			return health.Degraded(fmt.Sprintf("%d removed resources still referenced", s.Retained)).WithDetails(details)
		default:
			return health.Healthy(fmt.Sprintf("%d entries", s.Entries)).WithDetails(details)
		}
	})
}
