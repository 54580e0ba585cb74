package cache

import (
	"time"

	"github.com/jonwraymond/refcache/observe"
	"github.com/jonwraymond/refcache/reaper"
)

const (
	// DefaultDrainTimeout bounds how long Shutdown waits for retained
	// resources when leak tracing is enabled.
	DefaultDrainTimeout = 2500 * time.Millisecond

	// DefaultDrainInterval is the poll interval of the shutdown drain.
	DefaultDrainInterval = time.Millisecond

	// DefaultName is used when WithName is not given.
	DefaultName = "refcache"
)

// Option configures a Cache.
type Option func(*options)

type options struct {
	name          string
	logger        observe.Logger
	metrics       observe.Metrics
	tracer        observe.Tracer
	observer      observe.Observer
	reaper        *reaper.Reaper
	leakTracing   bool
	drainTimeout  time.Duration
	drainInterval time.Duration
	createTimeout time.Duration
	destroy       any
}

func defaultOptions() options {
	return options{
		name:          DefaultName,
		drainTimeout:  DefaultDrainTimeout,
		drainInterval: DefaultDrainInterval,
	}
}

// WithName names the cache in logs, metrics, spans and owner identities.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the diagnostic sink. The default discards everything.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t observe.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithObserver takes the logger, metrics and tracer from obs for any of them
// not set explicitly.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithReaper sets the reaper that runs reclamation jobs.
// The default is reaper.Default().
func WithReaper(r *reaper.Reaper) Option {
	return func(o *options) {
		o.reaper = r
	}
}

// WithLeakTracing makes Shutdown wait for retained resources and report
// the ones still referenced when the drain times out.
func WithLeakTracing(enabled bool) Option {
	return func(o *options) {
		o.leakTracing = enabled
	}
}

// WithDrainTimeout sets how long Shutdown waits for retained resources.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.drainTimeout = d
		}
	}
}

// WithDrainInterval sets the shutdown drain poll interval.
func WithDrainInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.drainInterval = d
		}
	}
}

// WithCreateTimeout bounds each creator call. A creator that overruns is
// abandoned, Get fails with resilience.ErrTimeout wrapped in a CreateError,
// and a value it returns later is destroyed. Until the abandoned creator
// returns, Get for the same key fails with ErrCreateInFlight instead of
// starting a second one. Zero disables the bound.
func WithCreateTimeout(d time.Duration) Option {
	return func(o *options) {
		o.createTimeout = d
	}
}

// WithDestroy sets the destruction action for created resources, replacing
// io.Closer. fn's type parameter must match the cache's resource type.
func WithDestroy[T any](fn func(T) error) Option {
	return func(o *options) {
		o.destroy = fn
	}
}
