package observe

import (
	"context"
	"fmt"
	"time"
)

// Middleware instruments resource creators with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: wrapped creators are safe for concurrent use if the
//     underlying creator is.
//   - Errors: creator errors are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components fall back to no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Tracer returns the middleware's tracer.
func (m *Middleware) Tracer() Tracer { return m.tracer }

// Metrics returns the middleware's metrics.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// InstrumentCreate wraps fn so that each call runs in a "refcache.create"
// span, is counted and timed, and is logged at debug level (error level on
// failure).
func InstrumentCreate[K any, T any](m *Middleware, meta CacheMeta, fn func(ctx context.Context, key K) (T, error)) func(ctx context.Context, key K) (T, error) {
	logger := m.logger.WithCache(meta)

	return func(ctx context.Context, key K) (T, error) {
		ctx, span := m.tracer.StartSpan(ctx, "create", meta)

		start := time.Now()
		v, err := fn(ctx, key)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordCreate(ctx, meta, duration, err)

		fields := []Field{
			{Key: "key", Value: fmt.Sprint(key)},
			{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000.0},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "resource creation failed", fields...)
		} else {
			logger.Debug(ctx, "resource created", fields...)
		}

		return v, err
	}
}
