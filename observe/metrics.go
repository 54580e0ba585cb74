package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache and reaper activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; recording never blocks on I/O.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCreate records one creator invocation.
	RecordCreate(ctx context.Context, meta CacheMeta, duration time.Duration, err error)

	// RecordHit records a Get served from an existing entry.
	RecordHit(ctx context.Context, meta CacheMeta)

	// RecordRemove records an explicit removal.
	RecordRemove(ctx context.Context, meta CacheMeta)

	// RecordReclaim records n entries reclaimed by one reclamation job.
	RecordReclaim(ctx context.Context, meta CacheMeta, n int)

	// RecordLeak records a resource still referenced after the shutdown
	// drain; forced reports whether it was force-closed.
	RecordLeak(ctx context.Context, meta CacheMeta, forced bool)

	// RecordEntries adjusts the live entry gauge by delta.
	RecordEntries(ctx context.Context, meta CacheMeta, delta int64)

	// RecordJob records one reaper job.
	RecordJob(ctx context.Context, panicked bool)
}

type metricsImpl struct {
	createCount  metric.Int64Counter
	createErrors metric.Int64Counter
	createHist   metric.Float64Histogram
	hits         metric.Int64Counter
	removals     metric.Int64Counter
	reclaimed    metric.Int64Counter
	leaks        metric.Int64Counter
	entries      metric.Int64UpDownCounter
	jobs         metric.Int64Counter
}

// NewMetrics creates the OpenTelemetry instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	var (
		m   metricsImpl
		err error
	)

	if m.createCount, err = meter.Int64Counter(
		"refcache.create.total",
		metric.WithDescription("Total number of resource creations"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.createErrors, err = meter.Int64Counter(
		"refcache.create.errors",
		metric.WithDescription("Total number of failed resource creations"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.createHist, err = meter.Float64Histogram(
		"refcache.create.duration_ms",
		metric.WithDescription("Resource creation duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.hits, err = meter.Int64Counter(
		"refcache.hits",
		metric.WithDescription("Lookups served by an existing entry"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.removals, err = meter.Int64Counter(
		"refcache.removals",
		metric.WithDescription("Entries removed explicitly"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, err
	}

	if m.reclaimed, err = meter.Int64Counter(
		"refcache.reclaimed",
		metric.WithDescription("Entries reclaimed after their last external holder released"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, err
	}

	if m.leaks, err = meter.Int64Counter(
		"refcache.leaks",
		metric.WithDescription("Resources still referenced when shutdown gave up draining"),
		metric.WithUnit("{resource}"),
	); err != nil {
		return nil, err
	}

	if m.entries, err = meter.Int64UpDownCounter(
		"refcache.entries",
		metric.WithDescription("Live cache entries"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, err
	}

	if m.jobs, err = meter.Int64Counter(
		"refcache.reaper.jobs",
		metric.WithDescription("Background reaper jobs executed"),
		metric.WithUnit("{job}"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *metricsImpl) RecordCreate(ctx context.Context, meta CacheMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.createCount.Add(ctx, 1, opt)
	m.createHist.Record(ctx, float64(duration.Microseconds())/1000.0, opt)
	if err != nil {
		m.createErrors.Add(ctx, 1, opt)
	}
}

func (m *metricsImpl) RecordHit(ctx context.Context, meta CacheMeta) {
	m.hits.Add(ctx, 1, metric.WithAttributes(meta.attributes()...))
}

func (m *metricsImpl) RecordRemove(ctx context.Context, meta CacheMeta) {
	m.removals.Add(ctx, 1, metric.WithAttributes(meta.attributes()...))
}

func (m *metricsImpl) RecordReclaim(ctx context.Context, meta CacheMeta, n int) {
	if n <= 0 {
		return
	}
	m.reclaimed.Add(ctx, int64(n), metric.WithAttributes(meta.attributes()...))
}

func (m *metricsImpl) RecordLeak(ctx context.Context, meta CacheMeta, forced bool) {
	attrs := append(meta.attributes(), attribute.Bool("leak.forced", forced))
	m.leaks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordEntries(ctx context.Context, meta CacheMeta, delta int64) {
	if delta == 0 {
		return
	}
	m.entries.Add(ctx, delta, metric.WithAttributes(meta.attributes()...))
}

func (m *metricsImpl) RecordJob(ctx context.Context, panicked bool) {
	m.jobs.Add(ctx, 1, metric.WithAttributes(attribute.Bool("job.panicked", panicked)))
}

type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) RecordCreate(context.Context, CacheMeta, time.Duration, error) {}
func (noopMetrics) RecordHit(context.Context, CacheMeta)                          {}
func (noopMetrics) RecordRemove(context.Context, CacheMeta)                       {}
func (noopMetrics) RecordReclaim(context.Context, CacheMeta, int)                 {}
func (noopMetrics) RecordLeak(context.Context, CacheMeta, bool)                   {}
func (noopMetrics) RecordEntries(context.Context, CacheMeta, int64)               {}
func (noopMetrics) RecordJob(context.Context, bool)                               {}
