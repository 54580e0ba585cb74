// Package observe provides the diagnostic sink and telemetry used by caches.
//
// It is a pure instrumentation library: structured logging, OpenTelemetry
// metrics and tracing, and exporter setup. Library components default to the
// no-op implementations (NopLogger, NopMetrics, NopTracer) so that wiring an
// Observer is always optional.
package observe
