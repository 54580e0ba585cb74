package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/sync/errgroup"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	found := findMetric(rm, name)
	if found == nil {
		t.Fatalf("%s metric not found", name)
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, found.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_CreateCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	meta := CacheMeta{Name: "files"}

	m.RecordCreate(context.Background(), meta, 10*time.Millisecond, nil)
	m.RecordCreate(context.Background(), meta, 10*time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)
	if got := sumValue(t, rm, "refcache.create.total"); got != 2 {
		t.Errorf("refcache.create.total = %d, want 2", got)
	}
	if got := sumValue(t, rm, "refcache.create.errors"); got != 1 {
		t.Errorf("refcache.create.errors = %d, want 1", got)
	}
}

func TestMetrics_CreateErrorsAbsentOnSuccess(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordCreate(context.Background(), CacheMeta{Name: "files"}, time.Millisecond, nil)

	if found := findMetric(collect(t, reader), "refcache.create.errors"); found != nil {
		if sum, ok := found.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 0 {
			t.Errorf("refcache.create.errors = %d, want 0", sum.DataPoints[0].Value)
		}
	}
}

func TestMetrics_CreateDurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordCreate(context.Background(), CacheMeta{Name: "files"}, 50*time.Millisecond, nil)

	found := findMetric(collect(t, reader), "refcache.create.duration_ms")
	if found == nil {
		t.Fatal("refcache.create.duration_ms metric not found")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", found.Data)
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if dp := hist.DataPoints[0]; dp.Sum != 50 {
		t.Errorf("duration sum = %f, want 50", dp.Sum)
	}
}

func TestMetrics_CacheCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	meta := CacheMeta{Name: "files"}

	m.RecordHit(ctx, meta)
	m.RecordHit(ctx, meta)
	m.RecordRemove(ctx, meta)
	m.RecordReclaim(ctx, meta, 3)
	m.RecordReclaim(ctx, meta, 0)
	m.RecordLeak(ctx, meta, true)
	m.RecordEntries(ctx, meta, 4)
	m.RecordEntries(ctx, meta, -3)
	m.RecordJob(ctx, false)
	m.RecordJob(ctx, true)

	rm := collect(t, reader)
	tests := map[string]int64{
		"refcache.hits":        2,
		"refcache.removals":    1,
		"refcache.reclaimed":   3,
		"refcache.leaks":       1,
		"refcache.entries":     1,
		"refcache.reaper.jobs": 2,
	}
	for name, want := range tests {
		if got := sumValue(t, rm, name); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestMetrics_LabelsApplied(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordLeak(context.Background(), CacheMeta{Name: "files", Kind: "*os.File"}, true)

	found := findMetric(collect(t, reader), "refcache.leaks")
	if found == nil {
		t.Fatal("refcache.leaks metric not found")
	}
	sum := found.Data.(metricdata.Sum[int64])
	attrs := sum.DataPoints[0].Attributes

	want := map[attribute.Key]attribute.Value{
		"cache.name":  attribute.StringValue("files"),
		"cache.kind":  attribute.StringValue("*os.File"),
		"leak.forced": attribute.BoolValue(true),
	}
	for k, v := range want {
		got, ok := attrs.Value(k)
		if !ok {
			t.Errorf("attribute %s not found", k)
			continue
		}
		if got.Emit() != v.Emit() {
			t.Errorf("attribute %s = %v, want %v", k, got.Emit(), v.Emit())
		}
	}
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	m, reader := newTestMetrics(t)
	meta := CacheMeta{Name: "concurrent"}
	const numGoroutines = 100

	var g errgroup.Group
	for i := 0; i < numGoroutines; i++ {
		g.Go(func() error {
			m.RecordHit(context.Background(), meta)
			return nil
		})
	}
	_ = g.Wait()

	if got := sumValue(t, collect(t, reader), "refcache.hits"); got != numGoroutines {
		t.Errorf("refcache.hits = %d, want %d", got, numGoroutines)
	}
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}
