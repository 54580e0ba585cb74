package observe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoggerContract_NopWithCache(t *testing.T) {
	logger := NopLogger()
	if logger.WithCache(CacheMeta{Name: "noop"}) == nil {
		t.Fatal("WithCache should return non-nil logger")
	}
	logger.Warn(context.Background(), "discarded", Field{Key: "k", Value: 1})
}

func TestMetricsContract_NoPanic(t *testing.T) {
	ctx := context.Background()
	meta := CacheMeta{Name: "noop"}

	m := NopMetrics()
	m.RecordCreate(ctx, meta, 10*time.Millisecond, errors.New("boom"))
	m.RecordHit(ctx, meta)
	m.RecordRemove(ctx, meta)
	m.RecordReclaim(ctx, meta, 2)
	m.RecordLeak(ctx, meta, true)
	m.RecordEntries(ctx, meta, -1)
	m.RecordJob(ctx, false)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := NopTracer()
	_, span := tracer.StartSpan(context.Background(), "get", CacheMeta{Name: "noop"})
	tracer.EndSpan(span, errors.New("boom"))
}

func TestMiddlewareFromObserver_Nil(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Fatalf("MiddlewareFromObserver(nil) error = %v, want ErrNilObserver", err)
	}
}
