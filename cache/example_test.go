package cache_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/refcache/cache"
	"github.com/jonwraymond/refcache/reaper"
	"github.com/jonwraymond/refcache/refcount"
)

type segment struct {
	name string
}

func (s *segment) Close() error {
	fmt.Println("closed", s.name)
	return nil
}

func Example() {
	r := reaper.New()
	defer r.Close()

	segments, _ := cache.New(func(_ context.Context, name string) (*segment, error) {
		fmt.Println("opened", name)
		return &segment{name: name}, nil
	}, cache.Passthrough[*segment](), cache.WithReaper(r))

	ctx := context.Background()
	a, _ := segments.Get(ctx, "seg-0001")
	b, _ := segments.Get(ctx, "seg-0001")
	fmt.Println("shared:", a.Value() == b.Value(), "refs:", a.Resource().RefCount())

	_ = a.Release()
	_ = b.Release()
	_ = r.Flush(ctx)

	fmt.Println("cached:", segments.Contains("seg-0001"))
	// Output:
	// opened seg-0001
	// shared: true refs: 3
	// closed seg-0001
	// cached: false
}

func ExampleCache_Remove() {
	r := reaper.New()
	defer r.Close()

	segments, _ := cache.New(func(_ context.Context, name string) (*segment, error) {
		return &segment{name: name}, nil
	}, cache.Passthrough[*segment](), cache.WithReaper(r))

	ctx := context.Background()
	old, _ := segments.Get(ctx, "seg-0002")
	_ = segments.Remove("seg-0002")

	fresh, _ := segments.Get(ctx, "seg-0002")
	fmt.Println("same instance:", old.Value() == fresh.Value())
	fmt.Println("retained:", segments.RetainedLen())

	_ = old.Release()
	fmt.Println("retained:", segments.RetainedLen())
	_ = fresh.Release()
	_ = r.Flush(ctx)
	// Output:
	// same instance: false
	// retained: 1
	// closed seg-0002
	// retained: 0
	// closed seg-0002
}

func ExampleNew_transform() {
	type reader struct {
		name    string
		release func() error
	}

	readers, _ := cache.New(func(_ context.Context, name string) (*segment, error) {
		return &segment{name: name}, nil
	}, func(h *refcount.Handle[*segment]) (reader, error) {
		return reader{name: h.Value().name, release: h.Release}, nil
	})

	ctx := context.Background()
	rd, err := readers.Get(ctx, "seg-0003")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("reading", rd.name)
	_ = rd.release()
	_ = reaper.Default().Flush(ctx)
	// Output:
	// reading seg-0003
	// closed seg-0003
}
