package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jonwraymond/refcache/cache"
	"github.com/jonwraymond/refcache/observe"
	"github.com/jonwraymond/refcache/reaper"
	"github.com/jonwraymond/refcache/refcount"
)

// fileView is what callers of the file cache get: a shared open file plus
// its size at the time of the Get.
type fileView struct {
	h    *refcount.Handle[*os.File]
	size int64
}

// ReadAt reads from the shared file. *os.File.ReadAt is safe for concurrent
// use, so views of the same file never interfere.
func (v *fileView) ReadAt(p []byte, off int64) (int, error) {
	return v.h.Value().ReadAt(p, off)
}

func (v *fileView) Size() int64 { return v.size }

// Close releases the view's reference.
func (v *fileView) Close() error { return v.h.Release() }

type fileCache = cache.Cache[string, *os.File, *fileView]

// newReaper builds the reclamation worker for the file cache so that
// panicking jobs reach the observer's logger and job metrics.
func newReaper(obs observe.Observer) (*reaper.Reaper, error) {
	m, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return reaper.New(reaper.WithLogger(obs.Logger()), reaper.WithMetrics(m)), nil
}

func newFileCache(cfg config, obs observe.Observer, rp *reaper.Reaper) (*fileCache, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}

	open := func(_ context.Context, name string) (*os.File, error) {
		return os.Open(filepath.Join(root, name))
	}
	view := func(h *refcount.Handle[*os.File]) (*fileView, error) {
		info, err := h.Value().Stat()
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%s is not a regular file", info.Name())
		}
		return &fileView{h: h, size: info.Size()}, nil
	}

	return cache.New(open, view,
		cache.WithName("files"),
		cache.WithObserver(obs),
		cache.WithReaper(rp),
		cache.WithLeakTracing(cfg.LeakTracing),
		cache.WithDrainTimeout(cfg.DrainTimeout),
		cache.WithCreateTimeout(cfg.OpenTimeout),
		cache.WithDestroy(func(f *os.File) error { return f.Close() }),
	)
}

// listFiles returns the names of the regular files directly under root.
func listFiles(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// readHead reads up to len(buf) bytes from the start of name through files.
func readHead(ctx context.Context, files *fileCache, name string, buf []byte) (int, error) {
	v, err := files.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	n, err := v.ReadAt(buf, 0)
	if cerr := v.Close(); cerr != nil {
		return n, cerr
	}
	if err == io.EOF {
		err = nil
	}
	return n, err
}
