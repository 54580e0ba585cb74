// Command refcache-demo shares open files between concurrent readers
// through a reference-counted cache, and serves its metrics and health.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/refcache/health"
	"github.com/jonwraymond/refcache/observe"
	"github.com/jonwraymond/refcache/observe/exporters"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "refcache-demo:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	zl, err := newZap(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	reg := prometheus.NewRegistry()
	reader, err := exporters.NewPrometheusReader(reg)
	if err != nil {
		return err
	}

	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "refcache-demo",
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   cfg.TraceExporter != "none",
			Exporter:  cfg.TraceExporter,
			SamplePct: 1,
		},
		Metrics: observe.MetricsConfig{Enabled: true, Reader: reader},
		Logging: observe.LoggingConfig{Enabled: true, Logger: observe.NewZapLogger(zl)},
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(sctx); err != nil {
			zl.Error("observer shutdown", zap.Error(err))
		}
	}()

	rp, err := newReaper(obs)
	if err != nil {
		return err
	}
	defer func() { _ = rp.Close() }()

	files, err := newFileCache(cfg, obs, rp)
	if err != nil {
		return err
	}
	names, err := listFiles(cfg.Root)
	if err != nil {
		return err
	}

	agg := health.NewAggregator()
	agg.RegisterChecker(files.Checker())

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	health.RegisterHandlers(mux, agg)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	srvErr := make(chan error, 1)
	go func() {
		zl.Info("serving", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var readBytes atomic.Int64
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := range cfg.Workers {
		g.Go(func() error {
			buf := make([]byte, 512)
			for i := 0; i < cfg.Reads && len(names) > 0; i++ {
				if gctx.Err() != nil {
					return nil
				}
				name := names[(w+i)%len(names)]
				n, err := readHead(gctx, files, name, buf)
				if err != nil {
					zl.Warn("read failed", zap.String("file", name), zap.Error(err))
					continue
				}
				readBytes.Add(int64(n))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s := files.Stats()
	zl.Info("readers finished",
		zap.Int("files", len(names)),
		zap.Int("entries", s.Entries),
		zap.Int64("bytes", readBytes.Load()),
		zap.Duration("elapsed", time.Since(start)),
	)

	if cfg.Serve {
		select {
		case <-ctx.Done():
		case err := <-srvErr:
			if err != nil {
				return err
			}
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	if err := files.Shutdown(sctx); err != nil {
		return err
	}
	if err, ok := <-srvErr; ok && err != nil {
		return err
	}
	return nil
}

func newZap(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
