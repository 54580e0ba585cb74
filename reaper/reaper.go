package reaper

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/refcache/observe"
)

// Reaper is a single-worker FIFO job queue.
//
// Contract:
// - Concurrency: Run, Flush, Pending and Close are safe for concurrent use.
// - Ordering: jobs run sequentially in the order they were submitted. Jobs
//   submitted after Close still never overlap, but their order is not kept.
// - Errors: a panicking job is recovered and logged; the worker keeps running.
type Reaper struct {
	mu      sync.Mutex
	queue   []func()
	running bool
	closed  bool

	wake chan struct{}
	done chan struct{}

	// late serializes jobs submitted after Close.
	late sync.Mutex

	logger  observe.Logger
	metrics observe.Metrics
}

// Option configures a Reaper.
type Option func(*Reaper)

// WithLogger sets the logger used to report panicking jobs.
func WithLogger(l observe.Logger) Option {
	return func(r *Reaper) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder for executed jobs.
func WithMetrics(m observe.Metrics) Option {
	return func(r *Reaper) {
		if m != nil {
			r.metrics = m
		}
	}
}

// New creates a Reaper and starts its worker goroutine. Call Close to stop it.
func New(opts ...Option) *Reaper {
	r := &Reaper{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.loop()
	return r
}

var (
	defaultReaper *Reaper
	defaultOnce   sync.Once
)

// Default returns the process-wide Reaper, starting it on first use.
// It is never closed.
func Default() *Reaper {
	defaultOnce.Do(func() {
		defaultReaper = New()
	})
	return defaultReaper
}

// Run queues job for execution on the worker. It never blocks.
// After Close, job runs on its own goroutine, still one job at a time.
func (r *Reaper) Run(job func()) {
	if job == nil {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		go func() {
			r.late.Lock()
			defer r.late.Unlock()
			r.execute(job)
		}()
		return
	}
	r.queue = append(r.queue, job)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued jobs, including one in progress.
func (r *Reaper) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.queue)
	if r.running {
		n++
	}
	return n
}

// Flush blocks until every job submitted before the call has run, or ctx is done.
func (r *Reaper) Flush(ctx context.Context) error {
	marker := make(chan struct{})

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.queue = append(r.queue, func() { close(marker) })
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}

	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close runs the jobs already queued and stops the worker.
// Close is safe to call multiple times.
func (r *Reaper) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
	r.mu.Unlock()

	<-r.done
	return nil
}

func (r *Reaper) loop() {
	defer close(r.done)

	for {
		r.mu.Lock()
		for len(r.queue) == 0 {
			if r.closed {
				r.mu.Unlock()
				return
			}
			r.mu.Unlock()
			<-r.wake
			r.mu.Lock()
		}
		job := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		r.running = true
		r.mu.Unlock()

		r.execute(job)

		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}
}

func (r *Reaper) execute(job func()) {
	ctx := context.Background()
	defer func() {
		p := recover()
		if p != nil {
			r.logger.Error(ctx, "reaper job panicked",
				observe.Field{Key: "panic", Value: fmt.Sprint(p)},
			)
		}
		r.metrics.RecordJob(ctx, p != nil)
	}()

	job()
}
