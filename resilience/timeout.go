package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

type result[T any] struct {
	value T
	err   error
}

// CallWithTimeout runs op with a deadline of d and returns its result.
//
// If the deadline passes first, CallWithTimeout returns ErrTimeout without
// waiting for op. When the abandoned op later returns a value without error,
// that value is handed to discard so it can be released instead of leaking.
// A non-positive d runs op directly.
func CallWithTimeout[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error), discard func(T)) (T, error) {
	if d <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)

	var (
		mu        sync.Mutex
		abandoned bool
	)
	done := make(chan result[T], 1)

	go func() {
		defer cancel()
		v, err := op(ctx)

		mu.Lock()
		if abandoned {
			mu.Unlock()
			if err == nil && discard != nil {
				discard(v)
			}
			return
		}
		done <- result[T]{value: v, err: err}
		mu.Unlock()
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
	}

	mu.Lock()
	select {
	case r := <-done:
		// op finished in the same instant.
		mu.Unlock()
		return r.value, r.err
	default:
	}
	abandoned = true
	mu.Unlock()

	var zero T
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return zero, ErrTimeout
	}
	return zero, ctx.Err()
}
