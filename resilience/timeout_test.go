package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCallWithTimeout_Success(t *testing.T) {
	v, err := CallWithTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
		return 42, nil
	}, nil)
	if err != nil {
		t.Fatalf("CallWithTimeout() error = %v", err)
	}
	if v != 42 {
		t.Errorf("CallWithTimeout() = %d, want 42", v)
	}
}

func TestCallWithTimeout_Error(t *testing.T) {
	testErr := errors.New("test error")
	_, err := CallWithTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
		return 0, testErr
	}, nil)
	if !errors.Is(err, testErr) {
		t.Errorf("CallWithTimeout() error = %v, want %v", err, testErr)
	}
}

func TestCallWithTimeout_ZeroRunsDirectly(t *testing.T) {
	_, err := CallWithTimeout(context.Background(), 0, func(ctx context.Context) (int, error) {
		if _, ok := ctx.Deadline(); ok {
			t.Error("unexpected deadline with zero timeout")
		}
		return 1, nil
	}, nil)
	if err != nil {
		t.Fatalf("CallWithTimeout() error = %v", err)
	}
}

func TestCallWithTimeout_TimeoutDiscardsLateValue(t *testing.T) {
	release := make(chan struct{})
	discarded := make(chan int, 1)

	start := time.Now()
	_, err := CallWithTimeout(context.Background(), 10*time.Millisecond, func(context.Context) (int, error) {
		<-release
		return 7, nil
	}, func(v int) {
		discarded <- v
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("CallWithTimeout() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("CallWithTimeout() waited %v for the abandoned op", elapsed)
	}

	close(release)
	select {
	case v := <-discarded:
		if v != 7 {
			t.Errorf("discarded %d, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatal("late value was not discarded")
	}
}

func TestCallWithTimeout_LateErrorNotDiscarded(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	var discards atomic.Int32

	_, err := CallWithTimeout(context.Background(), 10*time.Millisecond, func(context.Context) (int, error) {
		defer close(finished)
		<-release
		return 0, errors.New("late failure")
	}, func(int) {
		discards.Add(1)
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("CallWithTimeout() error = %v, want ErrTimeout", err)
	}

	close(release)
	<-finished
	time.Sleep(10 * time.Millisecond)
	if n := discards.Load(); n != 0 {
		t.Errorf("discard called %d times for a failed op", n)
	}
}

func TestCallWithTimeout_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CallWithTimeout(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("CallWithTimeout() error = %v, want context.Canceled", err)
	}
}

func TestCallWithTimeout_OpSeesDeadline(t *testing.T) {
	_, err := CallWithTimeout(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		if _, ok := ctx.Deadline(); !ok {
			return 0, errors.New("no deadline")
		}
		return 0, nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
}
