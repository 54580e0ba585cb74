package refcount_test

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/refcache/refcount"
)

type segment struct{ name string }

func (s *segment) Close() error {
	fmt.Println("closed", s.name)
	return nil
}

func ExampleResource() {
	r := refcount.New(&segment{name: "seg-1"})
	reader := refcount.NewOwner("reader")
	writer := refcount.NewOwner("writer")

	_ = r.Reserve(reader)
	_ = r.Reserve(writer)
	fmt.Println("refCount:", r.RefCount())

	_ = r.Release(reader)
	fmt.Println("refCount:", r.RefCount())

	_ = r.Release(writer)
	// Output:
	// refCount: 2
	// refCount: 1
	// closed seg-1
}

func ExampleResource_Release_violation() {
	r := refcount.New(&segment{name: "seg-2"})
	_ = r.Reserve(refcount.NewOwner("holder"))

	err := r.Release(refcount.NewOwner("stranger"))
	fmt.Println(errors.Is(err, refcount.ErrOwnershipViolation))
	fmt.Println("refCount:", r.RefCount())
	// Output:
	// true
	// refCount: 1
}

func ExampleAcquire() {
	r := refcount.New(&segment{name: "seg-3"})

	h, err := refcount.Acquire(r, refcount.NewOwner("tail"))
	if err != nil {
		fmt.Println("acquire failed:", err)
		return
	}
	fmt.Println("value:", h.Value().name)

	_ = h.Release()
	err = h.Release()
	fmt.Println("second release is a violation:", errors.Is(err, refcount.ErrOwnershipViolation))
	// Output:
	// value: seg-3
	// closed seg-3
	// second release is a violation: true
}
