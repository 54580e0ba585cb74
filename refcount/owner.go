package refcount

import (
	"strconv"
	"sync/atomic"
)

var ownerSeq atomic.Uint64

// Owner identifies a holder of references. Owners are compared by pointer;
// the name and sequence number are only used in diagnostics.
type Owner struct {
	name string
	seq  uint64
}

// NewOwner creates a new owner identity.
func NewOwner(name string) *Owner {
	return &Owner{name: name, seq: ownerSeq.Add(1)}
}

// Name returns the name the owner was created with.
func (o *Owner) Name() string {
	if o == nil {
		return ""
	}
	return o.name
}

// String returns name#seq.
func (o *Owner) String() string {
	if o == nil {
		return "<nil>"
	}
	return o.name + "#" + strconv.FormatUint(o.seq, 10)
}
