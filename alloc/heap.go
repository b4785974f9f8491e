package alloc

import (
	"math"
	"sync/atomic"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/errors"
)

// Heap allocates blocks with make. Free drops the reference and leaves
// reclamation to the Go collector.
type Heap struct {
	next  atomic.Uint64
	limit uint64
}

// NewHeap creates a heap allocator bounded by math.MaxInt bytes per block.
func NewHeap() *Heap {
	return NewHeapLimit(math.MaxInt)
}

// NewHeapLimit creates a heap allocator that refuses blocks larger than limit.
func NewHeapLimit(limit uint64) *Heap {
	if limit > math.MaxInt {
		limit = math.MaxInt
	}
	return &Heap{limit: limit}
}

// Alloc returns a fresh zeroed block.
func (h *Heap) Alloc(size uint64) (rcstring.Block, error) {
	if size > h.limit {
		return rcstring.Block{}, errors.Overflow(errors.PhaseAlloc, size, "heap block limit")
	}
	return rcstring.Block{
		Data: make([]byte, size),
		Ref:  h.next.Add(1),
	}, nil
}

// Free is a no-op; the collector reclaims the block once unreferenced.
func (h *Heap) Free(rcstring.Block) {}

// MaxSize returns the per-block limit.
func (h *Heap) MaxSize() uint64 {
	return h.limit
}
