package alloc

import (
	"sync/atomic"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/errors"
)

// ErrInjected is returned by Counting once its failure budget is spent.
var ErrInjected = errors.New(errors.PhaseAlloc, errors.KindAllocation).
	Detail("injected allocation failure").
	Build()

// Stats is a snapshot of a Counting allocator.
type Stats struct {
	Allocs     uint64
	Frees      uint64
	Failures   uint64
	LiveBlocks int64
	LiveBytes  int64
}

// Counting wraps an allocator and records every call. It can be told to
// fail after a number of successful allocations.
type Counting struct {
	next       rcstring.Allocator
	allocs     atomic.Uint64
	frees      atomic.Uint64
	failures   atomic.Uint64
	liveBlocks atomic.Int64
	liveBytes  atomic.Int64
	budget     atomic.Int64
}

// NewCounting wraps next. Failure injection starts disabled.
func NewCounting(next rcstring.Allocator) *Counting {
	c := &Counting{next: next}
	c.budget.Store(-1)
	return c
}

// FailAfter makes allocations fail once n more have succeeded.
// A negative n disables injection.
func (c *Counting) FailAfter(n int64) {
	c.budget.Store(n)
}

func (c *Counting) take() bool {
	for {
		b := c.budget.Load()
		if b < 0 {
			return true
		}
		if b == 0 {
			return false
		}
		if c.budget.CompareAndSwap(b, b-1) {
			return true
		}
	}
}

// Alloc forwards to the wrapped allocator.
func (c *Counting) Alloc(size uint64) (rcstring.Block, error) {
	if !c.take() {
		c.failures.Add(1)
		return rcstring.Block{}, ErrInjected
	}
	b, err := c.next.Alloc(size)
	if err != nil {
		c.failures.Add(1)
		return rcstring.Block{}, err
	}
	c.allocs.Add(1)
	c.liveBlocks.Add(1)
	c.liveBytes.Add(int64(len(b.Data)))
	return b, nil
}

// Free forwards to the wrapped allocator.
func (c *Counting) Free(b rcstring.Block) {
	if b.Data == nil {
		return
	}
	c.frees.Add(1)
	c.liveBlocks.Add(-1)
	c.liveBytes.Add(-int64(len(b.Data)))
	c.next.Free(b)
}

// MaxSize returns the wrapped allocator's limit.
func (c *Counting) MaxSize() uint64 {
	return c.next.MaxSize()
}

// Stats returns the current counters.
func (c *Counting) Stats() Stats {
	return Stats{
		Allocs:     c.allocs.Load(),
		Frees:      c.frees.Load(),
		Failures:   c.failures.Load(),
		LiveBlocks: c.liveBlocks.Load(),
		LiveBytes:  c.liveBytes.Load(),
	}
}
