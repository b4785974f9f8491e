package alloc

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/errors"
)

// Pool size classes. Requests above Size8M bypass the pools.
const (
	Size32   = 1 << 5  // 32 bytes
	Size512  = 1 << 9  // 512 bytes
	Size4K   = 1 << 12 // 4 KB
	Size16K  = 1 << 14 // 16 KB
	Size64K  = 1 << 16 // 64 KB
	Size256K = 1 << 18 // 256 KB
	Size1M   = 1 << 20 // 1 MB
	Size8M   = 1 << 23 // 8 MB
)

var poolClasses = [...]int{Size32, Size512, Size4K, Size16K, Size64K, Size256K, Size1M, Size8M}

// Pool is a tiered allocator that recycles blocks through one sync.Pool
// per size class. Blocks are zeroed on Alloc since pooled buffers carry
// whatever their previous owner wrote.
type Pool struct {
	pools [len(poolClasses)]sync.Pool
	next  atomic.Uint64
}

// NewPool creates a tiered pool allocator.
func NewPool() *Pool {
	p := &Pool{}
	for i, size := range poolClasses {
		p.pools[i].New = func() any {
			buf := make([]byte, size)
			return &buf
		}
	}
	return p
}

// classFor returns the pool index for size, or -1 when size is oversized.
func classFor(size uint64) int {
	for i, c := range poolClasses {
		if size <= uint64(c) {
			return i
		}
	}
	return -1
}

// Alloc returns a zeroed block, reusing a pooled buffer when one fits.
func (p *Pool) Alloc(size uint64) (rcstring.Block, error) {
	if size > math.MaxInt {
		return rcstring.Block{}, errors.Overflow(errors.PhaseAlloc, size, "pool block limit")
	}

	idx := classFor(size)
	if idx < 0 {
		return rcstring.Block{Data: make([]byte, size), Ref: p.next.Add(1)}, nil
	}

	buf := *(p.pools[idx].Get().(*[]byte))
	data := buf[:size]
	clear(data)
	return rcstring.Block{Data: data, Ref: p.next.Add(1)}, nil
}

// Free returns the block's buffer to the pool matching its capacity.
// Buffers of any other capacity are left to the collector.
func (p *Pool) Free(b rcstring.Block) {
	if b.Data == nil {
		return
	}
	capacity := cap(b.Data)
	for i, c := range poolClasses {
		if capacity == c {
			full := b.Data[:capacity]
			p.pools[i].Put(&full)
			return
		}
	}
}

// MaxSize returns math.MaxInt.
func (p *Pool) MaxSize() uint64 {
	return math.MaxInt
}
