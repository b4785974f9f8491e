package handle

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/alloc"
)

// HeaderSize is the size of the block header preceding the tail.
const HeaderSize = 16

// Header flags.
const (
	FlagTail uint32 = 1 << iota // block has a non-empty trailing region
)

var headerMagic = [4]byte{'R', 'C', 'H', 1}

// Disposer runs once, when the last reference to a handle is released,
// before the handle's block is freed.
type Disposer[T any] func(v *T)

// Handle is a reference-counted owner of a T and one allocator block.
// The zero value is not usable; create handles with New.
type Handle[T any] struct {
	value   T
	alloc   rcstring.Allocator
	dispose Disposer[T]
	block   rcstring.Block
	refs    atomic.Int64
}

// New allocates a handle whose block holds HeaderSize bytes followed by a
// zeroed tail of elemSize*count bytes. The returned handle has one
// reference, owned by the caller. On failure New returns nil and the
// error from alloc.Flex; dispose is never called for a failed creation.
func New[T any](a rcstring.Allocator, dispose Disposer[T], elemSize, count uint64) (*Handle[T], error) {
	blk, err := alloc.Flex(a, HeaderSize, elemSize, count)
	if err != nil {
		Logger().Warn("handle create failed",
			zap.Uint64("elem_size", elemSize),
			zap.Uint64("count", count),
			zap.Error(err))
		return nil, err
	}

	tailLen := uint64(len(blk.Data)) - HeaderSize
	var flags uint32
	if tailLen > 0 {
		flags |= FlagTail
	}
	copy(blk.Data[0:4], headerMagic[:])
	binary.LittleEndian.PutUint32(blk.Data[4:8], flags)
	binary.LittleEndian.PutUint64(blk.Data[8:16], tailLen)

	h := &Handle[T]{
		alloc:   a,
		dispose: dispose,
		block:   blk,
	}
	h.refs.Store(1)
	return h, nil
}

// Value returns the payload. The pointer is valid while the caller holds a
// reference.
func (h *Handle[T]) Value() *T {
	return &h.value
}

// Tail returns the trailing region of the handle's block.
func (h *Handle[T]) Tail() []byte {
	return h.block.Data[HeaderSize:]
}

// Block returns the handle's allocator block, header included.
func (h *Handle[T]) Block() rcstring.Block {
	return h.block
}

// Refs returns the current reference count. The value is stale as soon as
// it is read when other goroutines hold references.
func (h *Handle[T]) Refs() int64 {
	return h.refs.Load()
}

// Retain adds a reference and returns h. It panics if h has already been
// released to zero: a dead handle is never resurrected.
func (h *Handle[T]) Retain() *Handle[T] {
	for {
		n := h.refs.Load()
		if n <= 0 {
			panic(fmt.Sprintf("handle: retain of released handle (refs=%d)", n))
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return h
		}
	}
}

// Release drops a reference. The call that drops the last reference runs
// the dispose function and then frees the block.
func (h *Handle[T]) Release() {
	n := h.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic(fmt.Sprintf("handle: release of released handle (refs=%d)", n))
	}
	h.destroy()
}

func (h *Handle[T]) destroy() {
	if h.dispose != nil {
		h.dispose(&h.value)
	}

	a, blk := h.alloc, h.block
	var zero T
	h.value = zero
	h.dispose = nil
	h.alloc = nil
	h.block = rcstring.Block{}

	a.Free(blk)
}

// ParseHeader decodes a block header written by New. It reports false if
// data is too short or the magic does not match.
func ParseHeader(data []byte) (flags uint32, tailLen uint64, ok bool) {
	if len(data) < HeaderSize || [4]byte(data[0:4]) != headerMagic {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint32(data[4:8]), binary.LittleEndian.Uint64(data[8:16]), true
}
