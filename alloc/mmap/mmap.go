package mmap

import (
	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/alloc"
	"github.com/wippyai/rcstring/errors"
)

// DefaultSize is the mapping size used when New is given 0.
const DefaultSize = 1 << 20

// Region is an allocator whose blocks live in an anonymous mapping.
type Region struct {
	data  []byte
	arena *alloc.Arena
}

// Alloc returns a zeroed block inside the mapping.
func (r *Region) Alloc(size uint64) (rcstring.Block, error) {
	return r.arena.Alloc(size)
}

// Free returns a block to the mapping.
func (r *Region) Free(b rcstring.Block) {
	r.arena.Free(b)
}

// MaxSize returns the mapping size.
func (r *Region) MaxSize() uint64 {
	return r.arena.MaxSize()
}

// Arena exposes the underlying arena for statistics.
func (r *Region) Arena() *alloc.Arena {
	return r.arena
}

// Close unmaps the region. Blocks still live become invalid.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	if err := r.arena.Close(); err != nil {
		return err
	}
	data := r.data
	r.data = nil
	if err := unmap(data); err != nil {
		return errors.Wrap(errors.PhaseRelease, errors.KindAllocation, err, "munmap failed")
	}
	return nil
}
