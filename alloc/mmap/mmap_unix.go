//go:build linux || darwin

package mmap

import (
	"math"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/wippyai/rcstring/alloc"
	"github.com/wippyai/rcstring/errors"
)

// New maps size bytes of private anonymous memory, rounded up to the page
// size, and returns an allocator over it.
func New(size int) (*Region, error) {
	if size < 0 {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "size", "negative mapping size")
	}
	if size == 0 {
		size = DefaultSize
	}
	page := unix.Getpagesize()
	if size > math.MaxInt-page {
		return nil, errors.Overflow(errors.PhaseAlloc, size, "mapping size")
	}
	size = (size + page - 1) &^ (page - 1)

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseAlloc, uint64(size), err)
	}

	alloc.Logger().Debug("mapped region", zap.Int("bytes", size))

	return &Region{
		data:  data,
		arena: alloc.NewArena(data),
	}, nil
}

func unmap(data []byte) error {
	return unix.Munmap(data)
}
