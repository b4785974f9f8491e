//go:build !linux && !darwin

package mmap

import (
	"runtime"

	"github.com/wippyai/rcstring/errors"
)

// New is not supported on this platform.
func New(size int) (*Region, error) {
	return nil, errors.InvalidInput(errors.PhaseAlloc, "platform", "anonymous mmap not supported on "+runtime.GOOS)
}

func unmap([]byte) error { return nil }
