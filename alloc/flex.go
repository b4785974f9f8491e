package alloc

import (
	"math/bits"

	"go.uber.org/zap"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/errors"
)

// FlexSize computes base + elem*count and reports whether the result fits
// in limit. It never wraps.
func FlexSize(base, elem, count, limit uint64) (uint64, bool) {
	hi, prod := bits.Mul64(elem, count)
	if hi != 0 {
		return 0, false
	}
	sum, carry := bits.Add64(base, prod, 0)
	if carry != 0 || sum > limit {
		return 0, false
	}
	return sum, true
}

// Flex allocates one zeroed block of base + elem*count bytes from a.
// The header occupies [0, base) and the trailing region follows it.
// Overflow is detected before a is consulted.
func Flex(a rcstring.Allocator, base, elem, count uint64) (rcstring.Block, error) {
	if a == nil {
		return rcstring.Block{}, errors.NilArgument(errors.PhaseAlloc, "allocator")
	}

	size, ok := FlexSize(base, elem, count, a.MaxSize())
	if !ok {
		err := errors.SizeOverflow(errors.PhaseAlloc, base, elem, count, a.MaxSize())
		Logger().Warn("flex size overflow",
			zap.Uint64("base", base),
			zap.Uint64("elem", elem),
			zap.Uint64("count", count),
			zap.Uint64("limit", a.MaxSize()))
		return rcstring.Block{}, err
	}

	blk, err := a.Alloc(size)
	if err != nil {
		Logger().Warn("flex allocation failed",
			zap.Uint64("size", size),
			zap.Error(err))
		return rcstring.Block{}, errors.AllocationFailed(errors.PhaseAlloc, size, err)
	}
	if uint64(len(blk.Data)) != size || blk.Data == nil {
		a.Free(blk)
		Logger().Error("allocator returned wrong block size",
			zap.Uint64("want", size),
			zap.Int("got", len(blk.Data)))
		return rcstring.Block{}, errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Value(size).
			Detail("allocator returned %d bytes, want %d", len(blk.Data), size).
			Build()
	}
	return blk, nil
}
