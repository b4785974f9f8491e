package rcstr

import (
	"math"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/alloc"
	"github.com/wippyai/rcstring/errors"
	"github.com/wippyai/rcstring/handle"
)

// Factory builds strings whose blocks come from one allocator.
// It is safe for concurrent use when its allocator is.
type Factory struct {
	alloc rcstring.Allocator
}

// NewFactory creates a factory over a. A nil allocator selects a heap allocator.
func NewFactory(a rcstring.Allocator) *Factory {
	if a == nil {
		a = alloc.NewHeap()
	}
	return &Factory{alloc: a}
}

var defaultFactory = NewFactory(alloc.NewHeap())

// Default returns the heap-backed factory used by the package-level functions.
func Default() *Factory {
	return defaultFactory
}

// Allocator returns the factory's allocator. Blocks passed to Move must
// come from it.
func (f *Factory) Allocator() rcstring.Allocator {
	return f.alloc
}

func (f *Factory) fail(op string, err error) error {
	Logger().Warn("string construction failed",
		zap.String("op", op),
		zap.Error(err))
	return err
}

// Copy creates a string holding a copy of s, stored inline after the
// handle header with a NUL terminator. A nil s is an error; an empty
// non-nil s yields the empty string.
func (f *Factory) Copy(s []byte) (*Handle, error) {
	if s == nil {
		return nil, f.fail("copy", errors.NilArgument(errors.PhaseCreate, "s"))
	}
	return f.copyContent("copy", cstr(s))
}

// CopyString is Copy for a Go string.
func (f *Factory) CopyString(s string) (*Handle, error) {
	return f.copyContent("copy", cstr([]byte(s)))
}

func (f *Factory) copyContent(op string, content []byte) (*Handle, error) {
	n := uint64(len(content))
	h, err := handle.New[String](f.alloc, dispose, 1, n+1)
	if err != nil {
		return nil, f.fail(op, err)
	}

	tail := h.Tail()
	copy(tail, content)
	*h.Value() = String{
		data:    tail[:n:n],
		storage: StorageCopied,
		term:    true,
	}
	return h, nil
}

// Move creates a string that takes ownership of blk, a block obtained
// from the factory's allocator. The last Release frees blk. If Move fails,
// ownership stays with the caller.
func (f *Factory) Move(blk rcstring.Block) (*Handle, error) {
	if blk.Data == nil {
		return nil, f.fail("move", errors.NilArgument(errors.PhaseCreate, "s"))
	}

	h, err := handle.New[String](f.alloc, dispose, 0, 0)
	if err != nil {
		return nil, f.fail("move", err)
	}

	content := cstr(blk.Data)
	*h.Value() = String{
		alloc:   f.alloc,
		data:    content[:len(content):len(content)],
		ext:     blk,
		storage: StorageMoved,
		term:    len(content) < len(blk.Data),
	}
	return h, nil
}

// WithFree creates a string over caller-owned bytes. The last Release
// calls free(ctx) and touches s no further. ctx may be nil; s and free may not.
func (f *Factory) WithFree(s []byte, free func(ctx any), ctx any) (*Handle, error) {
	if s == nil {
		return nil, f.fail("custom-free", errors.NilArgument(errors.PhaseCreate, "s"))
	}
	if free == nil {
		return nil, f.fail("custom-free", errors.NilArgument(errors.PhaseCreate, "free"))
	}

	h, err := handle.New[String](f.alloc, dispose, 0, 0)
	if err != nil {
		return nil, f.fail("custom-free", err)
	}

	content := cstr(s)
	*h.Value() = String{
		ctx:     ctx,
		free:    free,
		data:    content[:len(content):len(content)],
		storage: StorageCustomFree,
		term:    len(content) < len(s),
	}
	return h, nil
}

// Format creates a copied string from fm's output. The probed length
// sizes the allocation exactly; a probe error, a negative length, a length
// of math.MaxInt or a Fill that writes a different length fails the call.
func (f *Factory) Format(fm Formatter) (*Handle, error) {
	if fm == nil {
		return nil, f.fail("format", errors.NilArgument(errors.PhaseFormat, "template"))
	}

	n, err := fm.Probe()
	if err != nil {
		return nil, f.fail("format", errors.Wrap(errors.PhaseFormat, errors.KindAllocation, err, "probe"))
	}
	if n < 0 {
		return nil, f.fail("format", errors.New(errors.PhaseFormat, errors.KindAllocation).
			Value(n).
			Detail("probe returned length %d", n).
			Build())
	}
	if n == math.MaxInt {
		return nil, f.fail("format", errors.Overflow(errors.PhaseFormat, n, "int"))
	}

	h, err := handle.New[String](f.alloc, dispose, 1, uint64(n)+1)
	if err != nil {
		return nil, f.fail("format", err)
	}

	tail := h.Tail()
	*h.Value() = String{
		data:    tail[:n:n],
		storage: StorageCopied,
		term:    true,
	}

	written, err := fm.Fill(tail[:n:n])
	if err != nil || written != n {
		h.Release()
		return nil, f.fail("format", errors.New(errors.PhaseFormat, errors.KindAllocation).
			Cause(err).
			Value(written).
			Detail("fill wrote %d bytes, probe reported %d", written, n).
			Build())
	}

	// Content stops at the first NUL the formatter wrote.
	content := cstr(tail[:n])
	h.Value().data = content[:len(content):len(content)]
	return h, nil
}

// Formatf is Format over Sprintf(format, args...).
func (f *Factory) Formatf(format string, args ...any) (*Handle, error) {
	return f.Format(Sprintf(format, args...))
}

// Recreate returns a new copied string with h's content. h is neither
// modified nor released, whether Recreate succeeds or fails.
func (f *Factory) Recreate(h *Handle) (*Handle, error) {
	if h == nil {
		return nil, f.fail("recreate", errors.NilArgument(errors.PhaseCreate, "self"))
	}
	return f.copyContent("recreate", h.Value().data)
}

// Decode converts src from enc to UTF-8 and stores the result as a
// copied string.
func (f *Factory) Decode(enc encoding.Encoding, src []byte) (*Handle, error) {
	if enc == nil {
		return nil, f.fail("decode", errors.NilArgument(errors.PhaseDecode, "enc"))
	}
	if src == nil {
		return nil, f.fail("decode", errors.NilArgument(errors.PhaseDecode, "src"))
	}

	out, err := enc.NewDecoder().Bytes(src)
	if err != nil {
		return nil, f.fail("decode", errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "decode input"))
	}
	return f.copyContent("decode", cstr(out))
}

// Copy is Default().Copy.
func Copy(s []byte) (*Handle, error) { return defaultFactory.Copy(s) }

// CopyString is Default().CopyString.
func CopyString(s string) (*Handle, error) { return defaultFactory.CopyString(s) }

// WithFree is Default().WithFree.
func WithFree(s []byte, free func(ctx any), ctx any) (*Handle, error) {
	return defaultFactory.WithFree(s, free, ctx)
}

// Format is Default().Format.
func Format(fm Formatter) (*Handle, error) { return defaultFactory.Format(fm) }

// Formatf is Default().Formatf.
func Formatf(format string, args ...any) (*Handle, error) {
	return defaultFactory.Formatf(format, args...)
}

// Recreate is Default().Recreate.
func Recreate(h *Handle) (*Handle, error) { return defaultFactory.Recreate(h) }

// Decode is Default().Decode.
func Decode(enc encoding.Encoding, src []byte) (*Handle, error) {
	return defaultFactory.Decode(enc, src)
}
