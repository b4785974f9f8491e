package rcstr

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/alloc"
	rcerrors "github.com/wippyai/rcstring/errors"
	"github.com/wippyai/rcstring/handle"
)

// recordingAllocator counts allocations and remembers every freed Ref.
type recordingAllocator struct {
	*alloc.Counting
	mu    sync.Mutex
	freed []uint64
}

func newRecording() *recordingAllocator {
	return &recordingAllocator{Counting: alloc.NewCounting(alloc.NewHeap())}
}

func (r *recordingAllocator) Free(b rcstring.Block) {
	if b.Data != nil {
		r.mu.Lock()
		r.freed = append(r.freed, b.Ref)
		r.mu.Unlock()
	}
	r.Counting.Free(b)
}

func (r *recordingAllocator) freedRefs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.freed...)
}

func TestCopy(t *testing.T) {
	rec := newRecording()
	f := NewFactory(rec)

	src := []byte("hello")
	h, err := f.Copy(src)
	require.NoError(t, err)

	s := h.Value()
	assert.Equal(t, "hello", s.String())
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, StorageCopied, s.Storage())
	assert.True(t, s.Terminated())
	assert.Equal(t, byte(0), h.Tail()[5])
	assert.Len(t, h.Tail(), 6, "inline storage is sized exactly to content plus terminator")

	src[0] = 'j'
	assert.Equal(t, "hello", s.String(), "copy must not alias its input")

	h2, err := f.Copy([]byte("hello"))
	require.NoError(t, err)
	assert.NotSame(t, h, h2)
	assert.True(t, Equal(h, h2))

	h.Release()
	h2.Release()
	st := rec.Stats()
	assert.Equal(t, uint64(2), st.Allocs)
	assert.Zero(t, st.LiveBlocks)
}

func TestCopy_Empty(t *testing.T) {
	h, err := Copy([]byte{})
	require.NoError(t, err)
	defer h.Release()

	assert.Equal(t, "", h.Value().String())
	assert.Zero(t, h.Value().Len())
	assert.True(t, h.Value().Terminated())
	assert.Equal(t, []byte{0}, h.Tail())

	h2, err := CopyString("")
	require.NoError(t, err)
	defer h2.Release()
	assert.True(t, Equal(h, h2))
}

func TestCopy_StopsAtNUL(t *testing.T) {
	h, err := Copy([]byte("ab\x00cd"))
	require.NoError(t, err)
	defer h.Release()

	assert.Equal(t, "ab", h.Value().String())
	assert.Len(t, h.Tail(), 3)
}

func TestFormatf_StopsAtNUL(t *testing.T) {
	h, err := Formatf("ab%ccd", 0)
	require.NoError(t, err)
	defer h.Release()

	assert.Equal(t, "ab", h.Value().String())
	assert.Equal(t, 2, h.Value().Len())
	assert.True(t, h.Value().Terminated())
	assert.Len(t, h.Tail(), 6, "allocation still sized by the probed length")

	c, err := Copy([]byte("ab\x00cd"))
	require.NoError(t, err)
	defer c.Release()
	assert.True(t, Equal(h, c))

	r, err := Recreate(h)
	require.NoError(t, err)
	defer r.Release()
	assert.Equal(t, []byte("ab\x00"), r.Tail())
}

func TestNilArguments(t *testing.T) {
	rec := newRecording()
	f := NewFactory(rec)
	var freed int

	tests := []struct {
		name string
		fn   func() (*Handle, error)
	}{
		{"copy", func() (*Handle, error) { return f.Copy(nil) }},
		{"move", func() (*Handle, error) { return f.Move(rcstring.Block{}) }},
		{"custom-free nil s", func() (*Handle, error) {
			return f.WithFree(nil, func(any) { freed++ }, nil)
		}},
		{"custom-free nil free", func() (*Handle, error) { return f.WithFree([]byte("x"), nil, nil) }},
		{"format", func() (*Handle, error) { return f.Format(nil) }},
		{"recreate", func() (*Handle, error) { return f.Recreate(nil) }},
		{"decode", func() (*Handle, error) { return f.Decode(nil, []byte("x")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := tt.fn()
			assert.Nil(t, h)
			require.Error(t, err)
			assert.True(t, rcerrors.IsKind(err, rcerrors.KindNilPointer))
		})
	}

	st := rec.Stats()
	assert.Zero(t, st.Allocs)
	assert.Zero(t, st.Failures)
	assert.Zero(t, freed)
}

func TestCopy_Overflow(t *testing.T) {
	// A 4-byte string needs header + 5 bytes; cap the allocator one byte short.
	c := alloc.NewCounting(alloc.NewHeapLimit(handle.HeaderSize + 4))
	f := NewFactory(c)

	h, err := f.Copy([]byte("abcd"))
	assert.Nil(t, h)
	assert.True(t, rcerrors.IsKind(err, rcerrors.KindOverflow))
	assert.Zero(t, c.Stats().Allocs)
	assert.Zero(t, c.Stats().Failures)

	h, err = f.Copy([]byte("abc"))
	require.NoError(t, err)
	h.Release()
}

// Copy sizes its block as HeaderSize + 1*count. A count that wraps that
// sum is rejected by alloc.FlexSize before the allocator is asked.
func TestCopy_SizeWraps(t *testing.T) {
	count := uint64(math.MaxUint64) - handle.HeaderSize + 1
	_, ok := alloc.FlexSize(handle.HeaderSize, 1, count, math.MaxUint64)
	assert.False(t, ok)

	c := alloc.NewCounting(alloc.NewHeap())
	h, err := handle.New[String](c, dispose, 1, count)
	assert.Nil(t, h)
	assert.True(t, rcerrors.IsKind(err, rcerrors.KindOverflow))
	assert.Zero(t, c.Stats().Allocs)
	assert.Zero(t, c.Stats().Failures)
}

func TestCopy_AllocationFailure(t *testing.T) {
	c := alloc.NewCounting(alloc.NewHeap())
	c.FailAfter(0)

	h, err := NewFactory(c).Copy([]byte("abc"))
	assert.Nil(t, h)
	assert.True(t, rcerrors.IsKind(err, rcerrors.KindAllocation))
}

func TestMove(t *testing.T) {
	rec := newRecording()
	f := NewFactory(rec)

	ext, err := rec.Alloc(6)
	require.NoError(t, err)
	copy(ext.Data, "moved")

	h, err := f.Move(ext)
	require.NoError(t, err)
	assert.Equal(t, "moved", h.Value().String())
	assert.Equal(t, StorageMoved, h.Value().Storage())
	assert.True(t, h.Value().Terminated())
	assert.Empty(t, h.Tail(), "moved strings carry no inline bytes")

	r := h.Retain()
	h.Release()
	assert.Empty(t, rec.freedRefs())

	r.Release()
	assert.Contains(t, rec.freedRefs(), ext.Ref)
	assert.Zero(t, rec.Stats().LiveBlocks)
}

func TestMove_EmptyString(t *testing.T) {
	rec := newRecording()
	f := NewFactory(rec)

	ext, err := rec.Alloc(1)
	require.NoError(t, err)

	h, err := f.Move(ext)
	require.NoError(t, err)
	assert.Equal(t, "", h.Value().String())
	hdr := h.Block().Ref

	h.Release()

	matching := 0
	for _, ref := range rec.freedRefs() {
		if ref == ext.Ref {
			matching++
		}
	}
	assert.Equal(t, 1, matching, "external allocation freed exactly once")
	assert.ElementsMatch(t, []uint64{ext.Ref, hdr}, rec.freedRefs())
}

func TestMove_FailureKeepsOwnership(t *testing.T) {
	rec := newRecording()
	f := NewFactory(rec)

	ext, err := rec.Alloc(4)
	require.NoError(t, err)

	rec.FailAfter(0)
	h, err := f.Move(ext)
	assert.Nil(t, h)
	assert.True(t, rcerrors.IsKind(err, rcerrors.KindAllocation))
	assert.Empty(t, rec.freedRefs(), "failed move must not free the caller's block")

	rec.Free(ext)
	assert.Zero(t, rec.Stats().LiveBlocks)
}

func TestWithFree(t *testing.T) {
	type pin struct{ calls int }
	ctx := &pin{}
	var mu sync.Mutex

	buf := []byte("pinned\x00junk")
	h, err := WithFree(buf, func(c any) {
		mu.Lock()
		c.(*pin).calls++
		mu.Unlock()
	}, ctx)
	require.NoError(t, err)

	assert.Equal(t, "pinned", h.Value().String())
	assert.Equal(t, StorageCustomFree, h.Value().Storage())
	assert.True(t, h.Value().Terminated())

	refs := make([]*Handle, 10)
	for i := range refs {
		refs[i] = h.Retain()
	}
	h.Release()

	var wg sync.WaitGroup
	for i := range refs[1:] {
		wg.Add(1)
		go func(r *Handle) {
			defer wg.Done()
			r.Release()
		}(refs[i+1])
	}
	wg.Wait()

	mu.Lock()
	assert.Zero(t, ctx.calls, "free ran while a reference was outstanding")
	mu.Unlock()

	refs[0].Release()
	assert.Equal(t, 1, ctx.calls)
}

func TestWithFree_NilContext(t *testing.T) {
	var got any = "unset"
	h, err := WithFree([]byte("x"), func(c any) { got = c }, nil)
	require.NoError(t, err)
	assert.False(t, h.Value().Terminated())

	h.Release()
	assert.Nil(t, got)
}

func TestFormatf(t *testing.T) {
	h, err := Formatf("%s-%03d", "id", 7)
	require.NoError(t, err)
	defer h.Release()

	assert.Equal(t, "id-007", h.Value().String())
	assert.Equal(t, StorageCopied, h.Value().Storage())
	assert.True(t, h.Value().Terminated())
	assert.Len(t, h.Tail(), 7)

	empty, err := Formatf("")
	require.NoError(t, err)
	defer empty.Release()
	assert.Equal(t, "", empty.Value().String())
}

type fakeFormatter struct {
	probe    int
	probeErr error
	fill     string
	fillErr  error
	filled   bool
}

func (f *fakeFormatter) Probe() (int, error) { return f.probe, f.probeErr }

func (f *fakeFormatter) Fill(dst []byte) (int, error) {
	f.filled = true
	return copy(dst, f.fill), f.fillErr
}

func TestFormat_Failures(t *testing.T) {
	tests := []struct {
		name      string
		fm        *fakeFormatter
		kind      rcerrors.Kind
		allocates bool
	}{
		{"probe error", &fakeFormatter{probeErr: errors.New("bad verb")}, rcerrors.KindAllocation, false},
		{"negative probe", &fakeFormatter{probe: -1}, rcerrors.KindAllocation, false},
		{"max length", &fakeFormatter{probe: math.MaxInt}, rcerrors.KindOverflow, false},
		{"short fill", &fakeFormatter{probe: 5, fill: "abc"}, rcerrors.KindAllocation, true},
		{"fill error", &fakeFormatter{probe: 3, fill: "abc", fillErr: errors.New("io")}, rcerrors.KindAllocation, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := alloc.NewCounting(alloc.NewHeap())
			h, err := NewFactory(c).Format(tt.fm)
			assert.Nil(t, h)
			require.Error(t, err)
			assert.True(t, rcerrors.IsKind(err, tt.kind), "got %v", err)

			st := c.Stats()
			if tt.allocates {
				assert.Equal(t, uint64(1), st.Allocs)
			} else {
				assert.Zero(t, st.Allocs)
				assert.False(t, tt.fm.filled)
			}
			assert.Zero(t, st.LiveBlocks, "failed format must not leak its block")
		})
	}
}

func TestFormat_OverflowAgainstAllocatorLimit(t *testing.T) {
	c := alloc.NewCounting(alloc.NewHeapLimit(handle.HeaderSize + 8))
	h, err := NewFactory(c).Format(&fakeFormatter{probe: 8, fill: "12345678"})
	assert.Nil(t, h)
	assert.True(t, rcerrors.IsKind(err, rcerrors.KindOverflow))
	assert.Zero(t, c.Stats().Allocs)
}

type flipStringer struct{ n int }

func (f *flipStringer) String() string {
	f.n++
	if f.n == 1 {
		return "short"
	}
	return "much longer"
}

func TestFormat_NondeterministicArgs(t *testing.T) {
	h, err := Formatf("%v", &flipStringer{})
	assert.Nil(t, h)
	assert.Error(t, err)
}

func TestRecreate(t *testing.T) {
	buf := []byte("borrowed")
	released := 0
	orig, err := WithFree(buf, func(any) {
		released++
		clear(buf)
	}, nil)
	require.NoError(t, err)

	c, err := Recreate(orig)
	require.NoError(t, err)
	assert.NotSame(t, orig, c)
	assert.True(t, Equal(orig, c))
	assert.Equal(t, StorageCopied, c.Value().Storage())
	assert.Equal(t, int64(1), orig.Refs(), "recreate must not retain the original")

	orig.Release()
	assert.Equal(t, 1, released)
	assert.Equal(t, make([]byte, 8), buf)
	assert.Equal(t, "borrowed", c.Value().String())

	c.Release()
}

func TestRecreate_FailureLeavesOriginal(t *testing.T) {
	rec := newRecording()
	f := NewFactory(rec)

	orig, err := f.CopyString("keep me")
	require.NoError(t, err)

	rec.FailAfter(0)
	c, err := f.Recreate(orig)
	assert.Nil(t, c)
	require.Error(t, err)

	assert.Equal(t, int64(1), orig.Refs())
	assert.Equal(t, "keep me", orig.Value().String())
	assert.Empty(t, rec.freedRefs())

	orig.Release()
	assert.Zero(t, rec.Stats().LiveBlocks)
}

func TestStorage_String(t *testing.T) {
	assert.Equal(t, "copied", StorageCopied.String())
	assert.Equal(t, "moved", StorageMoved.String())
	assert.Equal(t, "custom-free", StorageCustomFree.String())
	assert.Equal(t, "storage(0)", Storage(0).String())
}

func TestEqual(t *testing.T) {
	a, err := CopyString("x")
	require.NoError(t, err)
	defer a.Release()
	b, err := CopyString("y")
	require.NoError(t, err)
	defer b.Release()

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))
	assert.False(t, Equal(a, b))
	assert.True(t, Equal(a, a))
}
