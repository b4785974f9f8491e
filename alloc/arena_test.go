package alloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/errors"
)

func TestArena_AllocFree(t *testing.T) {
	a := NewArena(make([]byte, 256))

	b1, err := a.Alloc(10)
	require.NoError(t, err)
	b2, err := a.Alloc(20)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), b1.Ref)
	assert.Equal(t, uint64(16), b2.Ref, "offsets are 8-byte aligned")
	assert.Len(t, b1.Data, 10)
	assert.Equal(t, 10, cap(b1.Data), "block must not alias its neighbour")
	assert.Equal(t, 2, a.Live())
	assert.Equal(t, uint64(16+24), a.InUse())

	a.Free(b1)
	a.Free(b2)
	assert.Equal(t, 0, a.Live())
	assert.Equal(t, 1, a.Spans(), "free spans should coalesce")
	assert.Zero(t, a.InUse())
}

func TestArena_ZeroesReusedSpace(t *testing.T) {
	a := NewArena(make([]byte, 64))

	b, err := a.Alloc(16)
	require.NoError(t, err)
	for i := range b.Data {
		b.Data[i] = 0xFF
	}
	a.Free(b)

	b, err = a.Alloc(16)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), b.Data)
}

func TestArena_ZeroSizeBlocksAreDistinct(t *testing.T) {
	a := NewArena(make([]byte, 64))

	b1, err := a.Alloc(0)
	require.NoError(t, err)
	b2, err := a.Alloc(0)
	require.NoError(t, err)

	assert.NotNil(t, b1.Data)
	assert.NotEqual(t, b1.Ref, b2.Ref)
}

func TestArena_Exhaustion(t *testing.T) {
	a := NewArena(make([]byte, 64))

	blocks := make([]rcstring.Block, 0, 4)
	for i := 0; i < 4; i++ {
		b, err := a.Alloc(16)
		require.NoError(t, err)
		blocks = append(blocks, b)
	}

	_, err := a.Alloc(1)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindAllocation))

	_, err = a.Alloc(65)
	require.Error(t, err)

	// Free two non-adjacent blocks: 32 bytes free but fragmented.
	a.Free(blocks[0])
	a.Free(blocks[2])
	assert.Equal(t, 2, a.Spans())
	_, err = a.Alloc(32)
	require.Error(t, err, "fragmented arena cannot satisfy a contiguous request")

	// Freeing the middle block joins all three spans.
	a.Free(blocks[1])
	assert.Equal(t, 1, a.Spans())
	b, err := a.Alloc(48)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), b.Ref)
}

func TestArena_DoubleFreeIgnored(t *testing.T) {
	a := NewArena(make([]byte, 64))

	b, err := a.Alloc(8)
	require.NoError(t, err)
	a.Free(b)
	a.Free(b)

	assert.Equal(t, 1, a.Spans())
	assert.Zero(t, a.InUse())
}

func TestArena_Close(t *testing.T) {
	a := NewArena(make([]byte, 64))
	b, err := a.Alloc(8)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err = a.Alloc(8)
	assert.True(t, errors.IsKind(err, errors.KindClosed))
	a.Free(b)
}

func TestArena_Concurrent(t *testing.T) {
	a := NewArena(make([]byte, 64*1024))
	var wg sync.WaitGroup

	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b, err := a.Alloc(uint64(i%64 + 1))
				if err != nil {
					t.Error(err)
					return
				}
				b.Data[0] = byte(i)
				a.Free(b)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, a.Live())
	assert.Equal(t, 1, a.Spans())
}
