package alloc

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/errors"
)

// ArenaAlign is the alignment of every arena block offset.
const ArenaAlign = 8

type span struct {
	off  uint64
	size uint64
}

// Arena carves blocks out of a fixed byte region with a first-fit free
// list. Adjacent free spans are coalesced on Free. Block.Ref is the offset
// of the block within the region.
type Arena struct {
	region []byte
	free   []span
	used   map[uint64]uint64
	inUse  uint64
	mu     sync.Mutex
	closed bool
}

// NewArena creates an arena over region. The arena owns region until Close.
func NewArena(region []byte) *Arena {
	a := &Arena{
		region: region,
		used:   make(map[uint64]uint64),
	}
	usable := uint64(len(region)) &^ (ArenaAlign - 1)
	if usable > 0 {
		a.free = []span{{off: 0, size: usable}}
	}
	return a
}

func alignUp(n uint64) uint64 {
	return (n + ArenaAlign - 1) &^ (ArenaAlign - 1)
}

// Alloc returns a zeroed block of size bytes. Zero-sized requests still
// reserve one aligned slot so every live block has a distinct offset.
func (a *Arena) Alloc(size uint64) (rcstring.Block, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return rcstring.Block{}, errors.Closed(errors.PhaseAlloc, "arena")
	}
	if size > uint64(len(a.region)) {
		return rcstring.Block{}, errors.OutOfMemory(size, a.freeBytesLocked())
	}

	need := alignUp(max(size, 1))
	for i := range a.free {
		s := &a.free[i]
		if s.size < need {
			continue
		}
		off := s.off
		if s.size == need {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			s.off += need
			s.size -= need
		}
		a.used[off] = need
		a.inUse += need

		data := a.region[off : off+size : off+size]
		clear(data)
		return rcstring.Block{Data: data, Ref: off}, nil
	}

	return rcstring.Block{}, errors.OutOfMemory(size, a.freeBytesLocked())
}

// Free returns a block to the free list. Unknown or already-freed
// offsets are logged and ignored.
func (a *Arena) Free(b rcstring.Block) {
	if b.Data == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	size, ok := a.used[b.Ref]
	if !ok {
		Logger().Error("arena free of unknown block", zap.Uint64("offset", b.Ref))
		return
	}
	delete(a.used, b.Ref)
	a.inUse -= size
	a.insertLocked(span{off: b.Ref, size: size})
}

// insertLocked adds s to the sorted free list and merges it with its neighbours.
func (a *Arena) insertLocked(s span) {
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].off > s.off })

	if i > 0 && a.free[i-1].off+a.free[i-1].size == s.off {
		a.free[i-1].size += s.size
		if i < len(a.free) && a.free[i-1].off+a.free[i-1].size == a.free[i].off {
			a.free[i-1].size += a.free[i].size
			a.free = append(a.free[:i], a.free[i+1:]...)
		}
		return
	}
	if i < len(a.free) && s.off+s.size == a.free[i].off {
		a.free[i].off = s.off
		a.free[i].size += s.size
		return
	}

	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = s
}

func (a *Arena) freeBytesLocked() uint64 {
	var n uint64
	for _, s := range a.free {
		n += s.size
	}
	return n
}

// MaxSize returns the region size.
func (a *Arena) MaxSize() uint64 {
	return uint64(len(a.region))
}

// InUse returns the bytes reserved by live blocks, including alignment padding.
func (a *Arena) InUse() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// Live returns the number of live blocks.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.used)
}

// Spans returns the number of free spans; 1 means the free space is contiguous.
func (a *Arena) Spans() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}

// Close detaches the region. Later Alloc calls fail with KindClosed and
// Free becomes a no-op. Blocks still live at Close are reported.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	if n := len(a.used); n > 0 {
		Logger().Warn("arena closed with live blocks",
			zap.Int("blocks", n),
			zap.Uint64("bytes", a.inUse))
	}
	a.closed = true
	a.region = nil
	a.free = nil
	a.used = nil
	return nil
}
