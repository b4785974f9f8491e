package stress

import (
	"sync"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/rcstr"
)

// tracker counts disposals by watching handle blocks come back to the
// allocator. A handle block is freed only after its dispose has run.
type tracker struct {
	next rcstring.Allocator

	mu     sync.Mutex
	live   map[*byte]rcstr.Storage
	counts map[rcstr.Storage]uint64
}

func newTracker(next rcstring.Allocator) *tracker {
	return &tracker{
		next:   next,
		live:   make(map[*byte]rcstr.Storage),
		counts: make(map[rcstr.Storage]uint64),
	}
}

func blockKey(b rcstring.Block) *byte {
	if len(b.Data) == 0 {
		return nil
	}
	return &b.Data[0]
}

func (t *tracker) watch(h *rcstr.Handle, s rcstr.Storage) {
	key := blockKey(h.Block())
	if key == nil {
		return
	}
	t.mu.Lock()
	t.live[key] = s
	t.mu.Unlock()
}

func (t *tracker) Alloc(size uint64) (rcstring.Block, error) {
	return t.next.Alloc(size)
}

func (t *tracker) Free(b rcstring.Block) {
	if key := blockKey(b); key != nil {
		t.mu.Lock()
		if s, ok := t.live[key]; ok {
			delete(t.live, key)
			t.counts[s]++
		}
		t.mu.Unlock()
	}
	t.next.Free(b)
}

func (t *tracker) MaxSize() uint64 {
	return t.next.MaxSize()
}

func (t *tracker) disposed() map[rcstr.Storage]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[rcstr.Storage]uint64, len(t.counts))
	for s, n := range t.counts {
		out[s] = n
	}
	return out
}
