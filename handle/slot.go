package handle

import (
	"sync/atomic"
)

// Slot is a storage cell holding at most one reference to a Handle[T].
// The zero value is an empty slot. A Slot must not be copied after first use.
type Slot[T any] struct {
	p atomic.Pointer[Handle[T]]
}

// Assign stores a new reference to src in the slot and releases the value
// the slot held before. src is retained before the exchange, so assigning
// a slot its own value never disposes it. A nil src empties the slot.
func (s *Slot[T]) Assign(src *Handle[T]) {
	if src != nil {
		src.Retain()
	}
	if old := s.p.Swap(src); old != nil {
		old.Release()
	}
}

// Init stores a new reference to src in a slot expected to be empty.
// If the slot turns out to be occupied, the displaced value is released
// as Assign would.
func (s *Slot[T]) Init(src *Handle[T]) {
	if src != nil {
		src.Retain()
	}
	if s.p.CompareAndSwap(nil, src) {
		return
	}
	Logger().Warn("handle: init of occupied slot")
	if old := s.p.Swap(src); old != nil {
		old.Release()
	}
}

// Adopt moves the caller's reference to h into the slot without changing
// its count, releasing the value the slot held before.
func (s *Slot[T]) Adopt(h *Handle[T]) {
	if old := s.p.Swap(h); old != nil {
		old.Release()
	}
}

// Move transfers the reference held by src into s and leaves src empty.
// Reference counts are unchanged. If s was occupied, its previous value
// is released.
func (s *Slot[T]) Move(src *Slot[T]) {
	v := src.p.Swap(nil)
	if old := s.p.Swap(v); old != nil {
		old.Release()
	}
}

// Load returns the slot's value without retaining it. The result may only
// be used while the slot is known to keep its reference.
func (s *Slot[T]) Load() *Handle[T] {
	return s.p.Load()
}

// Share returns a new reference to the slot's value, or nil for an empty
// slot. The caller must ensure no concurrent writer can release the
// slot's last reference between the load and the retain.
func (s *Slot[T]) Share() *Handle[T] {
	h := s.p.Load()
	if h == nil {
		return nil
	}
	return h.Retain()
}

// Take empties the slot and returns its reference to the caller.
func (s *Slot[T]) Take() *Handle[T] {
	return s.p.Swap(nil)
}

// Clear releases the slot's reference and leaves it empty.
func (s *Slot[T]) Clear() {
	s.Assign(nil)
}
