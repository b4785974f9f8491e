// Package handle provides Handle[T], an atomically reference-counted
// owner of a payload and one allocator block, and Slot[T], a storage cell
// that publishes handles with an atomic exchange.
//
// # Layout
//
// Each handle owns one block from a rcstring.Allocator, obtained through
// alloc.Flex so the size arithmetic is overflow checked:
//
//	0                16                          16+elemSize*count
//	+----------------+---------------------------+
//	| header         | tail (zeroed)             |
//	+----------------+---------------------------+
//	magic "RCH\x01" | flags u32 LE | tail length u64 LE
//
// The payload T lives in the handle itself; Tail exposes the trailing
// region for payloads with a variable-length part.
//
// # Lifecycle
//
//	h, err := handle.New[T](a, dispose, 1, n) // refs = 1
//	h.Retain()                                 // refs = 2
//	h.Release()                                // refs = 1
//	h.Release()                                // refs = 0: dispose, then free
//
// Exactly one Release observes the count reaching zero and runs dispose.
// Retaining a handle whose count is already zero, or releasing it again,
// is a programming error and panics.
//
// # Slots
//
// A Slot holds at most one reference. Assign retains the new value before
// exchanging it in and releases the displaced one afterwards, so assigning
// a slot its own value is safe. Concurrent Assign calls on one slot are
// safe; Share (load then retain) is only safe when no other goroutine can
// release the slot's last reference concurrently.
package handle
