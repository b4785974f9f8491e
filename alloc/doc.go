// Package alloc provides flexible allocation and the allocators behind it.
//
// A flexible allocation is one block holding a fixed header followed by a
// trailing region of count elements of elemSize bytes. Flex computes
// base + elemSize*count with overflow detection before asking the
// allocator for anything:
//
//	blk, err := alloc.Flex(a, handle.HeaderSize, 1, uint64(len(s))+1)
//	if err != nil {
//	    // errors.KindOverflow or errors.KindAllocation; nothing was allocated
//	}
//
// # Allocators
//
//	Heap      make-backed blocks, reclaimed by the Go collector after Free
//	Pool      tiered sync.Pool size classes from 32B to 8MB
//	Arena     first-fit free list over a fixed byte region
//	Counting  wrapper that records allocations and injects failures
//
// Arena is the building block for allocators over memory the Go runtime
// does not own; see the linear and mmap subpackages.
package alloc
