package rcstring

// Block is one contiguous allocation handed out by an Allocator.
// Data is nil for the zero Block. Ref is an allocator-defined locator
// (an arena offset, a serial number) that Free uses to identify the block.
type Block struct {
	Data []byte
	Ref  uint64
}

// IsZero reports whether b holds no allocation.
func (b Block) IsZero() bool {
	return b.Data == nil
}

// Len returns the block size in bytes.
func (b Block) Len() int {
	return len(b.Data)
}

// Allocator provides zeroed blocks of memory.
// Implementations must be safe for concurrent use.
type Allocator interface {
	// Alloc returns a zeroed block of exactly size bytes.
	Alloc(size uint64) (Block, error)
	// Free returns a block obtained from Alloc. Freeing the zero Block is a no-op.
	Free(b Block)
	// MaxSize is the largest size Alloc can represent.
	MaxSize() uint64
}
