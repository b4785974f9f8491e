package rcstr

import (
	"bytes"
	"fmt"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/handle"
)

// Handle is a reference-counted string.
type Handle = handle.Handle[String]

// Slot holds a reference to a string.
type Slot = handle.Slot[String]

// Storage identifies how a string's bytes are owned.
type Storage uint8

const (
	StorageCopied Storage = iota + 1
	StorageMoved
	StorageCustomFree
)

func (s Storage) String() string {
	switch s {
	case StorageCopied:
		return "copied"
	case StorageMoved:
		return "moved"
	case StorageCustomFree:
		return "custom-free"
	default:
		return fmt.Sprintf("storage(%d)", uint8(s))
	}
}

// String is the payload of a string handle. It is immutable once built.
type String struct {
	alloc   rcstring.Allocator
	ctx     any
	free    func(ctx any)
	data    []byte
	ext     rcstring.Block
	storage Storage
	term    bool
}

// Bytes returns the content without terminator. The slice must not be modified.
func (s *String) Bytes() []byte {
	return s.data
}

// String returns a copy of the content.
func (s *String) String() string {
	return string(s.data)
}

// Len returns the content length in bytes.
func (s *String) Len() int {
	return len(s.data)
}

// Storage reports the storage strategy chosen at construction.
func (s *String) Storage() Storage {
	return s.storage
}

// Terminated reports whether a NUL byte directly follows the content in
// its backing storage.
func (s *String) Terminated() bool {
	return s.term
}

// dispose releases the bytes according to the storage strategy. The
// handle frees its own block afterwards.
func dispose(s *String) {
	switch s.storage {
	case StorageCopied:
	case StorageMoved:
		s.alloc.Free(s.ext)
	case StorageCustomFree:
		s.free(s.ctx)
	default:
		panic(fmt.Sprintf("rcstr: dispose of %v", s.storage))
	}
}

// cstr returns b up to its first NUL byte.
func cstr(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

// Equal reports whether a and b hold the same content. Two nil handles
// are equal.
func Equal(a, b *Handle) bool {
	if a == nil || b == nil {
		return a == b
	}
	return bytes.Equal(a.Value().data, b.Value().data)
}
