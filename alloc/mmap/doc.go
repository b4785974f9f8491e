// Package mmap provides an allocator over an anonymous memory mapping.
//
// The mapping is made once at New with a fixed size and carved up by an
// alloc.Arena. Blocks therefore live outside the Go heap and are returned
// to the arena on Free; Close unmaps the region.
//
//	m, err := mmap.New(1 << 20)
//	if err != nil {
//		return err
//	}
//	defer m.Close()
//
//	h, err := rcstr.NewFactory(m).CopyString("off-heap")
//
// Only Linux and Darwin are supported; New fails elsewhere.
package mmap
