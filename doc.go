// Package rcstring provides atomically reference-counted handles and an
// immutable reference-counted string built on them.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	rcstring/            Root package with the Allocator interface and Block
//	├── alloc/           Flexible (header + trailing region) allocation and allocators
//	│   ├── linear/      Arena over WebAssembly linear memory (wazero)
//	│   └── mmap/        Arena over an anonymous memory mapping
//	├── handle/          Generic Handle[T] with atomic refcount and Slot[T]
//	├── rcstr/           Immutable reference-counted strings
//	├── errors/          Structured error types
//	├── internal/stress/ Concurrent share/release workload
//	└── cmd/rcstress/    Concurrent share/release stress tool
//
// # Quick Start
//
//	h, err := rcstr.CopyString("hello")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Release()
//
//	fmt.Println(h.Value().String()) // "hello"
//
// # Ownership
//
// Every successful constructor returns a handle with a reference count of 1
// owned by the caller. Retain adds a reference, Release drops one; the
// release that takes the count to zero runs the handle's dispose function
// and returns its block to the allocator. Nothing is reclaimed by tracing:
// a handle that is never released keeps its allocator block forever.
//
// # Thread Safety
//
// Reference counting is atomic, so any number of goroutines may retain and
// release their own references to the same handle. A handle.Slot publishes
// values with an atomic exchange; reading a slot and then retaining the
// value it held is only safe under a single-writer discipline or external
// locking.
package rcstring
