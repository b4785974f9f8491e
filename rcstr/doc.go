// Package rcstr provides immutable, reference-counted strings.
//
// A string is a handle.Handle[String]. Its content is fixed at construction
// and the handle's storage strategy decides what the last Release does:
//
//	StorageCopied      bytes live in the handle's own block; nothing extra to do
//	StorageMoved       bytes live in a caller block that is freed with the handle
//	StorageCustomFree  bytes belong to the caller; free(ctx) is called
//
// Constructors:
//
//	h, err := rcstr.CopyString("hello")            // copied
//	h, err := rcstr.Formatf("%s-%d", "id", 7)      // copied, formatted
//	h, err := f.Move(blk)                          // moved; blk from f's allocator
//	h, err := rcstr.WithFree(buf, unpin, pinCtx)   // custom free
//	c, err := rcstr.Recreate(h)                    // independent copied clone
//
// Content follows C string rules: it ends at the first NUL byte of the
// input. Copied strings always keep a NUL right after their content.
//
// Every constructor either returns a handle owned by the caller or nil and
// an error; it never leaves a half-built handle behind or modifies its inputs.
package rcstr
