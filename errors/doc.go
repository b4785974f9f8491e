// Package errors provides structured error types for the rcstring module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the offending argument name, a detail message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCreate, errors.KindNilPointer).
//		Arg("free").
//		Detail("custom-free string needs a free function").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NilArgument(errors.PhaseCreate, "s")
//	err := errors.SizeOverflow(errors.PhaseAlloc, 16, 1, n, limit)
//
// All errors implement the standard error interface and support errors.Is/As.
// errors.Is matches on Phase and Kind; IsKind matches on Kind alone.
package errors
