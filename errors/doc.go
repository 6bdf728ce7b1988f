// Package errors provides structured error types for the fasttext bridge.
//
// Errors are categorized by Phase (where in a bridge call the error occurred)
// and Kind (error category). The Error type carries the operation name, the
// handle the operation was called with, a detail message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseQuery, errors.KindInvalidHandle).
//		Op("predict").
//		Handle(uint64(h)).
//		Detail("handle released").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle("predict", uint64(h))
//	err := errors.Load(path, errors.KindNotFound, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// Code maps an error to the integer status reported by the C surface.
package errors
