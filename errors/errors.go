package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in a bridge call the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // model loading
	PhaseRelease  Phase = "release"  // handle release
	PhaseQuery    Phase = "query"    // collaborator query
	PhaseEncode   Phase = "encode"   // result serialization
	PhaseBoundary Phase = "boundary" // foreign memory and argument marshalling
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidHandle Kind = "invalid_handle"
	KindHandleBusy    Kind = "handle_busy"
	KindNotFound      Kind = "not_found"
	KindInvalidData   Kind = "invalid_data"
	KindInvalidInput  Kind = "invalid_input"
	KindNilPointer    Kind = "nil_pointer"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindAllocation    Kind = "allocation"
	KindUnsupported   Kind = "unsupported"
	KindClosed        Kind = "closed"
	KindCollaborator  Kind = "collaborator"
)

// Error is the structured error type returned across the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
	Handle uint64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Handle != 0 {
		fmt.Fprintf(&b, " (handle %#x)", e.Handle)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the bridge operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Handle sets the handle the operation was called with
func (b *Builder) Handle(h uint64) *Builder {
	b.err.Handle = h
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidHandle creates an error for a null, unknown or released handle
func InvalidHandle(op string, h uint64) *Error {
	detail := "handle is not live"
	if h == 0 {
		detail = "null handle"
	}
	return &Error{
		Phase:  PhaseQuery,
		Kind:   KindInvalidHandle,
		Op:     op,
		Handle: h,
		Detail: detail,
	}
}

// HandleBusy creates an error for a release attempted while queries hold the handle
func HandleBusy(h uint64) *Error {
	return &Error{
		Phase:  PhaseRelease,
		Kind:   KindHandleBusy,
		Op:     "release",
		Handle: h,
		Detail: "handle has outstanding borrows",
	}
}

// Load creates a model loading error
func Load(path string, kind Kind, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   kind,
		Op:     "load",
		Detail: fmt.Sprintf("load model %q", path),
		Value:  path,
		Cause:  cause,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NilPointer creates a nil pointer error for a foreign argument
func NilPointer(op, arg string) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindNilPointer,
		Op:     op,
		Detail: fmt.Sprintf("argument %q is null", arg),
	}
}

// OutOfBounds creates an out of bounds error for foreign memory access
func OutOfBounds(op string, offset, length uint32) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindOutOfBounds,
		Op:     op,
		Detail: fmt.Sprintf("range [%d, %d) outside memory", offset, uint64(offset)+uint64(length)),
		Value:  offset,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(op string, size uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindAllocation,
		Op:     op,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// Collaborator wraps a failure reported by the embedding model
func Collaborator(op string, h uint64, cause error) *Error {
	return &Error{
		Phase:  PhaseQuery,
		Kind:   KindCollaborator,
		Op:     op,
		Handle: h,
		Cause:  cause,
	}
}

// Encode wraps a serialization failure
func Encode(op string, cause error) *Error {
	return &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Op:    op,
		Cause: cause,
	}
}

// Closed reports use of a bridge after Close
func Closed(op string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindClosed,
		Op:     op,
		Detail: "bridge closed",
	}
}

// Status codes carried by the C surface. 0 is success.
const (
	CodeOK            int32 = 0
	CodeInvalidHandle int32 = 1
	CodeHandleBusy    int32 = 2
	CodeNotFound      int32 = 3
	CodeInvalidData   int32 = 4
	CodeInvalidInput  int32 = 5
	CodeNilPointer    int32 = 6
	CodeOutOfBounds   int32 = 7
	CodeAllocation    int32 = 8
	CodeUnsupported   int32 = 9
	CodeClosed        int32 = 10
	CodeCollaborator  int32 = 11
	CodeUnknown       int32 = 255
)

var kindCodes = map[Kind]int32{
	KindInvalidHandle: CodeInvalidHandle,
	KindHandleBusy:    CodeHandleBusy,
	KindNotFound:      CodeNotFound,
	KindInvalidData:   CodeInvalidData,
	KindInvalidInput:  CodeInvalidInput,
	KindNilPointer:    CodeNilPointer,
	KindOutOfBounds:   CodeOutOfBounds,
	KindAllocation:    CodeAllocation,
	KindUnsupported:   CodeUnsupported,
	KindClosed:        CodeClosed,
	KindCollaborator:  CodeCollaborator,
}

// Code maps err to the status code reported across the C surface.
// Errors that are not *Error map to CodeUnknown.
func Code(err error) int32 {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if !errors.As(err, &e) {
		return CodeUnknown
	}
	if c, ok := kindCodes[e.Kind]; ok {
		return c
	}
	return CodeUnknown
}
