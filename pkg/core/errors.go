package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Code is the fixed error taxonomy every storage failure is normalized into.
type Code string

const (
	CodeStorageNotAvailable Code = "STORAGE_NOT_AVAILABLE"
	CodeStorageFull         Code = "STORAGE_FULL"
	CodeStorageCorrupt      Code = "STORAGE_CORRUPT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeConflict            Code = "CONFLICT_ERROR"
	CodeSchema              Code = "SCHEMA_ERROR"
	CodeNetwork             Code = "NETWORK_ERROR"
	CodeTimeout             Code = "TIMEOUT_ERROR"
	CodePermissionDenied    Code = "PERMISSION_DENIED"
	CodeEncryption          Code = "ENCRYPTION_ERROR"
	CodeInitialization      Code = "INITIALIZATION_ERROR"
	CodeUnknown             Code = "UNKNOWN_ERROR"
)

// Retryable reports whether an operation failing with this code may be retried.
func (c Code) Retryable() bool {
	switch c {
	case CodeStorageFull, CodeConflict, CodeNetwork, CodeTimeout:
		return true
	}
	return false
}

// Critical reports whether this code flags a security-relevant failure.
// Critical errors have their context redacted before logging or display.
func (c Code) Critical() bool {
	return c == CodePermissionDenied || c == CodeEncryption
}

// Error is the normalized storage error. Raw adapter failures are converted
// exactly once, at the resilience executor boundary, before any retry or
// circuit-breaker decision is made.
type Error struct {
	Code    Code
	Op      string
	Message string
	Context map[string]any
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Op != "" {
		b.WriteString(" [")
		b.WriteString(e.Op)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the wrapped operation may be retried.
func (e *Error) Retryable() bool { return e.Code.Retryable() }

// Critical reports whether the error is security-relevant.
func (e *Error) Critical() bool { return e.Code.Critical() }

// Redacted returns a copy safe for logging or display. Critical errors drop
// their context map and cause; others are returned unchanged.
func (e *Error) Redacted() *Error {
	if !e.Critical() {
		return e
	}
	return &Error{Code: e.Code, Op: e.Op, Message: e.Message}
}

// E builds a coded error.
func E(code Code, op, message string, cause error) *Error {
	return &Error{Code: code, Op: op, Message: message, Err: cause}
}

// CodeOf extracts the taxonomy code from any error chain.
// Unclassified errors report CodeUnknown.
func CodeOf(err error) Code {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return CodeConflict
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code Code) bool { return CodeOf(err) == code }

// Retryable reports whether err may be retried, per the taxonomy.
func Retryable(err error) bool { return CodeOf(err).Retryable() }

// ConflictError is the distinguishable optimistic-concurrency signal.
// Backends that track revisions return it instead of a generic failure so
// core logic never depends on backend-specific status codes. Current holds
// the latest stored Note or Notebook when the backend could fetch it.
type ConflictError struct {
	Kind            ItemKind
	ID              string
	CurrentRevision string
	Current         any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("revision conflict on %s %q (current revision %s)", e.Kind, e.ID, e.CurrentRevision)
}

// CurrentNote returns the latest stored note, if the conflict carries one.
func (e *ConflictError) CurrentNote() (Note, bool) {
	n, ok := e.Current.(Note)
	return n, ok
}

// CurrentNotebook returns the latest stored notebook, if the conflict carries one.
func (e *ConflictError) CurrentNotebook() (Notebook, bool) {
	b, ok := e.Current.(Notebook)
	return b, ok
}

// UnresolvedConflictError is surfaced when the adapter-level bounded retry
// also conflicted. It carries both the caller's intended version and the
// latest stored version; resolution belongs to the caller or the sync engine.
type UnresolvedConflictError struct {
	Kind     ItemKind
	ID       string
	Intended any
	Latest   any
}

func (e *UnresolvedConflictError) Error() string {
	return fmt.Sprintf("unresolved revision conflict on %s %q after retry", e.Kind, e.ID)
}

// Classify normalizes a raw failure into a coded Error. Already-coded errors
// pass through with the operation name filled in; everything else is mapped
// by inspecting the error chain.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		if ce.Op == "" {
			return &Error{Code: ce.Code, Op: op, Message: ce.Message, Context: ce.Context, Err: ce.Err}
		}
		return ce
	}

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return &Error{Code: CodeConflict, Op: op, Message: conflict.Error(), Err: err}
	}
	var unresolved *UnresolvedConflictError
	if errors.As(err, &unresolved) {
		// Past the bounded retry; not transient anymore.
		return &Error{Code: CodeConflict, Op: op, Message: unresolved.Error(), Err: err}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeTimeout, Op: op, Message: "operation timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Code: CodeTimeout, Op: op, Message: "operation canceled", Err: err}
	case errors.Is(err, os.ErrNotExist):
		return &Error{Code: CodeNotFound, Op: op, Err: err}
	case errors.Is(err, os.ErrPermission):
		return &Error{Code: CodePermissionDenied, Op: op, Err: err}
	}

	return &Error{Code: CodeUnknown, Op: op, Err: err}
}
