// Package engerr defines the structured error kinds shared across the
// engine's packages. Components wrap the error they actually hit with a
// Kind so callers can branch on failure category instead of matching
// strings.
package engerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of a fixed set of categories.
type Kind string

const (
	// NotFound means the requested noun, verb, ref, or commit does not exist.
	NotFound Kind = "not_found"
	// DimensionMismatch means a vector's dimension didn't match the index's.
	DimensionMismatch Kind = "dimension_mismatch"
	// RefConflict means a compare-and-swap on a ref failed because the
	// observed value had already moved.
	RefConflict Kind = "ref_conflict"
	// InvalidType means a noun or verb type isn't registered.
	InvalidType Kind = "invalid_type"
	// InvalidArgument means a caller-supplied argument failed validation.
	InvalidArgument Kind = "invalid_argument"
	// Conflict means an operation collided with concurrent state it
	// didn't expect (other than a ref CAS, which uses RefConflict).
	Conflict Kind = "conflict"
	// Cancelled means the operation's context was cancelled or its
	// deadline passed before it finished.
	Cancelled Kind = "cancelled"
	// Exhausted means a bounded operation (e.g. a migration) hit its
	// error budget and stopped.
	Exhausted Kind = "exhausted"
	// IO means the failure originated in the filesystem or an underlying
	// storage engine (bbolt, blob store).
	IO Kind = "io"
	// DegradedHealth means a health check reported the engine, or one of
	// its partitions, as degraded rather than healthy.
	DegradedHealth Kind = "degraded_health"
)

// Error wraps an underlying error with the operation that failed and the
// Kind it falls under.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap builds an *Error for op failing with kind, wrapping err. Wrap
// returns nil if err is nil, so callers can write
// `return engerr.Wrap("graph.Put", engerr.IO, store.Put(...))`.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// New builds an *Error with no wrapped cause, for validation-style
// failures that don't originate from a lower layer.
func New(op string, kind Kind, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Is reports whether err (or any error it wraps) is an *Error of kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
