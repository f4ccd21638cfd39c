// Package apperr defines the error taxonomy shared across the versioning
// engine and solve pipeline: NotFound, Validation, Conflict, Corruption,
// Policy, SolverInfeasible, SolverTimeout, Cancelled, Internal.
//
// Callers classify an error with apperr.KindOf(err) against the Kind
// constants; handlers that need the offending resource can pull it back
// out with errors.As against *Error.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the taxonomy categories from spec section 7.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindCorruption       Kind = "corruption"
	KindPolicy           Kind = "policy"
	KindSolverInfeasible Kind = "solver_infeasible"
	KindSolverTimeout    Kind = "solver_timeout"
	KindCancelled        Kind = "cancelled"
	KindInternal         Kind = "internal"
)

// Error carries a taxonomy Kind plus free-form context alongside the
// wrapped cause, so a handler can both classify (apperr.KindOf) and
// explain (Context) without parsing the message string.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Short aliases for the Kind constants, so call sites read
// apperr.New(apperr.NotFound, ...) instead of apperr.New(apperr.KindNotFound, ...).
const (
	NotFound         = KindNotFound
	Validation       = KindValidation
	Conflict         = KindConflict
	Corruption       = KindCorruption
	Policy           = KindPolicy
	SolverInfeasible = KindSolverInfeasible
	SolverTimeout    = KindSolverTimeout
	Cancelled        = KindCancelled
	Internal         = KindInternal
)

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithContext attaches a key/value of diagnostic context and returns the
// receiver for chaining at the call site.
func (e *Error) WithContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error; otherwise returns KindInternal, the conservative default.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
