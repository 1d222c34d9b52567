package nbody

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind categorizes the failure modes of the propagation core.
type Kind uint8

const (
	// AllocationFailure means a working buffer was refused by the allocator.
	AllocationFailure Kind = iota + 1
	// EphemerisFailure means the ephemeris or minor-body collaborator
	// returned failure for a given epoch.
	EphemerisFailure
	// SolverNonConvergence means a BS row, a GR15 sequence, or a Kepler
	// iterate family failed to converge within its bounds.
	SolverNonConvergence
	// DomainError means an input combination is outside what the engine
	// supports (relativity off the Sun, a remainder larger than the step,
	// an empty batch, a hyperbolic-argument overflow, ...).
	DomainError
	// EncounterBufferTooSmall means the caller's encounter table cannot
	// hold (N particles, 11 bodies, 4 fields).
	EncounterBufferTooSmall
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case AllocationFailure:
		return "allocation failure"
	case EphemerisFailure:
		return "ephemeris failure"
	case SolverNonConvergence:
		return "solver non-convergence"
	case DomainError:
		return "domain error"
	case EncounterBufferTooSmall:
		return "encounter buffer too small"
	default:
		return "unknown error kind"
	}
}

// Error is the concrete error type returned by every entry point of this
// engine. It carries a Kind for programmatic dispatch and wraps an
// underlying cause (when there is one) via github.com/pkg/errors so callers
// can still errors.Cause() down to the root failure.
type Error struct {
	Kind    Kind
	Op      string // the operation that failed, e.g. "BulirschFullJPL"
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s: %s", e.Op, e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As and pkg/errors.Cause to reach the
// underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// Cause implements the causer interface pkg/errors.Cause walks.
func (e *Error) Cause() error { return e.cause }

// newError constructs an *Error, wrapping cause (which may be nil) with
// github.com/pkg/errors so a later errors.Cause() call is meaningful.
func newError(op string, kind Kind, cause error, format string, args ...interface{}) *Error {
	var wrapped error
	if cause != nil {
		wrapped = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), cause: wrapped}
}
