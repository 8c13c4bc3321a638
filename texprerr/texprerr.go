// Package texprerr defines the small error-kind taxonomy used across the
// compiler pipeline (spec §7). Every stage wraps failures with one of
// these kinds so callers can errors.Is/As at the Kernel boundary instead
// of string-matching error messages — the same stdlib-first approach the
// example corpus uses everywhere (fmt.Errorf + %w, no custom framework).
package texprerr

import (
	"errors"
	"fmt"
)

// Kind classifies why a stage failed.
type Kind int

const (
	// Unsupported means the operator or argument combination has no lowering.
	Unsupported Kind = iota
	// Malformed means a binding is missing, a size is unknown, or a node
	// kind is unhandled.
	Malformed
	// Internal means a Kernel invariant was broken (mixed devices, a
	// missing output buffer, ...).
	Internal
	// BackendUnavailable means a required backend (LLVM) could not be found.
	BackendUnavailable
	// Runtime means an invalid configuration value or incompatible
	// feature combination was requested (bad loop level, missing
	// symbolic rank, random+broadcast, ...).
	Runtime
)

func (k Kind) String() string {
	switch k {
	case Unsupported:
		return "unsupported"
	case Malformed:
		return "malformed input"
	case Internal:
		return "internal assertion"
	case BackendUnavailable:
		return "backend unavailable"
	case Runtime:
		return "runtime constraint"
	default:
		return "unknown"
	}
}

// Error wraps a Kind, the stage that raised it, and an optional cause.
type Error struct {
	Kind  Kind
	Stage string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Stage, e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, texprerr.Sentinel(texprerr.Unsupported)) style
// checks against a Kind: any *Error target matches when its Kind equals e's.
func (e *Error) Is(target error) bool {
	var k *Error
	if errors.As(target, &k) {
		return e.Kind == k.Kind
	}
	return false
}

// New constructs a kinded error. stage names the component raising it
// (e.g. "shape-resolver", "binder", "lowering-dispatcher") matching the component
// names used throughout SPEC_FULL.md.
func New(kind Kind, stage, msg string) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: msg}
}

// Wrap is New plus a causing error, kept distinct via %w for errors.Is/As.
func Wrap(kind Kind, stage, msg string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: msg, Cause: cause}
}

// Sentinel returns a zero-message error of the given kind, used as the
// target of errors.Is(err, texprerr.Sentinel(texprerr.Malformed)).
func Sentinel(kind Kind) error {
	return &Error{Kind: kind}
}
