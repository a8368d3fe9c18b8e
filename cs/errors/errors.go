// Package errors implements the CS error taxonomy (spec §7), in the shape
// of cuelang.org/go/cue/errors: a small Code enum, a concrete *Error type,
// and golang.org/x/xerrors-compatible wrapping so callers can use
// errors.Is/errors.As the way internal/core/compile/compile.go and
// internal/internal.go do against xerrors.Is.
package errors

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Code is the taxonomic error kind from spec §7.
type Code int

const (
	Unknown Code = iota
	Syntax
	Grammar
	Internal
	Unsupported
	Undefined
	Redefinition
	AlreadyBound
	ArgumentCountMismatch
	LanguageError
	Fatal
)

func (c Code) String() string {
	switch c {
	case Syntax:
		return "Syntax"
	case Grammar:
		return "Grammar"
	case Internal:
		return "Internal"
	case Unsupported:
		return "Unsupported"
	case Undefined:
		return "Undefined"
	case Redefinition:
		return "Redefinition"
	case AlreadyBound:
		return "AlreadyBound"
	case ArgumentCountMismatch:
		return "ArgumentCountMismatch"
	case LanguageError:
		return "LanguageError"
	case Fatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Error is the concrete error value propagated through the evaluator and
// bytecode generator. File/Line/Raw are populated only once, by the
// statement runner that wraps a generic failure (spec §7's propagation
// policy): "already-wrapped runtime exceptions re-propagate".
type Error struct {
	Code    Code
	Message string

	File string
	Line int
	Raw  string

	wrapped bool

	// Err is the underlying cause, if this Error wraps another (e.g. a
	// generic panic recovered by a statement runner).
	Err error
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports xerrors.Is/errors.Is matching purely on Code, the way
// callers in this module compare against a sentinel *Error built with New.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Wrapped reports whether this error already carries File/Line/Raw
// context, so a statement runner wraps a given failure exactly once
// (spec §7).
func (e *Error) Wrapped() bool { return e.wrapped }

// New constructs an unwrapped error of the given code.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches file/line/raw-source context to err exactly once,
// producing the "runtime exception" spec §7 describes. If err is already
// a wrapped *Error, it is returned unchanged so callers along the
// propagation chain never double-wrap (spec §7: "already-wrapped runtime
// exceptions re-propagate").
func Wrap(err error, file string, line int, raw string) *Error {
	if ce, ok := err.(*Error); ok {
		if ce.wrapped {
			return ce
		}
		return &Error{
			Code: ce.Code, Message: ce.Message,
			File: file, Line: line, Raw: raw,
			wrapped: true, Err: ce.Err,
		}
	}
	return &Error{
		Code: Internal, Message: err.Error(),
		File: file, Line: line, Raw: raw,
		wrapped: true, Err: err,
	}
}

// Is reports whether err is a *Error of the given code, unwrapping via
// xerrors along the way.
func Is(err error, code Code) bool {
	var ce *Error
	return xerrors.As(err, &ce) && ce.Code == code
}

// As is xerrors.As, re-exported so callers need only import this package.
func As(err error, target interface{}) bool { return xerrors.As(err, target) }
