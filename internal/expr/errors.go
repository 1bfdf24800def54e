// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package wraps exactly one of them
// and can be matched with errors.Is.
var (
	ErrSyntax                    = errors.New("syntax error")
	ErrInvalidArgumentName       = errors.New("invalid argument name")
	ErrMissingArgumentName       = errors.New("missing argument name")
	ErrDuplicateArgumentName     = errors.New("duplicate argument name")
	ErrNamedArgInPositionalQuery = errors.New("named argument in positional query")
	ErrUnknownArgument           = errors.New("unknown argument")
	ErrUnusedArgument            = errors.New("unused argument")
)

// Span locates a section of the parsed input. Start and End are byte offsets,
// Line and Column are 1-based and point at Start. The zero Span means the
// error has no useful location.
type Span struct {
	Start, End   int
	Line, Column int
}

// IsZero reports whether the span carries no location.
func (s Span) IsZero() bool {
	return s.Line == 0
}

func (s Span) String() string {
	if s.Line > 1 {
		return fmt.Sprintf("line %d, column %d", s.Line, s.Column)
	}
	return fmt.Sprintf("column %d", s.Column)
}

// Error is a diagnostic produced while parsing a template or its arguments,
// or while binding the arguments to the placeholders of a template.
type Error struct {
	// Kind is one of the Err* values of this package.
	Kind error
	// Names holds the argument names the error is about, if any. For
	// ErrUnusedArgument it lists every unused argument in declaration order.
	Names []string
	// Span locates the offending input.
	Span Span
	// Msg is the human readable description of the error.
	Msg string
}

func (e *Error) Error() string {
	if e.Span.IsZero() {
		return e.Msg
	}
	return e.Span.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func syntaxError(span Span, format string, args ...any) *Error {
	return &Error{Kind: ErrSyntax, Span: span, Msg: "syntax error: " + fmt.Sprintf(format, args...)}
}

func invalidArgumentNameError(span Span, left string) *Error {
	return &Error{Kind: ErrInvalidArgumentName, Span: span, Msg: fmt.Sprintf("invalid argument name %q", left)}
}

func missingArgumentNameError(span Span, value string) *Error {
	return &Error{Kind: ErrMissingArgumentName, Span: span, Msg: fmt.Sprintf("cannot infer argument name from %q, use name = value", value)}
}

func duplicateArgumentNameError(span Span, name string) *Error {
	return &Error{Kind: ErrDuplicateArgumentName, Names: []string{name}, Span: span, Msg: fmt.Sprintf("duplicate argument name %q", name)}
}

func namedArgInPositionalQueryError(span Span, name string) *Error {
	return &Error{Kind: ErrNamedArgInPositionalQuery, Names: []string{name}, Span: span, Msg: fmt.Sprintf("named argument %q in positional query", name)}
}

func unknownArgumentError(span Span, name string) *Error {
	return &Error{Kind: ErrUnknownArgument, Names: []string{name}, Span: span, Msg: fmt.Sprintf("argument not given: %s", name)}
}

func unusedArgumentError(names []string) *Error {
	return &Error{Kind: ErrUnusedArgument, Names: names, Msg: "unused arguments: " + strings.Join(names, ", ")}
}
