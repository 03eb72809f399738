package eval

import (
	"fmt"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
)

// ErrorKind categorizes an evaluation failure.
type ErrorKind string

const (
	ErrTypeMismatch     ErrorKind = "type-mismatch"
	ErrDivisionByZero   ErrorKind = "division-by-zero"
	ErrUnknownFunction  ErrorKind = "unknown-function"
	ErrArityMismatch    ErrorKind = "arity-mismatch"
	ErrUnknownAttribute ErrorKind = "unknown-attribute"
	ErrLookupMiss       ErrorKind = "lookup-miss" // Provider had no entry; callers may treat as soft
	ErrInvalidPattern   ErrorKind = "invalid-pattern"
)

// Error is a structured evaluation failure pinned to the node that raised it.
type Error struct {
	Kind    ErrorKind
	Span    ast.Span
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("eval error at offset %d: %s", e.Span.Start, e.Message)
}

func errf(kind ErrorKind, span ast.Span, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	}
}
