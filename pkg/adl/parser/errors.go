package parser

import (
	"fmt"
	"strings"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
)

// ErrorKind categorizes a parse failure.
type ErrorKind string

const (
	ErrUnexpectedToken     ErrorKind = "unexpected-token"
	ErrUnterminatedLiteral ErrorKind = "unterminated-literal"
	ErrInvalidPattern      ErrorKind = "invalid-pattern" // Regex literal malformed at the surface level
)

// Error is a structured parse failure: the exact offending span, what the
// parser would have accepted there, and what it found instead. A parse call
// returns either one complete tree or one of these, never a partial tree.
type Error struct {
	Kind     ErrorKind
	Span     ast.Span // Offending source range
	Expected []string // Token descriptions acceptable at this point
	Found    string   // Description of what was found
	Message  string   // Used when Expected/Found phrasing does not fit
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "parse error at offset %d", e.Span.Start)
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if len(e.Expected) > 0 {
		fmt.Fprintf(&sb, ": expected %s", strings.Join(e.Expected, " or "))
		if e.Found != "" {
			fmt.Fprintf(&sb, ", found %s", e.Found)
		}
	} else if e.Found != "" && e.Message == "" {
		fmt.Fprintf(&sb, ": unexpected %s", e.Found)
	}
	return sb.String()
}

func unexpected(tok Token, expected ...string) *Error {
	return &Error{
		Kind:     ErrUnexpectedToken,
		Span:     tok.Span,
		Expected: expected,
		Found:    tok.describe(),
	}
}
