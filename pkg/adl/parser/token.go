package parser

import (
	"fmt"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
)

// Kind identifies a token class produced by the lexer.
type Kind int

// Token kinds.
const (
	TokEOF Kind = iota
	TokNumber
	TokString
	TokIdent
	TokOperator // Punctuation operator (+ - * == ~ && ...)
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokComma
	TokRegex // Produced only on explicit request after a match operator
)

var kindNames = map[Kind]string{
	TokEOF:      "end of input",
	TokNumber:   "number",
	TokString:   "string",
	TokIdent:    "identifier",
	TokOperator: "operator",
	TokLParen:   "'('",
	TokRParen:   "')'",
	TokLBracket: "'['",
	TokRBracket: "']'",
	TokComma:    "','",
	TokRegex:    "regex",
}

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Token is one lexeme with its source span. Num holds the decoded value for
// TokNumber; Str holds the decoded value for TokString and the pattern text
// for TokRegex.
type Token struct {
	Kind   Kind
	Lexeme string // Raw source text
	Span   ast.Span
	Num    float64 // Valid for TokNumber
	Str    string  // Valid for TokString and TokRegex
}

// describe renders the token for "found ..." diagnostics.
func (t Token) describe() string {
	switch t.Kind {
	case TokEOF:
		return "end of input"
	case TokString:
		return fmt.Sprintf("string %q", t.Str)
	default:
		return fmt.Sprintf("%q", t.Lexeme)
	}
}
