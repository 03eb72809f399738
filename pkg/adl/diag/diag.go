// Package diag turns the engine's structured errors into editor-facing
// diagnostics: one Report per problem with a severity, a stable code, a
// line/column position, and, where a near-miss against the known symbols
// exists, a suggestion. Codes are "family/kind" strings (parse/unexpected-token,
// eval/unknown-function) so front ends can switch on them without string
// matching messages.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/eval"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/parser"
)

// Severity grades a report.
type Severity int

// Severity levels.
const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return "invalid"
}

// Report is one diagnostic. Line and Column are 1-based and derived from the
// source text; they are zero for grammar reports, which point at productions
// rather than source positions.
type Report struct {
	Severity   Severity
	Code       string   // "family/kind", e.g. "eval/unknown-function"
	Span       ast.Span // Offending source range, zero for grammar reports
	Line       int
	Column     int
	Message    string
	Suggestion string // Optional fix hint
}

// String renders the report on one line: position, severity, code, message,
// and the suggestion in parentheses when present.
func (r Report) String() string {
	var sb strings.Builder
	if r.Line > 0 {
		fmt.Fprintf(&sb, "%d:%d ", r.Line, r.Column)
	}
	fmt.Fprintf(&sb, "%s %s: %s", r.Severity, r.Code, r.Message)
	if r.Suggestion != "" {
		fmt.Fprintf(&sb, " (%s)", r.Suggestion)
	}
	return sb.String()
}

// FromGrammar converts a Validate failure into reports, one per accumulated
// error.
func FromGrammar(err error) []Report {
	var list *grammar.ErrorList
	if errors.As(err, &list) {
		out := make([]Report, 0, len(list.Errors))
		for _, e := range list.Errors {
			out = append(out, grammarReport(e))
		}
		return out
	}
	var single *grammar.Error
	if errors.As(err, &single) {
		return []Report{grammarReport(single)}
	}
	return []Report{{
		Severity: SeverityError,
		Code:     "grammar/error",
		Message:  err.Error(),
	}}
}

func grammarReport(e *grammar.Error) Report {
	msg := e.Message
	if e.Rule != "" {
		msg = fmt.Sprintf("rule %q: %s", e.Rule, e.Message)
	}
	return Report{
		Severity: SeverityError,
		Code:     "grammar/" + string(e.Kind),
		Message:  msg,
	}
}

// FromParse converts a parse failure into a report positioned in src.
// The dictionary may be nil.
func FromParse(src string, e *parser.Error, dict SymbolDictionary) Report {
	pos := ast.PositionFor(src, e.Span.Start)
	return Report{
		Severity: SeverityError,
		Code:     "parse/" + string(e.Kind),
		Span:     e.Span,
		Line:     pos.Line,
		Column:   pos.Column,
		Message:  parseMessage(e),
	}
}

func parseMessage(e *parser.Error) string {
	var parts []string
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(e.Expected) > 0 {
		clause := "expected " + strings.Join(e.Expected, " or ")
		if e.Found != "" {
			clause += ", found " + e.Found
		}
		parts = append(parts, clause)
	} else if e.Found != "" && e.Message == "" {
		parts = append(parts, "unexpected "+e.Found)
	}
	if len(parts) == 0 {
		return "invalid expression"
	}
	return strings.Join(parts, ": ")
}

// FromEval converts an evaluation failure into a report positioned in src.
// Unknown functions and attributes get a nearest-symbol suggestion from the
// dictionary; lookup misses are graded warnings because callers commonly
// treat absent reference data as a soft condition.
func FromEval(src string, e *eval.Error, dict SymbolDictionary) Report {
	pos := ast.PositionFor(src, e.Span.Start)
	r := Report{
		Severity: SeverityError,
		Code:     "eval/" + string(e.Kind),
		Span:     e.Span,
		Line:     pos.Line,
		Column:   pos.Column,
		Message:  e.Message,
	}
	if e.Kind == eval.ErrLookupMiss {
		r.Severity = SeverityWarning
	}
	if dict == nil {
		return r
	}
	switch e.Kind {
	case eval.ErrUnknownFunction:
		if name, ok := quotedName(e.Message); ok {
			r.Suggestion = suggestSymbol(name, dict.Functions(), "functions")
		}
	case eval.ErrUnknownAttribute:
		if name, ok := quotedName(e.Message); ok {
			r.Suggestion = suggestSymbol(name, dict.Attributes(), "attributes")
		}
	}
	return r
}

// quotedName lifts the first quoted symbol out of an error message. The eval
// package quotes offending names with %q, and none of them contain quotes.
func quotedName(msg string) (string, bool) {
	i := strings.IndexByte(msg, '"')
	if i < 0 {
		return "", false
	}
	j := strings.IndexByte(msg[i+1:], '"')
	if j < 0 {
		return "", false
	}
	return msg[i+1 : i+1+j], true
}
