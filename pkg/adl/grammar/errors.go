package grammar

import (
	"fmt"
	"strings"
)

// ErrorKind categorizes a grammar validation failure.
type ErrorKind string

const (
	ErrDuplicateRule       ErrorKind = "duplicate-rule"       // Two productions share a name
	ErrUnresolvedReference ErrorKind = "unresolved-reference" // Reference to a production that does not exist
	ErrAmbiguousPrecedence ErrorKind = "ambiguous-precedence" // Operator claimed by two tiers, or conflicting associativity
	ErrLeftRecursion       ErrorKind = "left-recursion"       // Leftmost-reference cycle or zero-width repetition
	ErrMalformedRule       ErrorKind = "malformed-rule"       // Production text does not parse
)

// Error is one grammar validation failure, tied to the production that
// caused it.
type Error struct {
	Kind    ErrorKind // Category of failure
	Rule    string    // Name of the offending production (may be empty)
	Message string    // Human-readable description
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("grammar: %s: rule %q: %s", e.Kind, e.Rule, e.Message)
	}
	return fmt.Sprintf("grammar: %s: %s", e.Kind, e.Message)
}

// ErrorList accumulates validation failures so an edit session sees every
// problem with a definition at once, not just the first.
type ErrorList struct {
	Errors []*Error
}

// Add appends an error to the list.
func (el *ErrorList) Add(kind ErrorKind, rule, format string, args ...interface{}) {
	el.Errors = append(el.Errors, &Error{
		Kind:    kind,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	})
}

// HasErrors returns true if the list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// ByKind returns the errors of one kind.
func (el *ErrorList) ByKind(kind ErrorKind) []*Error {
	var out []*Error
	for _, e := range el.Errors {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "grammar definition rejected with %d error(s):", len(el.Errors))
	for _, e := range el.Errors {
		sb.WriteString("\n  ")
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// ToError returns the list as an error, or nil when it is empty.
func (el *ErrorList) ToError() error {
	if el.HasErrors() {
		return el
	}
	return nil
}
