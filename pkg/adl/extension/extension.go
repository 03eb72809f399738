// Package extension defines the pluggable bundles the language is assembled
// from. Each descriptor names the grammar productions an extension contributes,
// the AST node kinds those productions introduce, and the built-in functions it
// adds to the evaluator's registry. A grammar definition enables an extension
// by listing its id; Compose builds a complete definition for any enabled
// subset, and DefaultDefinition is the shipped grammar with all six.
//
// Grammar validation does not know the descriptor set, so callers accepting
// definitions from outside should run Verify on the extension ids first.
package extension

import (
	"fmt"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/eval"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// Descriptor describes one language extension. Descriptors are plain data and
// immutable; the constructor functions below return fresh copies.
type Descriptor struct {
	ID          string
	Description string
	Rules       []grammar.Production // Operator-set and form rules the extension owns
	Nodes       []string             // AST node kinds the extension introduces
	Funcs       []eval.Func          // Built-ins merged into the registry when enabled
}

// Arithmetic contributes numeric literals, the additive, multiplicative, and
// power tiers, numeric sign operators, and the math built-ins.
func Arithmetic() Descriptor {
	return Descriptor{
		ID:          grammar.ExtArithmetic,
		Description: "numeric literals, arithmetic operators, math built-ins",
		Rules: []grammar.Production{
			{Name: "add_op", Text: "'+' | '-'", Extension: grammar.ExtArithmetic},
			{Name: "mul_op", Text: "'*' | '/' | '%'", Extension: grammar.ExtArithmetic},
			{Name: "pow_op", Text: "'**'", Extension: grammar.ExtArithmetic},
			{Name: "sign_op", Text: "'-' | '+'", Extension: grammar.ExtArithmetic},
		},
		Nodes: []string{"Literal", "BinaryOp", "UnaryOp"},
		Funcs: eval.NumberFunctions(),
	}
}

// Strings contributes string literals, the concatenation tier, and the string
// built-ins.
func Strings() Descriptor {
	return Descriptor{
		ID:          grammar.ExtStrings,
		Description: "string literals, & concatenation, string built-ins",
		Rules: []grammar.Production{
			{Name: "concat_op", Text: "'&'", Extension: grammar.ExtStrings},
		},
		Nodes: []string{"Literal", "BinaryOp"},
		Funcs: eval.StringFunctions(),
	}
}

// Functions contributes call syntax and the core built-ins: predicates,
// conversions, and list access.
func Functions() Descriptor {
	return Descriptor{
		ID:          grammar.ExtFunctions,
		Description: "NAME(args) call syntax, core built-ins",
		Rules: []grammar.Production{
			{Name: "call", Text: "identifier '(' (expression (',' expression)*)? ')'", Extension: grammar.ExtFunctions},
		},
		Nodes: []string{"Call"},
		Funcs: eval.CoreFunctions(),
	}
}

// Lookups contributes the LOOKUP form. The evaluator routes it to the
// configured provider, so the descriptor carries no functions of its own.
func Lookups() Descriptor {
	return Descriptor{
		ID:          grammar.ExtLookups,
		Description: "LOOKUP(key, table) external table access",
		Rules: []grammar.Production{
			{Name: "lookup_call", Text: "'LOOKUP' '(' expression ',' string ')'", Extension: grammar.ExtLookups},
		},
		Nodes: []string{"Lookup"},
	}
}

// Attributes contributes late-bound identifier resolution. Identifiers are a
// lexical builtin, so the extension gates behavior without adding rules.
func Attributes() Descriptor {
	return Descriptor{
		ID:          grammar.ExtAttributes,
		Description: "dotted attribute references resolved at evaluation time",
		Nodes:       []string{"Identifier"},
	}
}

// Regex contributes the match operators and the MATCHES built-in.
func Regex() Descriptor {
	return Descriptor{
		ID:          grammar.ExtRegex,
		Description: "~, MATCHES, NOT_MATCHES pattern operators",
		Rules: []grammar.Production{
			{Name: "match_op", Text: "'~' | 'MATCHES' | 'NOT_MATCHES'", Extension: grammar.ExtRegex},
		},
		Nodes: []string{"RegexMatch"},
		Funcs: eval.RegexFunctions(),
	}
}

// All returns every descriptor in canonical order.
func All() []Descriptor {
	return []Descriptor{
		Arithmetic(),
		Strings(),
		Functions(),
		Lookups(),
		Attributes(),
		Regex(),
	}
}

// IDs returns the extension ids in canonical order.
func IDs() []string {
	all := All()
	out := make([]string, len(all))
	for i, d := range all {
		out[i] = d.ID
	}
	return out
}

// ByID returns the descriptor for an extension id.
func ByID(id string) (Descriptor, bool) {
	for _, d := range All() {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Verify checks that every id names a known extension.
func Verify(ids []string) error {
	for _, id := range ids {
		if _, ok := ByID(id); !ok {
			return &UnknownError{ID: id}
		}
	}
	return nil
}

// FunctionsFor returns the built-ins contributed by the given extensions, in
// descriptor order, ready for eval.NewRegistry.
func FunctionsFor(ids ...string) []eval.Func {
	enabled := make(map[string]bool, len(ids))
	for _, id := range ids {
		enabled[id] = true
	}
	var out []eval.Func
	for _, d := range All() {
		if enabled[d.ID] {
			out = append(out, d.Funcs...)
		}
	}
	return out
}

// UnknownError reports an extension id with no descriptor.
type UnknownError struct {
	ID string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown extension %q", e.ID)
}
