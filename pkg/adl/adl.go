// Package adl is the one-call surface over the expression language: parse and
// evaluate against the shipped default grammar without standing up a registry
// or an engine. Hosts that edit grammars at runtime use pkg/rules instead;
// everything here delegates to the same subpackages.
package adl

import (
	"context"
	"sync"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/eval"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/extension"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/parser"
)

var (
	defaultOnce sync.Once
	defaultProg *parser.Program
)

// DefaultProgram returns the parser program compiled from the default
// grammar. The program is immutable and shared; the first call compiles it.
func DefaultProgram() *parser.Program {
	defaultOnce.Do(func() {
		handle, err := grammar.Validate(extension.DefaultDefinition())
		if err != nil {
			// The default definition is package-owned constant data.
			panic("adl: default grammar rejected: " + err.Error())
		}
		defaultProg = parser.Compile(handle)
	})
	return defaultProg
}

// Parse parses an infix expression against the default grammar.
func Parse(text string) (ast.Node, error) {
	node, perr := parser.Parse(text, DefaultProgram())
	if perr != nil {
		return nil, perr
	}
	return node, nil
}

// ParseSexpr parses an S-expression against the default grammar. The tree it
// builds is structurally identical to the equivalent infix form's.
func ParseSexpr(text string) (ast.Node, error) {
	node, perr := parser.ParseSexpr(text, DefaultProgram())
	if perr != nil {
		return nil, perr
	}
	return node, nil
}

// Evaluate computes a parsed expression against the attribute context, with
// the full built-in function set. Options configure lookups or replace the
// registry.
func Evaluate(ctx context.Context, node ast.Node, attrs eval.AttributeContext, opts ...eval.Option) (eval.Value, error) {
	v, eerr := eval.New(opts...).Evaluate(ctx, node, attrs)
	if eerr != nil {
		return eval.Null(), eerr
	}
	return v, nil
}

// ParseAndEvaluate parses an infix expression and evaluates it in one call.
func ParseAndEvaluate(ctx context.Context, text string, attrs eval.AttributeContext, opts ...eval.Option) (eval.Value, error) {
	node, err := Parse(text)
	if err != nil {
		return eval.Null(), err
	}
	return Evaluate(ctx, node, attrs, opts...)
}
