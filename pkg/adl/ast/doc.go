// Package ast defines the Abstract Syntax Tree for ADL (Attribute Derivation
// Language) expressions.
//
// Both concrete syntaxes (infix and S-expression) compile to this one tree, so
// everything downstream of parsing (evaluation, diagnostics, formatting) is
// surface-agnostic. Nodes carry byte-offset spans into the original source for
// position-accurate error reporting.
//
// # Core Types
//
// Node: interface implemented by every node
//
// Literal, Identifier, BinaryOp, UnaryOp, Call, Lookup, RegexMatch,
// Conditional, List, Assignment: the node variants
//
// Op: semantic operator identity for BinaryOp/UnaryOp
//
// Span, Position: byte ranges and derived line/column pairs
//
// # Basic Usage
//
// Trees are built by pkg/adl/parser and consumed read-only:
//
//	node, err := parser.Parse(`2 + 3 * 4`, program)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(ast.Format(node))      // "2 + 3 * 4"
//	fmt.Println(ast.Sexpr(node))       // "(+ 2 (* 3 4))"
//	fmt.Println(ast.Identifiers(node)) // attribute paths the rule reads
//
// The only mutable state on a tree is the compiled-pattern cache on
// RegexMatch, which is published atomically exactly once.
package ast
