// Package parser turns a validated grammar handle into an executable
// parser program, and runs that program over rule text to build syntax
// trees.
//
// Compile consumes a grammar.Handle and emits a Program: the precedence
// tiers in fixed policy order with each tier's operator symbols, the
// unary symbol set, the enabled extensions, and the reserved words. A
// validated handle always compiles; every check that could fail has
// already run in the grammar package. Parsing is a precedence climb over
// the program's tiers, so an edited grammar changes behavior the moment a
// new handle is compiled, with no generated code in between.
//
// Two surfaces produce the same trees. Parse reads the infix form
// (arithmetic, IF/THEN/ELSE, function calls, LOOKUP, regex literals).
// ParseSexpr reads the parenthesized prefix form used by tooling. Either
// surface yields nodes a single evaluator and printer understand, and a
// printed tree parses back to an equal tree.
//
// Errors carry the byte span, what was expected, and what was found.
// A failed parse never returns a partial tree.
package parser
