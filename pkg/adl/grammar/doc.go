// Package grammar models the runtime-editable ADL grammar: definitions as
// data, full-definition validation, and the versioned lifecycle registry.
//
// A grammar definition is an ordered set of named productions plus the set
// of enabled extensions. Productions are stored as text in a small EBNF
// dialect and parsed into term trees during validation. Validation is
// all-or-nothing and accumulating: a definition either yields an immutable
// Handle or is rejected with every duplicate rule, unresolved reference,
// precedence ambiguity, and termination hazard it contains. The termination
// checks (no leftmost-reference cycles, no repetition over a nullable body)
// are what let the parser promise completion in time bounded by input
// length for any accepted grammar.
//
// Precedence is policy, not data: the tier order (function calls and
// lookups tightest, then unary, multiplicative, additive, concatenation,
// comparison, logical) never changes across grammar edits. A definition
// decides only which operator symbols populate each tier, and the symbol
// policy in this package refuses symbols the evaluator has no operation
// for.
//
// The Registry assigns monotonically increasing versions and drives the
// lifecycle Draft -> Validated -> Active -> Superseded -> Archived.
// Activation swaps an atomic handle pointer, so a reader never observes a
// half-applied grammar and work pinned to an older handle finishes against
// it unchanged.
package grammar
