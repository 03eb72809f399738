// Package eval executes ADL syntax trees.
//
// Evaluation is pure: a tree plus an AttributeContext plus the provider's
// state fully determine the result, and nothing is mutated along the way
// except the per-node regex compile cache. AND, OR, and conditionals are
// lazy; everything else is strict. The only implicit conversion in the
// language is Value.Display, applied by '&' and CONCAT; there is no
// truthiness, and ordering mixed kinds is a type error while equality across
// kinds is simply false.
//
// Identifier resolution is late-bound through AttributeContext, so one tree
// serves any number of records. LOOKUP goes through a Provider; a missing
// entry surfaces as a lookup-miss error the caller can choose to treat as
// soft. Failures are *Error values carrying a kind and the offending node's
// span; division by zero is always reported, never NaN.
//
// The built-in function registry (CONCAT, SUBSTRING, MIN, SUM, TO_NUMBER,
// and the rest of the recovered set) is grouped by the extension that
// contributes each function, so an engine can assemble exactly the registry
// its active grammar promises.
package eval
