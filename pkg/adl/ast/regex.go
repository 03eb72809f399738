package ast

import (
	"regexp"
	"sync/atomic"
)

// RegexMatch tests the string rendering of Value against a constant pattern.
// The pattern is compiled on first evaluation and cached on the node; an
// invalid pattern is therefore an evaluation-time error, not a parse error.
type RegexMatch struct {
	Span    Span   // Source span
	Value   Node   // Expression whose string form is matched
	Pattern string // Regular expression source, fixed at parse time
	Negate  bool   // True for NOT_MATCHES

	compiled atomic.Pointer[compiledPattern]
}

type compiledPattern struct {
	re  *regexp.Regexp
	err error
}

// CompiledPattern returns the compiled form of Pattern, compiling it on the
// first call. Concurrent first calls may both compile; the first to publish
// wins and every caller observes that single result from then on. A compile
// failure is cached the same way, so the node reports one stable error.
func (n *RegexMatch) CompiledPattern() (*regexp.Regexp, error) {
	if c := n.compiled.Load(); c != nil {
		return c.re, c.err
	}
	re, err := regexp.Compile(n.Pattern)
	entry := &compiledPattern{re: re, err: err}
	if !n.compiled.CompareAndSwap(nil, entry) {
		entry = n.compiled.Load()
	}
	return entry.re, entry.err
}
