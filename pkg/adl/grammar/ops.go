package grammar

import (
	"strings"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
)

// TierOperator is the operation a surface symbol performs within a tier.
// Regex marks the symbols that build a RegexMatch node instead of a plain
// BinaryOp; for those, Negate inverts the match.
type TierOperator struct {
	Op     ast.Op
	Regex  bool
	Negate bool
}

// The fixed symbol policy: which operations a symbol may denote in each tier.
// Grammar data chooses which of these symbols an edition of the grammar
// actually enables; it cannot move a symbol to a different tier or invent an
// operation the evaluator does not know.
var tierOperators = map[string]map[string]TierOperator{
	TierOr: {
		"OR": {Op: ast.OpOr},
		"||": {Op: ast.OpOr},
	},
	TierAnd: {
		"AND": {Op: ast.OpAnd},
		"&&":  {Op: ast.OpAnd},
	},
	TierComparison: {
		"==":          {Op: ast.OpEq},
		"=":           {Op: ast.OpEq},
		"!=":          {Op: ast.OpNe},
		"<>":          {Op: ast.OpNe},
		"<":           {Op: ast.OpLt},
		"<=":          {Op: ast.OpLe},
		">":           {Op: ast.OpGt},
		">=":          {Op: ast.OpGe},
		"CONTAINS":    {Op: ast.OpContains},
		"STARTS_WITH": {Op: ast.OpStartsWith},
		"ENDS_WITH":   {Op: ast.OpEndsWith},
		"IN":          {Op: ast.OpIn},
		"NOT_IN":      {Op: ast.OpNotIn},
		"~":           {Regex: true},
		"MATCHES":     {Regex: true},
		"NOT_MATCHES": {Regex: true, Negate: true},
	},
	TierConcat: {
		"&": {Op: ast.OpConcat},
	},
	TierAdditive: {
		"+": {Op: ast.OpAdd},
		"-": {Op: ast.OpSub},
	},
	TierMultiplicative: {
		"*": {Op: ast.OpMul},
		"/": {Op: ast.OpDiv},
		"%": {Op: ast.OpMod},
	},
	TierPower: {
		"**": {Op: ast.OpPow},
	},
}

// Unary symbols live outside the binary tier chain.
var unaryOperators = map[string]ast.Op{
	"-":   ast.OpNeg,
	"+":   ast.OpPos,
	"NOT": ast.OpNot,
	"!":   ast.OpNot,
}

// LookupOperator resolves a surface symbol within a binary tier. Word
// symbols are matched case-insensitively.
func LookupOperator(tier, symbol string) (TierOperator, bool) {
	ops, ok := tierOperators[tier]
	if !ok {
		return TierOperator{}, false
	}
	op, ok := ops[normalizeSymbol(symbol)]
	return op, ok
}

// LookupUnary resolves a surface symbol for the unary tier.
func LookupUnary(symbol string) (ast.Op, bool) {
	op, ok := unaryOperators[normalizeSymbol(symbol)]
	return op, ok
}

// TierForSymbol returns the binary tier the fixed policy assigns a symbol
// to, or "" if the symbol denotes no binary operation.
func TierForSymbol(symbol string) string {
	canon := normalizeSymbol(symbol)
	for _, tier := range TierOrder {
		if _, ok := tierOperators[tier][canon]; ok {
			return tier
		}
	}
	return ""
}

// KnownTier returns true for the fixed tier names, including "unary".
func KnownTier(name string) bool {
	if name == TierUnary {
		return true
	}
	_, ok := tierOperators[name]
	return ok
}

func normalizeSymbol(s string) string {
	if isWordSymbol(s) {
		return strings.ToUpper(s)
	}
	return s
}

func isWordSymbol(s string) bool {
	for _, r := range s {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			continue
		}
		return false
	}
	return len(s) > 0
}
