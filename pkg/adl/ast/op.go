package ast

// Op identifies the semantic operation of a BinaryOp or UnaryOp node.
// Which source-level symbols map onto which Op is grammar data; the Op set
// itself is fixed so the evaluator can dispatch without consulting the grammar.
type Op int

// Binary operators, grouped by the precedence tier they conventionally occupy.
const (
	OpInvalid Op = iota

	// Power tier (right-associative).
	OpPow

	// Multiplicative tier.
	OpMul
	OpDiv
	OpMod

	// Additive tier.
	OpAdd
	OpSub

	// Concatenation tier.
	OpConcat

	// Comparison tier (non-associative).
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpContains
	OpStartsWith
	OpEndsWith
	OpIn
	OpNotIn

	// Logical tiers (short-circuit).
	OpAnd
	OpOr

	// Unary operators.
	OpNeg
	OpPos
	OpNot
)

var opNames = map[Op]string{
	OpInvalid:    "invalid",
	OpPow:        "**",
	OpMul:        "*",
	OpDiv:        "/",
	OpMod:        "%",
	OpAdd:        "+",
	OpSub:        "-",
	OpConcat:     "&",
	OpEq:         "==",
	OpNe:         "!=",
	OpLt:         "<",
	OpLe:         "<=",
	OpGt:         ">",
	OpGe:         ">=",
	OpContains:   "CONTAINS",
	OpStartsWith: "STARTS_WITH",
	OpEndsWith:   "ENDS_WITH",
	OpIn:         "IN",
	OpNotIn:      "NOT_IN",
	OpAnd:        "AND",
	OpOr:         "OR",
	OpNeg:        "-",
	OpPos:        "+",
	OpNot:        "NOT",
}

// String returns the canonical source-level spelling of the operator.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "invalid"
}

// IsUnary returns true for operators that take a single operand.
func (op Op) IsUnary() bool {
	switch op {
	case OpNeg, OpPos, OpNot:
		return true
	}
	return false
}

// IsComparison returns true for operators in the non-associative comparison tier.
func (op Op) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpContains, OpStartsWith, OpEndsWith, OpIn, OpNotIn:
		return true
	}
	return false
}
