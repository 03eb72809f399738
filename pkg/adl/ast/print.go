package ast

import (
	"strconv"
	"strings"
)

// Precedence tiers used for minimal parenthesisation when printing.
// Higher binds tighter. These mirror the fixed tier policy the parser
// applies; only the symbol-to-tier assignment is grammar data.
const (
	tierCond = iota
	tierOr
	tierAnd
	tierCompare
	tierConcat
	tierAdd
	tierMul
	tierPow
	tierUnary
	tierPrimary
)

func opTier(op Op) int {
	switch op {
	case OpOr:
		return tierOr
	case OpAnd:
		return tierAnd
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpContains, OpStartsWith, OpEndsWith, OpIn, OpNotIn:
		return tierCompare
	case OpConcat:
		return tierConcat
	case OpAdd, OpSub:
		return tierAdd
	case OpMul, OpDiv, OpMod:
		return tierMul
	case OpPow:
		return tierPow
	case OpNeg, OpPos, OpNot:
		return tierUnary
	}
	return tierPrimary
}

// Format renders the tree as canonical infix source. The output reparses to a
// structurally equal tree under the default grammar: parentheses are emitted
// exactly where the fixed precedence policy requires them.
func Format(n Node) string {
	var b strings.Builder
	writeNode(&b, n, tierCond)
	return b.String()
}

func writeNode(b *strings.Builder, n Node, ctx int) {
	switch n := n.(type) {
	case *Literal:
		writeLiteral(b, n)
	case *Identifier:
		b.WriteString(n.Name)
	case *BinaryOp:
		writeBinary(b, n, ctx)
	case *UnaryOp:
		paren := ctx > tierUnary
		if paren {
			b.WriteByte('(')
		}
		b.WriteString(n.Op.String())
		if n.Op == OpNot {
			b.WriteByte(' ')
		}
		writeNode(b, n.Operand, tierUnary)
		if paren {
			b.WriteByte(')')
		}
	case *Call:
		b.WriteString(strings.ToUpper(n.Name))
		b.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeNode(b, arg, tierCond)
		}
		b.WriteByte(')')
	case *Lookup:
		b.WriteString("LOOKUP(")
		writeNode(b, n.Key, tierCond)
		b.WriteString(", ")
		b.WriteString(quoteString(n.Table))
		b.WriteByte(')')
	case *RegexMatch:
		paren := ctx > tierCompare
		if paren {
			b.WriteByte('(')
		}
		writeNode(b, n.Value, tierConcat)
		if n.Negate {
			b.WriteString(" NOT_MATCHES ")
		} else {
			b.WriteString(" ~ ")
		}
		writeRegex(b, n.Pattern)
		if paren {
			b.WriteByte(')')
		}
	case *Conditional:
		paren := ctx > tierCond
		if paren {
			b.WriteByte('(')
		}
		b.WriteString("IF ")
		writeNode(b, n.Cond, tierOr)
		b.WriteString(" THEN ")
		if n.Else != nil {
			writeNode(b, n.Then, tierOr)
			b.WriteString(" ELSE ")
			writeNode(b, n.Else, tierCond)
		} else {
			writeNode(b, n.Then, tierCond)
		}
		if paren {
			b.WriteByte(')')
		}
	case *List:
		b.WriteByte('[')
		for i, el := range n.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			writeNode(b, el, tierCond)
		}
		b.WriteByte(']')
	case *Assignment:
		b.WriteString(n.Target.Name)
		b.WriteString(" = ")
		writeNode(b, n.Value, tierCond)
	}
}

func writeBinary(b *strings.Builder, n *BinaryOp, ctx int) {
	tier := opTier(n.Op)
	paren := tier < ctx
	if paren {
		b.WriteByte('(')
	}
	// Comparison is non-associative and power is right-associative; everything
	// else associates left.
	leftCtx, rightCtx := tier, tier+1
	if n.Op == OpPow {
		leftCtx, rightCtx = tier+1, tier
	}
	if n.Op.IsComparison() {
		leftCtx, rightCtx = tier+1, tier+1
	}
	writeNode(b, n.Left, leftCtx)
	b.WriteByte(' ')
	b.WriteString(n.Op.String())
	b.WriteByte(' ')
	writeNode(b, n.Right, rightCtx)
	if paren {
		b.WriteByte(')')
	}
}

func writeLiteral(b *strings.Builder, n *Literal) {
	switch n.Kind {
	case LitNumber:
		b.WriteString(FormatNumber(n.Num))
	case LitString:
		b.WriteString(quoteString(n.Str))
	case LitBool:
		if n.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case LitNull:
		b.WriteString("null")
	}
}

func writeRegex(b *strings.Builder, pattern string) {
	b.WriteByte('/')
	for _, r := range pattern {
		if r == '/' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('/')
}

// FormatNumber renders a number the way the language spells it: integral
// values without a fractional part, everything else in shortest round-trip
// form.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
