package ast

import (
	"strings"
)

// Sexpr renders the tree in the S-expression surface syntax. The output is
// accepted by the S-expression reader and produces a structurally equal tree.
func Sexpr(n Node) string {
	var b strings.Builder
	writeSexpr(&b, n)
	return b.String()
}

func writeSexpr(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Literal:
		writeLiteral(b, n)
	case *Identifier:
		b.WriteString(n.Name)
	case *BinaryOp:
		writeSexprForm(b, sexprOpName(n.Op), n.Left, n.Right)
	case *UnaryOp:
		writeSexprForm(b, sexprOpName(n.Op), n.Operand)
	case *Call:
		args := make([]Node, len(n.Args))
		copy(args, n.Args)
		writeSexprForm(b, strings.ToLower(n.Name), args...)
	case *Lookup:
		b.WriteString("(lookup ")
		writeSexpr(b, n.Key)
		b.WriteByte(' ')
		b.WriteString(quoteString(n.Table))
		b.WriteByte(')')
	case *RegexMatch:
		head := "~"
		if n.Negate {
			head = "not_matches"
		}
		b.WriteByte('(')
		b.WriteString(head)
		b.WriteByte(' ')
		writeSexpr(b, n.Value)
		b.WriteByte(' ')
		b.WriteString(quoteString(n.Pattern))
		b.WriteByte(')')
	case *Conditional:
		if n.Else != nil {
			writeSexprForm(b, "if", n.Cond, n.Then, n.Else)
		} else {
			writeSexprForm(b, "if", n.Cond, n.Then)
		}
	case *List:
		writeSexprForm(b, "list", n.Elems...)
	case *Assignment:
		b.WriteString("(assign ")
		b.WriteString(n.Target.Name)
		b.WriteByte(' ')
		writeSexpr(b, n.Value)
		b.WriteByte(')')
	}
}

func writeSexprForm(b *strings.Builder, head string, args ...Node) {
	b.WriteByte('(')
	b.WriteString(head)
	for _, arg := range args {
		b.WriteByte(' ')
		writeSexpr(b, arg)
	}
	b.WriteByte(')')
}

func sexprOpName(op Op) string {
	switch op {
	case OpNot:
		return "not"
	case OpNeg:
		return "-"
	case OpPos:
		return "+"
	}
	return strings.ToLower(op.String())
}
