package ast

// Equal reports whether two trees are structurally identical: same node
// kinds, operators, names, and literal values. Source spans are ignored,
// so the infix and S-expression renderings of one expression compare equal.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case *Literal:
		b, ok := b.(*Literal)
		if !ok || a.Kind != b.Kind {
			return false
		}
		switch a.Kind {
		case LitNumber:
			return a.Num == b.Num
		case LitString:
			return a.Str == b.Str
		case LitBool:
			return a.Bool == b.Bool
		case LitNull:
			return true
		}
		return false
	case *Identifier:
		b, ok := b.(*Identifier)
		return ok && a.Name == b.Name
	case *BinaryOp:
		b, ok := b.(*BinaryOp)
		return ok && a.Op == b.Op && Equal(a.Left, b.Left) && Equal(a.Right, b.Right)
	case *UnaryOp:
		b, ok := b.(*UnaryOp)
		return ok && a.Op == b.Op && Equal(a.Operand, b.Operand)
	case *Call:
		b, ok := b.(*Call)
		if !ok || a.Name != b.Name || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	case *Lookup:
		b, ok := b.(*Lookup)
		return ok && a.Table == b.Table && Equal(a.Key, b.Key)
	case *RegexMatch:
		b, ok := b.(*RegexMatch)
		return ok && a.Pattern == b.Pattern && a.Negate == b.Negate && Equal(a.Value, b.Value)
	case *Conditional:
		b, ok := b.(*Conditional)
		return ok && Equal(a.Cond, b.Cond) && Equal(a.Then, b.Then) && Equal(a.Else, b.Else)
	case *List:
		b, ok := b.(*List)
		if !ok || len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case *Assignment:
		b, ok := b.(*Assignment)
		return ok && a.Target.Name == b.Target.Name && Equal(a.Value, b.Value)
	}
	return false
}
