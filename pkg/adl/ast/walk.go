package ast

// Children returns the direct child nodes of n in source order.
// Leaf nodes return nil.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *BinaryOp:
		return []Node{n.Left, n.Right}
	case *UnaryOp:
		return []Node{n.Operand}
	case *Call:
		return n.Args
	case *Lookup:
		return []Node{n.Key}
	case *RegexMatch:
		return []Node{n.Value}
	case *Conditional:
		if n.Else != nil {
			return []Node{n.Cond, n.Then, n.Else}
		}
		return []Node{n.Cond, n.Then}
	case *List:
		return n.Elems
	case *Assignment:
		return []Node{n.Value}
	}
	return nil
}

// Walk traverses the tree rooted at n in pre-order, calling fn for each node.
// If fn returns false the children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, fn)
	}
}

// Depth returns the height of the tree rooted at n. A leaf has depth 1.
func Depth(n Node) int {
	if n == nil {
		return 0
	}
	max := 0
	for _, child := range Children(n) {
		if d := Depth(child); d > max {
			max = d
		}
	}
	return max + 1
}

// Identifiers returns the distinct attribute paths referenced anywhere in the
// tree, in first-appearance order. Useful for callers that want to know what
// a rule depends on before evaluating it.
func Identifiers(n Node) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(n, func(n Node) bool {
		if id, ok := n.(*Identifier); ok && !seen[id.Name] {
			seen[id.Name] = true
			out = append(out, id.Name)
		}
		return true
	})
	return out
}
