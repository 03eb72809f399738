package ast

// Node is implemented by every AST node. The tree is immutable once built:
// parsers construct it, evaluators and printers only read it. The single
// exception is the compiled-pattern cache on RegexMatch, which is written
// at most once through an atomic pointer.
type Node interface {
	// Pos returns the source span the node was parsed from.
	Pos() Span

	node()
}

// LiteralKind discriminates the value stored in a Literal node.
type LiteralKind int

// Literal kinds.
const (
	LitNumber LiteralKind = iota
	LitString
	LitBool
	LitNull
)

// String returns the kind name.
func (k LiteralKind) String() string {
	switch k {
	case LitNumber:
		return "number"
	case LitString:
		return "string"
	case LitBool:
		return "bool"
	case LitNull:
		return "null"
	}
	return "invalid"
}

// Literal is a constant value: a number, a string, a boolean, or null.
// Only the field matching Kind is meaningful.
type Literal struct {
	Span Span        // Source span
	Kind LiteralKind // Which constant this is
	Num  float64     // Valid when Kind == LitNumber
	Str  string      // Valid when Kind == LitString
	Bool bool        // Valid when Kind == LitBool
}

// Identifier is a late-bound attribute reference, possibly dotted
// (e.g. "client.risk_rating"). Resolution happens at evaluation time
// against the caller's attribute context.
type Identifier struct {
	Span Span   // Source span
	Name string // Full dotted path as written
}

// BinaryOp applies Op to two operands.
type BinaryOp struct {
	Span  Span // Source span covering both operands
	Op    Op
	Left  Node
	Right Node
}

// UnaryOp applies a prefix operator to one operand.
type UnaryOp struct {
	Span    Span // Source span including the operator
	Op      Op
	Operand Node
}

// Call invokes a registered function by name with positional arguments.
// Names are matched case-insensitively against the function registry.
type Call struct {
	Span Span   // Source span
	Name string // Function name as written
	Args []Node // Positional arguments
}

// Lookup fetches a value from a named external table by key.
// The key is an expression; the table name is fixed at parse time.
type Lookup struct {
	Span  Span   // Source span
	Key   Node   // Key expression, evaluated then rendered as a string
	Table string // Table name
}

// Conditional is an IF/THEN/ELSE expression. Else may be nil, in which
// case the expression yields Null when the condition is false. Only the
// taken branch is evaluated.
type Conditional struct {
	Span Span // Source span
	Cond Node
	Then Node
	Else Node // Optional
}

// List is a list literal. Elements may be heterogeneous.
type List struct {
	Span  Span // Source span
	Elems []Node
}

// Assignment is the top-level form "target = expression". Evaluating it
// yields the value of the right-hand side; the engine never writes the
// target itself, callers bind the result under Target as they see fit.
type Assignment struct {
	Span   Span        // Source span
	Target *Identifier // Name being derived
	Value  Node        // Right-hand side
}

// Pos implements Node.
func (n *Literal) Pos() Span     { return n.Span }
func (n *Identifier) Pos() Span  { return n.Span }
func (n *BinaryOp) Pos() Span    { return n.Span }
func (n *UnaryOp) Pos() Span     { return n.Span }
func (n *Call) Pos() Span        { return n.Span }
func (n *Lookup) Pos() Span      { return n.Span }
func (n *RegexMatch) Pos() Span  { return n.Span }
func (n *Conditional) Pos() Span { return n.Span }
func (n *List) Pos() Span        { return n.Span }
func (n *Assignment) Pos() Span  { return n.Span }

func (*Literal) node()     {}
func (*Identifier) node()  {}
func (*BinaryOp) node()    {}
func (*UnaryOp) node()     {}
func (*Call) node()        {}
func (*Lookup) node()      {}
func (*RegexMatch) node()  {}
func (*Conditional) node() {}
func (*List) node()        {}
func (*Assignment) node()  {}
