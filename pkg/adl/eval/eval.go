package eval

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
)

var zeroSpan ast.Span

// Evaluator executes syntax trees against an attribute context and an
// optional lookup provider. It holds no per-evaluation state and is safe for
// concurrent use; evaluation never mutates the tree apart from the regex
// nodes' internal compile cache.
type Evaluator struct {
	funcs   *Registry
	lookups Provider
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithFunctions replaces the default function registry.
func WithFunctions(r *Registry) Option {
	return func(e *Evaluator) {
		e.funcs = r
	}
}

// WithLookups sets the provider behind LOOKUP expressions. Without one,
// every lookup reports a miss.
func WithLookups(p Provider) Option {
	return func(e *Evaluator) {
		e.lookups = p
	}
}

// New creates an Evaluator. The default configuration carries the full
// built-in function set and no lookup provider.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{funcs: NewRegistry(AllFunctions()...)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate computes the value of a tree. The result is deterministic for a
// given tree, context, and provider state; failures identify the offending
// node's span. AND, OR, and conditionals evaluate only the operands they
// need.
func (e *Evaluator) Evaluate(ctx context.Context, node ast.Node, attrs AttributeContext) (Value, *Error) {
	return e.eval(ctx, node, attrs)
}

func (e *Evaluator) eval(ctx context.Context, node ast.Node, attrs AttributeContext) (Value, *Error) {
	switch n := node.(type) {
	case *ast.Literal:
		return literalValue(n), nil

	case *ast.Identifier:
		if attrs != nil {
			if v, ok := attrs.Attribute(n.Name); ok {
				return v, nil
			}
		}
		return Null(), errf(ErrUnknownAttribute, n.Span, "unknown attribute %q", n.Name)

	case *ast.UnaryOp:
		return e.evalUnary(ctx, n, attrs)

	case *ast.BinaryOp:
		return e.evalBinary(ctx, n, attrs)

	case *ast.Call:
		return e.evalCall(ctx, n, attrs)

	case *ast.Lookup:
		key, err := e.eval(ctx, n.Key, attrs)
		if err != nil {
			return Null(), err
		}
		return e.lookupValue(ctx, n.Table, key.Display(), n.Span)

	case *ast.RegexMatch:
		return e.evalRegex(ctx, n, attrs)

	case *ast.Conditional:
		cond, err := e.eval(ctx, n.Cond, attrs)
		if err != nil {
			return Null(), err
		}
		b, ok := cond.AsBool()
		if !ok {
			return Null(), errf(ErrTypeMismatch, n.Cond.Pos(), "condition must be a bool, got %s", cond.Kind())
		}
		if b {
			return e.eval(ctx, n.Then, attrs)
		}
		if n.Else == nil {
			return Null(), nil
		}
		return e.eval(ctx, n.Else, attrs)

	case *ast.List:
		elems := make([]Value, len(n.Elems))
		for i, elem := range n.Elems {
			v, err := e.eval(ctx, elem, attrs)
			if err != nil {
				return Null(), err
			}
			elems[i] = v
		}
		return ListOf(elems...), nil

	case *ast.Assignment:
		// Binding the target is the caller's concern; the expression's value
		// is the assigned value.
		return e.eval(ctx, n.Value, attrs)
	}

	return Null(), errf(ErrTypeMismatch, node.Pos(), "unsupported expression node")
}

func literalValue(n *ast.Literal) Value {
	switch n.Kind {
	case ast.LitNumber:
		return Number(n.Num)
	case ast.LitString:
		return String(n.Str)
	case ast.LitBool:
		return Bool(n.Bool)
	}
	return Null()
}

func (e *Evaluator) evalUnary(ctx context.Context, n *ast.UnaryOp, attrs AttributeContext) (Value, *Error) {
	operand, err := e.eval(ctx, n.Operand, attrs)
	if err != nil {
		return Null(), err
	}
	switch n.Op {
	case ast.OpNeg:
		v, ok := operand.AsNumber()
		if !ok {
			return Null(), errf(ErrTypeMismatch, n.Span, "operator - requires a number, got %s", operand.Kind())
		}
		return Number(-v), nil
	case ast.OpPos:
		if _, ok := operand.AsNumber(); !ok {
			return Null(), errf(ErrTypeMismatch, n.Span, "operator + requires a number, got %s", operand.Kind())
		}
		return operand, nil
	case ast.OpNot:
		b, ok := operand.AsBool()
		if !ok {
			return Null(), errf(ErrTypeMismatch, n.Span, "NOT requires a bool, got %s", operand.Kind())
		}
		return Bool(!b), nil
	}
	return Null(), errf(ErrTypeMismatch, n.Span, "unsupported unary operator %s", n.Op)
}

func (e *Evaluator) evalBinary(ctx context.Context, n *ast.BinaryOp, attrs AttributeContext) (Value, *Error) {
	// AND and OR decide on the left operand alone when they can.
	if n.Op == ast.OpAnd || n.Op == ast.OpOr {
		left, err := e.evalBool(ctx, n.Op, n.Left, attrs)
		if err != nil {
			return Null(), err
		}
		if n.Op == ast.OpAnd && !left {
			return Bool(false), nil
		}
		if n.Op == ast.OpOr && left {
			return Bool(true), nil
		}
		right, err := e.evalBool(ctx, n.Op, n.Right, attrs)
		if err != nil {
			return Null(), err
		}
		return Bool(right), nil
	}

	left, err := e.eval(ctx, n.Left, attrs)
	if err != nil {
		return Null(), err
	}
	right, err := e.eval(ctx, n.Right, attrs)
	if err != nil {
		return Null(), err
	}
	return applyBinary(n.Op, left, right, n.Span)
}

func (e *Evaluator) evalBool(ctx context.Context, op ast.Op, node ast.Node, attrs AttributeContext) (bool, *Error) {
	v, err := e.eval(ctx, node, attrs)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, errf(ErrTypeMismatch, node.Pos(), "%s requires bool operands, got %s", op, v.Kind())
	}
	return b, nil
}

func applyBinary(op ast.Op, left, right Value, span ast.Span) (Value, *Error) {
	switch op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod, ast.OpPow:
		return applyArithmetic(op, left, right, span)

	case ast.OpConcat:
		return String(left.Display() + right.Display()), nil

	case ast.OpEq:
		return Bool(left.Equal(right)), nil
	case ast.OpNe:
		return Bool(!left.Equal(right)), nil

	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		c, err := compareOrdered(left, right)
		if err != nil {
			err.Span = span
			return Null(), err
		}
		switch op {
		case ast.OpLt:
			return Bool(c < 0), nil
		case ast.OpLe:
			return Bool(c <= 0), nil
		case ast.OpGt:
			return Bool(c > 0), nil
		default:
			return Bool(c >= 0), nil
		}

	case ast.OpContains:
		return Bool(strings.Contains(left.Display(), right.Display())), nil
	case ast.OpStartsWith:
		return Bool(strings.HasPrefix(left.Display(), right.Display())), nil
	case ast.OpEndsWith:
		return Bool(strings.HasSuffix(left.Display(), right.Display())), nil

	case ast.OpIn, ast.OpNotIn:
		elems, ok := right.AsList()
		if !ok {
			return Null(), errf(ErrTypeMismatch, span, "%s requires a list on the right, got %s", op, right.Kind())
		}
		member := false
		for _, elem := range elems {
			if left.Equal(elem) {
				member = true
				break
			}
		}
		if op == ast.OpIn {
			return Bool(member), nil
		}
		return Bool(!member), nil
	}

	return Null(), errf(ErrTypeMismatch, span, "unsupported binary operator %s", op)
}

func applyArithmetic(op ast.Op, left, right Value, span ast.Span) (Value, *Error) {
	l, ok := left.AsNumber()
	if !ok {
		return Null(), errf(ErrTypeMismatch, span, "operator %s requires numbers, got %s", op, left.Kind())
	}
	r, ok := right.AsNumber()
	if !ok {
		return Null(), errf(ErrTypeMismatch, span, "operator %s requires numbers, got %s", op, right.Kind())
	}
	switch op {
	case ast.OpAdd:
		return Number(l + r), nil
	case ast.OpSub:
		return Number(l - r), nil
	case ast.OpMul:
		return Number(l * r), nil
	case ast.OpDiv:
		if r == 0 {
			return Null(), errf(ErrDivisionByZero, span, "division by zero")
		}
		return Number(l / r), nil
	case ast.OpMod:
		if r == 0 {
			return Null(), errf(ErrDivisionByZero, span, "modulo by zero")
		}
		return Number(math.Mod(l, r)), nil
	default:
		return Number(math.Pow(l, r)), nil
	}
}

func compareOrdered(left, right Value) (int, *Error) {
	if l, ok := left.AsNumber(); ok {
		if r, ok := right.AsNumber(); ok {
			switch {
			case l < r:
				return -1, nil
			case l > r:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if l, ok := left.AsString(); ok {
		if r, ok := right.AsString(); ok {
			return strings.Compare(l, r), nil
		}
	}
	return 0, typeErr("cannot order %s and %s", left.Kind(), right.Kind())
}

func (e *Evaluator) evalCall(ctx context.Context, n *ast.Call, attrs AttributeContext) (Value, *Error) {
	// LOOKUP in call position routes to the provider, so a grammar without
	// the dedicated lookup form still resolves tables.
	if strings.EqualFold(n.Name, "LOOKUP") {
		return e.evalLookupCall(ctx, n, attrs)
	}

	fn, ok := e.funcs.Lookup(n.Name)
	if !ok {
		return Null(), errf(ErrUnknownFunction, n.Span, "unknown function %q", n.Name)
	}
	if aerr := checkArity(fn, len(n.Args), n.Span); aerr != nil {
		return Null(), aerr
	}

	args := make([]Value, len(n.Args))
	for i, arg := range n.Args {
		v, err := e.eval(ctx, arg, attrs)
		if err != nil {
			return Null(), err
		}
		args[i] = v
	}
	out, err := fn.Apply(args)
	if err != nil {
		if err.Span == zeroSpan {
			err.Span = n.Span
		}
		return Null(), err
	}
	return out, nil
}

func checkArity(fn Func, got int, span ast.Span) *Error {
	if got >= fn.MinArgs && (fn.MaxArgs < 0 || got <= fn.MaxArgs) {
		return nil
	}
	var want string
	switch {
	case fn.MaxArgs < 0:
		want = fmt.Sprintf("at least %d", fn.MinArgs)
	case fn.MinArgs == fn.MaxArgs:
		want = fmt.Sprintf("exactly %d", fn.MinArgs)
	default:
		want = fmt.Sprintf("%d to %d", fn.MinArgs, fn.MaxArgs)
	}
	return errf(ErrArityMismatch, span, "%s expects %s arguments, got %d", fn.Name, want, got)
}

func (e *Evaluator) evalLookupCall(ctx context.Context, n *ast.Call, attrs AttributeContext) (Value, *Error) {
	if len(n.Args) != 2 {
		return Null(), errf(ErrArityMismatch, n.Span, "LOOKUP expects exactly 2 arguments, got %d", len(n.Args))
	}
	key, err := e.eval(ctx, n.Args[0], attrs)
	if err != nil {
		return Null(), err
	}
	table, err := e.eval(ctx, n.Args[1], attrs)
	if err != nil {
		return Null(), err
	}
	name, ok := table.AsString()
	if !ok {
		return Null(), errf(ErrTypeMismatch, n.Args[1].Pos(), "LOOKUP table must be a string, got %s", table.Kind())
	}
	return e.lookupValue(ctx, name, key.Display(), n.Span)
}

func (e *Evaluator) lookupValue(ctx context.Context, table, key string, span ast.Span) (Value, *Error) {
	if e.lookups == nil {
		return Null(), errf(ErrLookupMiss, span, "no lookup provider configured")
	}
	v, err := e.lookups.Lookup(ctx, table, key)
	if err != nil {
		return Null(), errf(ErrLookupMiss, span, "%v", err)
	}
	return v, nil
}

func (e *Evaluator) evalRegex(ctx context.Context, n *ast.RegexMatch, attrs AttributeContext) (Value, *Error) {
	value, err := e.eval(ctx, n.Value, attrs)
	if err != nil {
		return Null(), err
	}
	s, ok := value.AsString()
	if !ok {
		return Null(), errf(ErrTypeMismatch, n.Value.Pos(), "match requires a string value, got %s", value.Kind())
	}
	re, cerr := n.CompiledPattern()
	if cerr != nil {
		return Null(), errf(ErrInvalidPattern, n.Span, "invalid pattern %q: %v", n.Pattern, cerr)
	}
	matched := re.MatchString(s)
	if n.Negate {
		matched = !matched
	}
	return Bool(matched), nil
}
