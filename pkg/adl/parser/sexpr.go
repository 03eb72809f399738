package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// ParseSexpr parses the S-expression surface syntax with default limits.
// The reader produces trees structurally equal to what the infix parser
// builds for the equivalent expression: (+ 2 3) and 2 + 3 are one AST.
func ParseSexpr(text string, program *Program) (ast.Node, *Error) {
	return New(program).ParseSexpr(text)
}

// ParseSexpr parses one expression in the S-expression surface.
func (p *Parser) ParseSexpr(text string) (ast.Node, *Error) {
	if len(text) > p.maxInput {
		return nil, &Error{
			Kind:    ErrUnexpectedToken,
			Span:    ast.Span{Start: p.maxInput, End: len(text)},
			Message: fmt.Sprintf("input of %d bytes exceeds limit of %d", len(text), p.maxInput),
		}
	}
	r := &sexprReader{src: text, program: p.program, maxDepth: p.maxDepth}
	node, err := r.read(0)
	if err != nil {
		return nil, err
	}
	r.skip()
	if r.pos < len(r.src) {
		return nil, &Error{
			Kind:     ErrUnexpectedToken,
			Span:     ast.Span{Start: r.pos, End: len(r.src)},
			Expected: []string{"end of input"},
			Found:    strconv.Quote(r.src[r.pos : r.pos+1]),
		}
	}
	return node, nil
}

// Binary form heads. Associative heads fold: (+ 1 2 3) is ((1 + 2) + 3),
// (** 2 3 2) is 2 ** (3 ** 2); comparison heads take exactly two arguments.
var sexprBinaryOps = map[string]ast.Op{
	"+":           ast.OpAdd,
	"-":           ast.OpSub,
	"*":           ast.OpMul,
	"/":           ast.OpDiv,
	"%":           ast.OpMod,
	"**":          ast.OpPow,
	"&":           ast.OpConcat,
	"concat-op":   ast.OpConcat,
	"==":          ast.OpEq,
	"=":           ast.OpEq,
	"!=":          ast.OpNe,
	"<>":          ast.OpNe,
	"<":           ast.OpLt,
	"<=":          ast.OpLe,
	">":           ast.OpGt,
	">=":          ast.OpGe,
	"contains":    ast.OpContains,
	"starts_with": ast.OpStartsWith,
	"ends_with":   ast.OpEndsWith,
	"in":          ast.OpIn,
	"not_in":      ast.OpNotIn,
	"and":         ast.OpAnd,
	"or":          ast.OpOr,
	"&&":          ast.OpAnd,
	"||":          ast.OpOr,
}

type sexprReader struct {
	src      string
	pos      int
	program  *Program
	maxDepth int
}

func (r *sexprReader) skip() {
	for r.pos < len(r.src) {
		switch r.src[r.pos] {
		case ' ', '\t', '\r', '\n':
			r.pos++
		case ';':
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		default:
			return
		}
	}
}

func (r *sexprReader) errorAt(start int, format string, args ...interface{}) *Error {
	end := r.pos
	if end <= start {
		end = start + 1
	}
	return &Error{
		Kind:    ErrUnexpectedToken,
		Span:    ast.Span{Start: start, End: end},
		Message: fmt.Sprintf(format, args...),
	}
}

func (r *sexprReader) read(depth int) (ast.Node, *Error) {
	r.skip()
	start := r.pos
	if depth > r.maxDepth {
		return nil, r.errorAt(start, "expression nests deeper than %d levels", r.maxDepth)
	}
	if r.pos >= len(r.src) {
		return nil, &Error{
			Kind:     ErrUnexpectedToken,
			Span:     ast.Span{Start: start, End: start},
			Expected: []string{"expression"},
			Found:    "end of input",
		}
	}

	switch c := r.src[r.pos]; {
	case c == '(':
		return r.readForm(depth)
	case c == ')':
		return nil, r.errorAt(start, "unexpected ')'")
	case c == '"' || c == '\'':
		return r.readString(c)
	case c >= '0' && c <= '9':
		return r.readNumber(start)
	case c == '-' && r.pos+1 < len(r.src) && isDigit(r.src[r.pos+1]):
		r.pos++
		node, err := r.readNumber(start)
		if err != nil {
			return nil, err
		}
		lit := node.(*ast.Literal)
		lit.Num = -lit.Num
		lit.Span.Start = start
		return lit, nil
	default:
		return r.readSymbolAtom()
	}
}

func (r *sexprReader) readForm(depth int) (ast.Node, *Error) {
	start := r.pos
	r.pos++ // '('
	r.skip()

	headStart := r.pos
	head := r.readToken()
	if head == "" {
		return nil, r.errorAt(headStart, "expected form head")
	}

	var args []ast.Node
	var argSpans []ast.Span
	for {
		r.skip()
		if r.pos >= len(r.src) {
			return nil, &Error{
				Kind:    ErrUnterminatedLiteral,
				Span:    ast.Span{Start: start, End: len(r.src)},
				Message: "unterminated form",
			}
		}
		if r.src[r.pos] == ')' {
			r.pos++
			break
		}
		argStart := r.pos
		arg, err := r.read(depth + 1)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		argSpans = append(argSpans, ast.Span{Start: argStart, End: r.pos})
	}
	span := ast.Span{Start: start, End: r.pos}

	return r.buildForm(head, headStart, args, span, depth)
}

func (r *sexprReader) buildForm(head string, headStart int, args []ast.Node, span ast.Span, depth int) (ast.Node, *Error) {
	lower := strings.ToLower(head)

	switch lower {
	case "if", "when":
		if len(args) < 2 || len(args) > 3 {
			return nil, r.errorAt(headStart, "%s form expects 2 or 3 arguments, got %d", lower, len(args))
		}
		node := &ast.Conditional{Span: span, Cond: args[0], Then: args[1]}
		if len(args) == 3 {
			node.Else = args[2]
		}
		return node, nil

	case "list":
		return &ast.List{Span: span, Elems: args}, nil

	case "assign":
		if len(args) != 2 {
			return nil, r.errorAt(headStart, "assign form expects 2 arguments, got %d", len(args))
		}
		target, ok := args[0].(*ast.Identifier)
		if !ok {
			return nil, r.errorAt(headStart, "assign target must be a symbol")
		}
		return &ast.Assignment{Span: span, Target: target, Value: args[1]}, nil

	case "lookup":
		if !r.program.Feature(grammar.ExtLookups) {
			return nil, r.errorAt(headStart, "lookup forms require the lookups extension")
		}
		if len(args) != 2 {
			return nil, r.errorAt(headStart, "lookup form expects 2 arguments, got %d", len(args))
		}
		table, ok := args[1].(*ast.Literal)
		if !ok || table.Kind != ast.LitString {
			return nil, r.errorAt(headStart, "lookup table must be a string literal")
		}
		return &ast.Lookup{Span: span, Key: args[0], Table: table.Str}, nil

	case "~", "matches", "not_matches":
		if !r.program.Feature(grammar.ExtRegex) {
			return nil, r.errorAt(headStart, "match forms require the regex extension")
		}
		if len(args) != 2 {
			return nil, r.errorAt(headStart, "%s form expects 2 arguments, got %d", lower, len(args))
		}
		pattern, ok := args[1].(*ast.Literal)
		if !ok || pattern.Kind != ast.LitString {
			return nil, r.errorAt(headStart, "match pattern must be a string literal")
		}
		return &ast.RegexMatch{
			Span:    span,
			Value:   args[0],
			Pattern: pattern.Str,
			Negate:  lower == "not_matches",
		}, nil

	case "not":
		if len(args) != 1 {
			return nil, r.errorAt(headStart, "not form expects 1 argument, got %d", len(args))
		}
		return &ast.UnaryOp{Span: span, Op: ast.OpNot, Operand: args[0]}, nil
	}

	if op, ok := sexprBinaryOps[lower]; ok {
		// One argument means the unary reading for +/-.
		if len(args) == 1 && (lower == "-" || lower == "+") {
			unop := ast.OpNeg
			if lower == "+" {
				unop = ast.OpPos
			}
			return &ast.UnaryOp{Span: span, Op: unop, Operand: args[0]}, nil
		}
		if len(args) < 2 {
			return nil, r.errorAt(headStart, "%s form expects at least 2 arguments, got %d", head, len(args))
		}
		if op.IsComparison() && len(args) != 2 {
			return nil, r.errorAt(headStart, "%s form expects exactly 2 arguments, got %d", head, len(args))
		}
		if op == ast.OpPow {
			node := args[len(args)-1]
			for i := len(args) - 2; i >= 0; i-- {
				node = &ast.BinaryOp{Span: span, Op: op, Left: args[i], Right: node}
			}
			return node, nil
		}
		node := args[0]
		for _, arg := range args[1:] {
			node = &ast.BinaryOp{Span: span, Op: op, Left: node, Right: arg}
		}
		return node, nil
	}

	// Any other head is a function call.
	if !r.program.Feature(grammar.ExtFunctions) {
		return nil, r.errorAt(headStart, "call forms require the functions extension")
	}
	if !isSexprSymbol(head) {
		return nil, r.errorAt(headStart, "invalid form head %q", head)
	}
	if r.program.isReserved(head) {
		return nil, r.errorAt(headStart, "reserved word %q cannot be a function name", head)
	}
	return &ast.Call{Span: span, Name: strings.ToUpper(head), Args: args}, nil
}

func (r *sexprReader) readString(quote byte) (ast.Node, *Error) {
	start := r.pos
	r.pos++
	var b strings.Builder
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		if c == quote {
			r.pos++
			if !r.program.Feature(grammar.ExtStrings) {
				return nil, r.errorAt(start, "string literals require the strings extension")
			}
			return &ast.Literal{
				Span: ast.Span{Start: start, End: r.pos},
				Kind: ast.LitString,
				Str:  b.String(),
			}, nil
		}
		if c == '\\' && r.pos+1 < len(r.src) {
			r.pos++
			switch e := r.src[r.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(e)
			}
			r.pos++
			continue
		}
		b.WriteByte(c)
		r.pos++
	}
	return nil, &Error{
		Kind:    ErrUnterminatedLiteral,
		Span:    ast.Span{Start: start, End: len(r.src)},
		Message: "unterminated string literal",
	}
}

func (r *sexprReader) readNumber(start int) (ast.Node, *Error) {
	for r.pos < len(r.src) && (isDigit(r.src[r.pos]) || r.src[r.pos] == '.') {
		r.pos++
	}
	if r.pos < len(r.src) && (r.src[r.pos] == 'e' || r.src[r.pos] == 'E') {
		mark := r.pos
		r.pos++
		if r.pos < len(r.src) && (r.src[r.pos] == '+' || r.src[r.pos] == '-') {
			r.pos++
		}
		if r.pos < len(r.src) && isDigit(r.src[r.pos]) {
			for r.pos < len(r.src) && isDigit(r.src[r.pos]) {
				r.pos++
			}
		} else {
			r.pos = mark
		}
	}
	lexeme := r.src[start:r.pos]
	if strings.HasPrefix(lexeme, "-") {
		lexeme = lexeme[1:]
	}
	num, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return nil, r.errorAt(start, "malformed number %q", lexeme)
	}
	if !r.program.Feature(grammar.ExtArithmetic) {
		return nil, r.errorAt(start, "number literals require the arithmetic extension")
	}
	return &ast.Literal{
		Span: ast.Span{Start: start, End: r.pos},
		Kind: ast.LitNumber,
		Num:  num,
	}, nil
}

func (r *sexprReader) readSymbolAtom() (ast.Node, *Error) {
	start := r.pos
	sym := r.readToken()
	if sym == "" {
		return nil, r.errorAt(start, "unexpected character %q", r.src[start:start+1])
	}
	span := ast.Span{Start: start, End: r.pos}

	switch strings.ToLower(sym) {
	case "true":
		return &ast.Literal{Span: span, Kind: ast.LitBool, Bool: true}, nil
	case "false":
		return &ast.Literal{Span: span, Kind: ast.LitBool, Bool: false}, nil
	case "null", "nil":
		return &ast.Literal{Span: span, Kind: ast.LitNull}, nil
	}

	if !isSexprSymbol(sym) {
		return nil, r.errorAt(start, "invalid symbol %q", sym)
	}
	if !r.program.Feature(grammar.ExtAttributes) {
		return nil, r.errorAt(start, "identifiers require the attributes extension")
	}
	return &ast.Identifier{Span: span, Name: sym}, nil
}

// readToken consumes characters until a delimiter.
func (r *sexprReader) readToken() string {
	start := r.pos
	for r.pos < len(r.src) {
		switch r.src[r.pos] {
		case ' ', '\t', '\r', '\n', '(', ')', '"', '\'', ';':
			return r.src[start:r.pos]
		}
		r.pos++
	}
	return r.src[start:r.pos]
}

// isSexprSymbol restricts identifier-position symbols to the same shape the
// infix surface allows: dotted identifier paths.
func isSexprSymbol(s string) bool {
	segStart := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if segStart {
			if !isIdentStart(c) {
				return false
			}
			segStart = false
			continue
		}
		if c == '.' {
			segStart = true
			continue
		}
		if !isIdentPart(c) {
			return false
		}
	}
	return !segStart && len(s) > 0
}
