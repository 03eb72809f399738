package parser

import (
	"fmt"
	"strings"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// Default resource limits.
const (
	DefaultMaxInputBytes = 64 * 1024
	DefaultMaxDepth      = 200
)

// Parser parses ADL expressions using a compiled grammar program. The zero
// limits are generous; they exist so a hostile expression cannot exhaust the
// stack, not to constrain real rules.
type Parser struct {
	program  *Program
	maxInput int
	maxDepth int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxInputBytes sets the maximum accepted expression length.
func WithMaxInputBytes(n int) Option {
	return func(p *Parser) {
		p.maxInput = n
	}
}

// WithMaxDepth sets the maximum expression nesting depth.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		p.maxDepth = n
	}
}

// New creates a Parser for a compiled program.
func New(program *Program, opts ...Option) *Parser {
	p := &Parser{
		program:  program,
		maxInput: DefaultMaxInputBytes,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses one expression with default limits. It returns either one
// complete tree or one structured error, never a partial tree.
func Parse(text string, program *Program) (ast.Node, *Error) {
	return New(program).Parse(text)
}

// Parse parses one UTF-8 expression.
func (p *Parser) Parse(text string) (ast.Node, *Error) {
	if len(text) > p.maxInput {
		return nil, &Error{
			Kind:    ErrUnexpectedToken,
			Span:    ast.Span{Start: p.maxInput, End: len(text)},
			Message: fmt.Sprintf("input of %d bytes exceeds limit of %d", len(text), p.maxInput),
		}
	}
	r := &run{p: p, lex: newLexer(text)}

	node, err := r.parseTop()
	if err != nil {
		return nil, err
	}
	end, err := r.next()
	if err != nil {
		return nil, err
	}
	if end.Kind != TokEOF {
		return nil, unexpected(end, "end of input")
	}
	return node, nil
}

// run is the state of a single parse call.
type run struct {
	p   *Parser
	lex *lexer
	buf []Token
}

func (r *run) fill(n int) *Error {
	for len(r.buf) <= n {
		tok, err := r.lex.next()
		if err != nil {
			return err
		}
		r.buf = append(r.buf, tok)
	}
	return nil
}

func (r *run) peek() (Token, *Error) {
	if err := r.fill(0); err != nil {
		return Token{}, err
	}
	return r.buf[0], nil
}

func (r *run) peekAt(n int) (Token, *Error) {
	if err := r.fill(n); err != nil {
		return Token{}, err
	}
	return r.buf[n], nil
}

func (r *run) next() (Token, *Error) {
	if err := r.fill(0); err != nil {
		return Token{}, err
	}
	tok := r.buf[0]
	r.buf = r.buf[1:]
	return tok, nil
}

// regex re-lexes from the current position in regex mode. Any buffered
// lookahead is discarded and the lexer rewound, since '/' tokenizes
// differently there.
func (r *run) regex() (Token, *Error) {
	if len(r.buf) > 0 {
		r.lex.pos = r.buf[0].Span.Start
		r.buf = r.buf[:0]
	}
	return r.lex.scanRegex()
}

// parseTop handles the one form that only exists at the top level: the
// assignment "target = expression". Everywhere else '=' is equality.
func (r *run) parseTop() (ast.Node, *Error) {
	first, err := r.peekAt(0)
	if err != nil {
		return nil, err
	}
	second, err := r.peekAt(1)
	if err != nil {
		return nil, err
	}
	if first.Kind == TokIdent && !r.p.program.isReserved(first.Lexeme) &&
		second.Kind == TokOperator && second.Lexeme == "=" {
		r.next()
		r.next()
		value, err := r.parseExpression(0)
		if err != nil {
			return nil, err
		}
		target := &ast.Identifier{Span: first.Span, Name: first.Lexeme}
		return &ast.Assignment{
			Span:   first.Span.Cover(value.Pos()),
			Target: target,
			Value:  value,
		}, nil
	}
	return r.parseExpression(0)
}

func (r *run) parseExpression(depth int) (ast.Node, *Error) {
	return r.parseTier(0, depth)
}

// parseTier implements the precedence climb over the compiled tier chain.
// Left-associative tiers loop, the right-associative power tier recurses at
// its own level, and the non-associative comparison tier permits a single
// use before handing back.
func (r *run) parseTier(tier, depth int) (ast.Node, *Error) {
	if tier >= len(r.p.program.tiers) {
		return r.parseUnary(depth)
	}
	spec := &r.p.program.tiers[tier]

	left, err := r.parseTier(tier+1, depth)
	if err != nil {
		return nil, err
	}
	for {
		tok, err := r.peek()
		if err != nil {
			return nil, err
		}
		op, ok := r.p.program.binaryOp(spec, tok)
		if !ok {
			return left, nil
		}
		r.next()

		if op.Regex {
			pattern, err := r.regex()
			if err != nil {
				return nil, err
			}
			left = &ast.RegexMatch{
				Span:    left.Pos().Cover(pattern.Span),
				Value:   left,
				Pattern: pattern.Str,
				Negate:  op.Negate,
			}
			if spec.assoc == grammar.AssocNone {
				return left, nil
			}
			continue
		}

		if spec.assoc == grammar.AssocRight {
			right, err := r.parseTier(tier, depth)
			if err != nil {
				return nil, err
			}
			return &ast.BinaryOp{
				Span:  left.Pos().Cover(right.Pos()),
				Op:    op.Op,
				Left:  left,
				Right: right,
			}, nil
		}

		right, err := r.parseTier(tier+1, depth)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{
			Span:  left.Pos().Cover(right.Pos()),
			Op:    op.Op,
			Left:  left,
			Right: right,
		}
		if spec.assoc == grammar.AssocNone {
			return left, nil
		}
	}
}

func (r *run) parseUnary(depth int) (ast.Node, *Error) {
	tok, err := r.peek()
	if err != nil {
		return nil, err
	}
	if op, ok := r.p.program.unaryOp(tok); ok {
		if err := r.checkDepth(depth, tok); err != nil {
			return nil, err
		}
		r.next()
		operand, err := r.parseUnary(depth + 1)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{
			Span:    tok.Span.Cover(operand.Pos()),
			Op:      op,
			Operand: operand,
		}, nil
	}
	return r.parsePrimary(depth)
}

func (r *run) parsePrimary(depth int) (ast.Node, *Error) {
	tok, err := r.next()
	if err != nil {
		return nil, err
	}
	if err := r.checkDepth(depth, tok); err != nil {
		return nil, err
	}

	switch tok.Kind {
	case TokNumber:
		if !r.p.program.Feature(grammar.ExtArithmetic) {
			return nil, &Error{
				Kind:    ErrUnexpectedToken,
				Span:    tok.Span,
				Message: "number literals require the arithmetic extension",
			}
		}
		return &ast.Literal{Span: tok.Span, Kind: ast.LitNumber, Num: tok.Num}, nil

	case TokString:
		if !r.p.program.Feature(grammar.ExtStrings) {
			return nil, &Error{
				Kind:    ErrUnexpectedToken,
				Span:    tok.Span,
				Message: "string literals require the strings extension",
			}
		}
		return &ast.Literal{Span: tok.Span, Kind: ast.LitString, Str: tok.Str}, nil

	case TokLParen:
		inner, err := r.parseExpression(depth + 1)
		if err != nil {
			return nil, err
		}
		if _, err := r.expect(TokRParen); err != nil {
			return nil, err
		}
		return inner, nil

	case TokLBracket:
		return r.parseList(tok, depth)

	case TokIdent:
		return r.parseIdent(tok, depth)
	}

	return nil, unexpected(tok, "expression")
}

func (r *run) parseList(open Token, depth int) (ast.Node, *Error) {
	list := &ast.List{Span: open.Span}
	tok, err := r.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokRBracket {
		r.next()
		list.Span = open.Span.Cover(tok.Span)
		return list, nil
	}
	for {
		elem, err := r.parseExpression(depth + 1)
		if err != nil {
			return nil, err
		}
		list.Elems = append(list.Elems, elem)
		sep, err := r.next()
		if err != nil {
			return nil, err
		}
		switch sep.Kind {
		case TokComma:
			continue
		case TokRBracket:
			list.Span = open.Span.Cover(sep.Span)
			return list, nil
		default:
			return nil, unexpected(sep, "','", "']'")
		}
	}
}

func (r *run) parseIdent(tok Token, depth int) (ast.Node, *Error) {
	word := strings.ToUpper(tok.Lexeme)
	switch word {
	case "TRUE":
		return &ast.Literal{Span: tok.Span, Kind: ast.LitBool, Bool: true}, nil
	case "FALSE":
		return &ast.Literal{Span: tok.Span, Kind: ast.LitBool, Bool: false}, nil
	case "NULL":
		return &ast.Literal{Span: tok.Span, Kind: ast.LitNull}, nil
	case "IF", "WHEN":
		return r.parseConditional(tok, depth)
	case "LOOKUP":
		if r.p.program.Feature(grammar.ExtLookups) {
			return r.parseLookup(tok, depth)
		}
	}

	if r.p.program.isReserved(tok.Lexeme) {
		return nil, unexpected(tok, "expression")
	}

	next, err := r.peek()
	if err != nil {
		return nil, err
	}
	if next.Kind == TokLParen && !strings.ContainsRune(tok.Lexeme, '.') {
		if !r.p.program.Feature(grammar.ExtFunctions) {
			return nil, &Error{
				Kind:    ErrUnexpectedToken,
				Span:    tok.Span.Cover(next.Span),
				Message: "function calls require the functions extension",
			}
		}
		return r.parseCall(tok, depth)
	}

	if !r.p.program.Feature(grammar.ExtAttributes) {
		return nil, &Error{
			Kind:    ErrUnexpectedToken,
			Span:    tok.Span,
			Message: "identifiers require the attributes extension",
		}
	}
	return &ast.Identifier{Span: tok.Span, Name: tok.Lexeme}, nil
}

func (r *run) parseCall(name Token, depth int) (ast.Node, *Error) {
	r.next() // opening paren
	// Function names are case-insensitive; the canonical form is upper so
	// CONCAT(...) and (concat ...) build identical trees.
	call := &ast.Call{Span: name.Span, Name: strings.ToUpper(name.Lexeme)}

	tok, err := r.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokRParen {
		r.next()
		call.Span = name.Span.Cover(tok.Span)
		return call, nil
	}
	for {
		arg, err := r.parseExpression(depth + 1)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		sep, err := r.next()
		if err != nil {
			return nil, err
		}
		switch sep.Kind {
		case TokComma:
			continue
		case TokRParen:
			call.Span = name.Span.Cover(sep.Span)
			return call, nil
		default:
			return nil, unexpected(sep, "','", "')'")
		}
	}
}

func (r *run) parseLookup(name Token, depth int) (ast.Node, *Error) {
	if _, err := r.expect(TokLParen); err != nil {
		return nil, err
	}
	key, err := r.parseExpression(depth + 1)
	if err != nil {
		return nil, err
	}
	if _, err := r.expect(TokComma); err != nil {
		return nil, err
	}
	table, err := r.next()
	if err != nil {
		return nil, err
	}
	if table.Kind != TokString {
		return nil, unexpected(table, "table name string")
	}
	closing, err := r.expect(TokRParen)
	if err != nil {
		return nil, err
	}
	return &ast.Lookup{
		Span:  name.Span.Cover(closing.Span),
		Key:   key,
		Table: table.Str,
	}, nil
}

func (r *run) parseConditional(kw Token, depth int) (ast.Node, *Error) {
	cond, err := r.parseExpression(depth + 1)
	if err != nil {
		return nil, err
	}
	if err := r.expectKeyword("THEN"); err != nil {
		return nil, err
	}
	then, err := r.parseExpression(depth + 1)
	if err != nil {
		return nil, err
	}
	node := &ast.Conditional{
		Span: kw.Span.Cover(then.Pos()),
		Cond: cond,
		Then: then,
	}

	tok, err := r.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokIdent && strings.EqualFold(tok.Lexeme, "ELSE") {
		r.next()
		els, err := r.parseExpression(depth + 1)
		if err != nil {
			return nil, err
		}
		node.Else = els
		node.Span = kw.Span.Cover(els.Pos())
	}
	return node, nil
}

func (r *run) expect(kind Kind) (Token, *Error) {
	tok, err := r.next()
	if err != nil {
		return Token{}, err
	}
	if tok.Kind != kind {
		return Token{}, unexpected(tok, kind.String())
	}
	return tok, nil
}

func (r *run) expectKeyword(word string) *Error {
	tok, err := r.next()
	if err != nil {
		return err
	}
	if tok.Kind != TokIdent || !strings.EqualFold(tok.Lexeme, word) {
		return unexpected(tok, "'"+word+"'")
	}
	return nil
}

func (r *run) checkDepth(depth int, tok Token) *Error {
	if depth <= r.p.maxDepth {
		return nil
	}
	return &Error{
		Kind:    ErrUnexpectedToken,
		Span:    tok.Span,
		Message: fmt.Sprintf("expression nests deeper than %d levels", r.p.maxDepth),
	}
}
