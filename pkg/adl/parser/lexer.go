package parser

import (
	"strconv"
	"strings"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
)

// lexer produces tokens on demand. Regex literals are never produced by
// next: the parser requests one explicitly after a match operator, because
// '/' is division everywhere else.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

// skip consumes whitespace and # comments, which run to end of line.
func (l *lexer) skip() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\r', '\n':
			l.pos++
		case '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

// Two-character operators, matched before singles.
var doubleOps = []string{"**", "==", "!=", "<>", "<=", ">=", "&&", "||"}

const singleOps = "+-*/%&<>=~!"

func (l *lexer) next() (Token, *Error) {
	l.skip()
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{Kind: TokEOF, Span: ast.Span{Start: start, End: start}}, nil
	}

	c := l.src[l.pos]
	switch {
	case c >= '0' && c <= '9':
		return l.scanNumber()
	case c == '"' || c == '\'':
		return l.scanString(c)
	case isIdentStart(c):
		return l.scanIdent()
	case c == '(':
		return l.punct(TokLParen), nil
	case c == ')':
		return l.punct(TokRParen), nil
	case c == '[':
		return l.punct(TokLBracket), nil
	case c == ']':
		return l.punct(TokRBracket), nil
	case c == ',':
		return l.punct(TokComma), nil
	}

	for _, op := range doubleOps {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += 2
			return Token{Kind: TokOperator, Lexeme: op, Span: ast.Span{Start: start, End: l.pos}}, nil
		}
	}
	if strings.IndexByte(singleOps, c) >= 0 {
		l.pos++
		return Token{Kind: TokOperator, Lexeme: string(c), Span: ast.Span{Start: start, End: l.pos}}, nil
	}

	return Token{}, &Error{
		Kind:    ErrUnexpectedToken,
		Span:    ast.Span{Start: start, End: start + 1},
		Message: "unexpected character " + strconv.QuoteRune(rune(c)),
	}
}

func (l *lexer) punct(kind Kind) Token {
	start := l.pos
	l.pos++
	return Token{Kind: kind, Lexeme: l.src[start:l.pos], Span: ast.Span{Start: start, End: l.pos}}
}

func (l *lexer) scanNumber() (Token, *Error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		mark := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		} else {
			// "10e" is the number 10 followed by the identifier e.
			l.pos = mark
		}
	}

	lexeme := l.src[start:l.pos]
	num, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return Token{}, &Error{
			Kind:    ErrUnexpectedToken,
			Span:    ast.Span{Start: start, End: l.pos},
			Message: "malformed number " + strconv.Quote(lexeme),
		}
	}
	return Token{Kind: TokNumber, Lexeme: lexeme, Num: num, Span: ast.Span{Start: start, End: l.pos}}, nil
}

func (l *lexer) scanString(quote byte) (Token, *Error) {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return Token{
				Kind:   TokString,
				Lexeme: l.src[start:l.pos],
				Str:    b.String(),
				Span:   ast.Span{Start: start, End: l.pos},
			}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			switch e := l.src[l.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(e)
			}
			l.pos++
			continue
		}
		b.WriteByte(c)
		l.pos++
	}
	return Token{}, &Error{
		Kind:    ErrUnterminatedLiteral,
		Span:    ast.Span{Start: start, End: len(l.src)},
		Message: "unterminated string literal",
	}
}

func (l *lexer) scanIdent() (Token, *Error) {
	start := l.pos
	l.scanIdentSegment()
	// Dotted paths are one token: client.risk_rating.
	for l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isIdentStart(l.src[l.pos+1]) {
		l.pos++
		l.scanIdentSegment()
	}
	lexeme := l.src[start:l.pos]
	return Token{Kind: TokIdent, Lexeme: lexeme, Span: ast.Span{Start: start, End: l.pos}}, nil
}

func (l *lexer) scanIdentSegment() {
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
}

// scanRegex lexes a regex literal at the current position: /pattern/flags,
// r"pattern", or an ordinary string literal whose value is the pattern.
// Flags i, m, and s are folded into the pattern as inline groups.
func (l *lexer) scanRegex() (Token, *Error) {
	l.skip()
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{}, &Error{
			Kind:     ErrUnexpectedToken,
			Span:     ast.Span{Start: start, End: start},
			Expected: []string{"regex"},
			Found:    "end of input",
		}
	}

	switch c := l.src[l.pos]; {
	case c == '/':
		l.pos++
		var b strings.Builder
		for l.pos < len(l.src) {
			ch := l.src[l.pos]
			if ch == '/' {
				l.pos++
				flags, err := l.scanRegexFlags(start)
				if err != nil {
					return Token{}, err
				}
				pattern := flags + b.String()
				return Token{
					Kind:   TokRegex,
					Lexeme: l.src[start:l.pos],
					Str:    pattern,
					Span:   ast.Span{Start: start, End: l.pos},
				}, nil
			}
			if ch == '\\' && l.pos+1 < len(l.src) {
				// \/ unescapes to a literal slash; every other escape is
				// passed through for the regex engine to interpret.
				if l.src[l.pos+1] == '/' {
					b.WriteByte('/')
				} else {
					b.WriteByte('\\')
					b.WriteByte(l.src[l.pos+1])
				}
				l.pos += 2
				continue
			}
			b.WriteByte(ch)
			l.pos++
		}
		return Token{}, &Error{
			Kind:    ErrUnterminatedLiteral,
			Span:    ast.Span{Start: start, End: len(l.src)},
			Message: "unterminated regex literal",
		}

	case c == 'r' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '"':
		l.pos += 2
		patStart := l.pos
		for l.pos < len(l.src) {
			if l.src[l.pos] == '"' {
				pattern := l.src[patStart:l.pos]
				l.pos++
				return Token{
					Kind:   TokRegex,
					Lexeme: l.src[start:l.pos],
					Str:    pattern,
					Span:   ast.Span{Start: start, End: l.pos},
				}, nil
			}
			l.pos++
		}
		return Token{}, &Error{
			Kind:    ErrUnterminatedLiteral,
			Span:    ast.Span{Start: start, End: len(l.src)},
			Message: "unterminated raw regex literal",
		}

	case c == '"' || c == '\'':
		tok, err := l.scanString(c)
		if err != nil {
			return Token{}, err
		}
		tok.Kind = TokRegex
		return tok, nil
	}

	tok, err := l.next()
	if err != nil {
		return Token{}, err
	}
	return Token{}, unexpected(tok, "regex literal")
}

func (l *lexer) scanRegexFlags(start int) (string, *Error) {
	flagStart := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	flags := l.src[flagStart:l.pos]
	if flags == "" {
		return "", nil
	}
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
		default:
			return "", &Error{
				Kind:    ErrInvalidPattern,
				Span:    ast.Span{Start: start, End: l.pos},
				Message: "unsupported regex flag " + strconv.QuoteRune(f),
			}
		}
	}
	return "(?" + flags + ")", nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
