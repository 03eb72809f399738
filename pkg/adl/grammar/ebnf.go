package grammar

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseRuleText parses one production of the form
//
//	name ::= alt1 | alt2 ...
//
// where an alternative is a sequence of terms and a term is a production
// reference, a quoted terminal ('+' or "+"), or a parenthesised group, with
// optional postfix ? (optional) or * (repetition). The "::=" may be written
// "=". Returns the production name and its parsed body.
func ParseRuleText(text string) (string, *Term, error) {
	p := &ruleParser{src: text}
	p.skipSpace()
	name := p.ident()
	if name == "" {
		return "", nil, p.errorf("expected production name")
	}
	p.skipSpace()
	if !p.eat("::=") && !p.eat("=") {
		return "", nil, p.errorf("expected '::=' after %q", name)
	}
	body, err := p.choice()
	if err != nil {
		return "", nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return "", nil, p.errorf("unexpected %q after production body", p.rest())
	}
	return name, body, nil
}

// ParseRuleBody parses a production body alone, without the "name ::=" head.
func ParseRuleBody(text string) (*Term, error) {
	p := &ruleParser{src: text}
	body, err := p.choice()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q after production body", p.rest())
	}
	return body, nil
}

type ruleParser struct {
	src string
	pos int
}

func (p *ruleParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("rule text offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *ruleParser) rest() string {
	r := p.src[p.pos:]
	if len(r) > 12 {
		r = r[:12] + "..."
	}
	return r
}

func (p *ruleParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *ruleParser) eat(tok string) bool {
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *ruleParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *ruleParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || p.pos > start && c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *ruleParser) choice() (*Term, error) {
	first, err := p.sequence()
	if err != nil {
		return nil, err
	}
	alts := []*Term{first}
	for {
		p.skipSpace()
		if !p.eat("|") {
			break
		}
		alt, err := p.sequence()
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return &Term{Kind: TermChoice, Terms: alts}, nil
}

func (p *ruleParser) sequence() (*Term, error) {
	var terms []*Term
	for {
		p.skipSpace()
		c := p.peek()
		if c == 0 || c == '|' || c == ')' {
			break
		}
		term, err := p.factor()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil, p.errorf("empty alternative")
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &Term{Kind: TermSeq, Terms: terms}, nil
}

func (p *ruleParser) factor() (*Term, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	switch p.peek() {
	case '?':
		p.pos++
		return &Term{Kind: TermOpt, Terms: []*Term{base}}, nil
	case '*':
		p.pos++
		return &Term{Kind: TermRep, Terms: []*Term{base}}, nil
	}
	return base, nil
}

func (p *ruleParser) primary() (*Term, error) {
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		inner, err := p.choice()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.eat(")") {
			return nil, p.errorf("expected ')'")
		}
		return inner, nil
	case c == '\'' || c == '"':
		return p.terminal(c)
	default:
		name := p.ident()
		if name == "" {
			return nil, p.errorf("expected term, found %q", p.rest())
		}
		return &Term{Kind: TermRef, Name: name}, nil
	}
}

func (p *ruleParser) terminal(quote byte) (*Term, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == quote {
			p.pos++
			if b.Len() == 0 {
				return nil, p.errorf("empty terminal")
			}
			return &Term{Kind: TermLiteral, Text: b.String()}, nil
		}
		if c == '\\' && p.pos+1 < len(p.src) {
			p.pos++
			c = p.src[p.pos]
		}
		b.WriteByte(c)
		p.pos++
	}
	return nil, p.errorf("unterminated terminal")
}
