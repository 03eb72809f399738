package parser

import (
	"strings"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// Core keywords, reserved regardless of which extensions a grammar enables.
var coreKeywords = map[string]bool{
	"IF":    true,
	"WHEN":  true,
	"THEN":  true,
	"ELSE":  true,
	"TRUE":  true,
	"FALSE": true,
	"NULL":  true,
}

type tierSpec struct {
	name  string
	assoc grammar.Assoc
	ops   map[string]grammar.TierOperator // canonical symbol -> operation
}

// Program is one grammar version compiled into executable parse tables: the
// binary tier chain in fixed policy order, the unary operator set, the
// reserved-word set, and the extension feature gates. A Program is immutable
// and safe for unlimited concurrent use; the engine caches one per grammar
// version.
type Program struct {
	grammarName string
	version     int
	tiers       []tierSpec
	unary       map[string]ast.Op
	features    map[string]bool
	reserved    map[string]bool
}

// Compile translates a validated grammar handle into a Program. Compilation
// cannot fail: validation has already guaranteed every tier symbol resolves
// under the fixed policy, so an activated grammar always has a runnable
// parser.
func Compile(handle *grammar.Handle) *Program {
	p := &Program{
		grammarName: handle.Name(),
		version:     handle.Version(),
		unary:       make(map[string]ast.Op),
		features:    make(map[string]bool),
		reserved:    make(map[string]bool),
	}
	for word := range coreKeywords {
		p.reserved[word] = true
	}
	for _, ext := range handle.Extensions() {
		p.features[ext] = true
	}

	for _, tierName := range grammar.TierOrder {
		symbols := handle.TierSymbols(tierName)
		if len(symbols) == 0 {
			continue
		}
		spec := tierSpec{
			name:  tierName,
			assoc: handle.TierAssoc(tierName),
			ops:   make(map[string]grammar.TierOperator, len(symbols)),
		}
		for _, sym := range symbols {
			op, ok := grammar.LookupOperator(tierName, sym)
			if !ok {
				continue
			}
			spec.ops[sym] = op
			if isWord(sym) {
				p.reserved[sym] = true
			}
		}
		p.tiers = append(p.tiers, spec)
	}

	for _, sym := range handle.UnarySymbols() {
		op, ok := grammar.LookupUnary(sym)
		if !ok {
			continue
		}
		p.unary[sym] = op
		if isWord(sym) {
			p.reserved[sym] = true
		}
	}

	if p.features[grammar.ExtLookups] {
		p.reserved["LOOKUP"] = true
	}
	return p
}

// GrammarName returns the name of the grammar this program was compiled from.
func (p *Program) GrammarName() string { return p.grammarName }

// Version returns the grammar version this program was compiled from.
func (p *Program) Version() int { return p.version }

// Feature returns true if the given extension id was enabled at compile time.
func (p *Program) Feature(ext string) bool { return p.features[ext] }

// Keywords returns the reserved words of this program, for editor tooling.
func (p *Program) Keywords() []string {
	out := make([]string, 0, len(p.reserved))
	for word := range p.reserved {
		out = append(out, word)
	}
	return out
}

// Operators returns every enabled operator symbol, binary and unary, for
// editor tooling.
func (p *Program) Operators() []string {
	var out []string
	seen := make(map[string]bool)
	for _, tier := range p.tiers {
		for sym := range tier.ops {
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
	}
	for sym := range p.unary {
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	return out
}

// binaryOp resolves a token against one tier's operator table.
func (p *Program) binaryOp(spec *tierSpec, tok Token) (grammar.TierOperator, bool) {
	sym, ok := tokenSymbol(tok)
	if !ok {
		return grammar.TierOperator{}, false
	}
	op, ok := spec.ops[sym]
	return op, ok
}

// unaryOp resolves a token against the unary operator set.
func (p *Program) unaryOp(tok Token) (ast.Op, bool) {
	sym, ok := tokenSymbol(tok)
	if !ok {
		return 0, false
	}
	op, ok := p.unary[sym]
	return op, ok
}

// isReserved reports whether a word may not be used as an identifier or
// function name. Keywords are reserved case-insensitively.
func (p *Program) isReserved(word string) bool {
	return p.reserved[strings.ToUpper(word)]
}

func tokenSymbol(tok Token) (string, bool) {
	switch tok.Kind {
	case TokOperator:
		return tok.Lexeme, true
	case TokIdent:
		if strings.ContainsRune(tok.Lexeme, '.') {
			return "", false
		}
		return strings.ToUpper(tok.Lexeme), true
	}
	return "", false
}

func isWord(s string) bool {
	for _, r := range s {
		if r == '_' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
			continue
		}
		return false
	}
	return len(s) > 0
}
