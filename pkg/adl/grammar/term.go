package grammar

import "strings"

// TermKind discriminates the node types of a parsed production body.
type TermKind int

// Term kinds.
const (
	TermRef      TermKind = iota // Reference to another production or lexical builtin
	TermLiteral                  // Quoted terminal symbol
	TermSeq                      // Sequence of terms
	TermChoice                   // Ordered alternatives
	TermOpt                      // Optional term (postfix ?)
	TermRep                      // Zero-or-more repetition (postfix *)
)

// Term is one node of a parsed production body. Productions are stored as
// text in a GrammarDefinition; validation parses them into Term trees so the
// checker and the parser generator work on structure, not strings.
type Term struct {
	Kind  TermKind
	Name  string  // Valid for TermRef
	Text  string  // Valid for TermLiteral
	Terms []*Term // Children for TermSeq/TermChoice, single child for TermOpt/TermRep
}

// String renders the term back into production-body syntax.
func (t *Term) String() string {
	var b strings.Builder
	t.write(&b, false)
	return b.String()
}

func (t *Term) write(b *strings.Builder, grouped bool) {
	switch t.Kind {
	case TermRef:
		b.WriteString(t.Name)
	case TermLiteral:
		b.WriteByte('\'')
		b.WriteString(t.Text)
		b.WriteByte('\'')
	case TermSeq:
		if grouped && len(t.Terms) > 1 {
			b.WriteByte('(')
		}
		for i, child := range t.Terms {
			if i > 0 {
				b.WriteByte(' ')
			}
			child.write(b, true)
		}
		if grouped && len(t.Terms) > 1 {
			b.WriteByte(')')
		}
	case TermChoice:
		if grouped {
			b.WriteByte('(')
		}
		for i, child := range t.Terms {
			if i > 0 {
				b.WriteString(" | ")
			}
			child.write(b, true)
		}
		if grouped {
			b.WriteByte(')')
		}
	case TermOpt:
		t.Terms[0].write(b, true)
		b.WriteByte('?')
	case TermRep:
		t.Terms[0].write(b, true)
		b.WriteByte('*')
	}
}

// Refs returns every production name referenced anywhere under t.
func (t *Term) Refs() []string {
	var out []string
	seen := make(map[string]bool)
	var visit func(*Term)
	visit = func(t *Term) {
		if t.Kind == TermRef && !seen[t.Name] {
			seen[t.Name] = true
			out = append(out, t.Name)
		}
		for _, child := range t.Terms {
			visit(child)
		}
	}
	visit(t)
	return out
}

// Terminals returns every quoted terminal under t, in appearance order,
// without duplicates.
func (t *Term) Terminals() []string {
	var out []string
	seen := make(map[string]bool)
	var visit func(*Term)
	visit = func(t *Term) {
		if t.Kind == TermLiteral && !seen[t.Text] {
			seen[t.Text] = true
			out = append(out, t.Text)
		}
		for _, child := range t.Terms {
			visit(child)
		}
	}
	visit(t)
	return out
}
