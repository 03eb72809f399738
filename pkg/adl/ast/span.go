package ast

import "fmt"

// Span identifies a half-open byte range [Start, End) in the source expression.
// Every node and token carries one so diagnostics can point at the exact text
// that produced them.
type Span struct {
	Start int // Byte offset of the first byte (0-based)
	End   int // Byte offset one past the last byte
}

// String returns a compact representation of the span.
// Format: "start..end"
func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// IsValid returns true if the span covers a non-negative, ordered range.
func (s Span) IsValid() bool {
	return s.Start >= 0 && s.End >= s.Start
}

// Cover returns the smallest span containing both s and other.
func (s Span) Cover(other Span) Span {
	out := s
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

// Position is a 1-based line/column pair derived from a Span against the
// original source text. Columns count runes, not bytes, so positions line up
// with what an editor shows.
type Position struct {
	Line   int // Line number (1-based)
	Column int // Column number (1-based, in runes)
}

// String returns a human-readable representation of the position.
// Format: "line:column"
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// PositionFor computes the line/column of a byte offset within src.
// Offsets past the end of src report the position just after the last rune.
func PositionFor(src string, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	pos := Position{Line: 1, Column: 1}
	for i, r := range src {
		if i >= offset {
			break
		}
		if r == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
	}
	return pos
}
