package diag

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/xrash/smetrics"
)

// Nearest returns the candidate closest to word by edit distance, when that
// distance is small relative to the word's length. Comparison ignores case.
func Nearest(word string, candidates []string) (string, bool) {
	if word == "" || len(candidates) == 0 {
		return "", false
	}
	lower := strings.ToLower(word)
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := smetrics.WagnerFischer(lower, strings.ToLower(c), 1, 1, 1)
		if bestDist < 0 || d < bestDist {
			bestDist, best = d, c
		}
	}
	limit := len([]rune(word)) / 2
	if limit < 2 {
		limit = 2
	}
	if bestDist > limit {
		return "", false
	}
	return best, true
}

// suggestSymbol builds a suggestion for an unknown name: the nearest known
// symbol when one is close enough, otherwise a sample of valid names.
func suggestSymbol(unknown string, valid []string, what string) string {
	if match, ok := Nearest(unknown, valid); ok {
		return fmt.Sprintf("Did you mean '%s'?", match)
	}
	if len(valid) == 0 {
		return ""
	}
	if len(valid) > 5 {
		return fmt.Sprintf("Valid %s include: %s, ...", what, strings.Join(valid[:5], ", "))
	}
	return fmt.Sprintf("Valid %s: %s", what, strings.Join(valid, ", "))
}

// Complete ranks the dictionary's symbols against a partial word for editor
// completion, best match first, at most limit results. A limit of zero or
// less means no cap.
func Complete(word string, dict SymbolDictionary, limit int) []string {
	if word == "" || dict == nil {
		return nil
	}
	var candidates []string
	candidates = append(candidates, dict.Functions()...)
	candidates = append(candidates, dict.Keywords()...)
	candidates = append(candidates, dict.Attributes()...)

	matches := fuzzy.Find(word, candidates)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}
	return out
}
