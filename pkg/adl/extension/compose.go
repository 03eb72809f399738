package extension

import (
	"fmt"
	"strings"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// Compose assembles a grammar definition enabling the given extensions. The
// binary tiers of the fixed precedence policy appear only when an enabled
// extension populates them, and each tier rule references the next tier
// actually present, so every composed definition validates on its own.
func Compose(name string, ids ...string) (*grammar.Definition, error) {
	if err := Verify(ids); err != nil {
		return nil, fmt.Errorf("composing grammar %q: %w", name, err)
	}
	enabled := make(map[string]bool, len(ids))
	for _, id := range ids {
		enabled[id] = true
	}
	return compose(name, enabled), nil
}

// DefaultDefinition returns the shipped grammar: every extension enabled,
// every tier populated. It mirrors the seed rules the first grammar version
// is bootstrapped from.
func DefaultDefinition() *grammar.Definition {
	enabled := make(map[string]bool)
	for _, id := range IDs() {
		enabled[id] = true
	}
	def := compose("default", enabled)
	def.Metadata.Description = "default grammar, all extensions enabled"
	return def
}

func compose(name string, enabled map[string]bool) *grammar.Definition {
	type level struct {
		rule string
		tier string
		op   string
		on   bool
	}
	chain := []level{
		{"or_expr", grammar.TierOr, "or_op", true},
		{"and_expr", grammar.TierAnd, "and_op", true},
		{"comparison", grammar.TierComparison, "compare_op", true},
		{"concat", grammar.TierConcat, "concat_op", enabled[grammar.ExtStrings]},
		{"additive", grammar.TierAdditive, "add_op", enabled[grammar.ExtArithmetic]},
		{"multiplicative", grammar.TierMultiplicative, "mul_op", enabled[grammar.ExtArithmetic]},
		{"power", grammar.TierPower, "pow_op", enabled[grammar.ExtArithmetic]},
	}
	// next returns the rule one binding level tighter than chain[i].
	next := func(i int) string {
		for _, lv := range chain[i+1:] {
			if lv.on {
				return lv.rule
			}
		}
		return "unary"
	}

	rules := []grammar.Production{
		{Name: "expression", Text: "or_expr", Description: "entry point"},
	}
	for i, lv := range chain {
		if !lv.on {
			continue
		}
		var text string
		switch lv.tier {
		case grammar.TierComparison:
			// Comparisons are non-associative: one use per level.
			op := lv.op
			if enabled[grammar.ExtRegex] {
				op = "(" + lv.op + " | match_op)"
			}
			text = fmt.Sprintf("%s (%s %s)?", next(i), op, next(i))
		default:
			text = fmt.Sprintf("%s (%s %s)*", next(i), lv.op, next(i))
		}
		rules = append(rules, grammar.Production{Name: lv.rule, Text: text, Tier: lv.tier})
	}

	unaryText := "not_op unary | primary"
	if enabled[grammar.ExtArithmetic] {
		unaryText = "(not_op | sign_op) unary | primary"
	}
	rules = append(rules, grammar.Production{Name: "unary", Text: unaryText, Tier: grammar.TierUnary})
	rules = append(rules, grammar.Production{Name: "primary", Text: primaryText(enabled)})

	rules = append(rules,
		grammar.Production{Name: "or_op", Text: "'OR' | '||'"},
		grammar.Production{Name: "and_op", Text: "'AND' | '&&'"},
		grammar.Production{Name: "compare_op", Text: "'==' | '=' | '!=' | '<>' | '<=' | '>=' | '<' | '>' | 'CONTAINS' | 'STARTS_WITH' | 'ENDS_WITH' | 'IN' | 'NOT_IN'"},
		grammar.Production{Name: "not_op", Text: "'NOT' | '!'"},
		grammar.Production{Name: "list", Text: "'[' (expression (',' expression)*)? ']'"},
		grammar.Production{Name: "conditional", Text: "('IF' | 'WHEN') expression 'THEN' expression ('ELSE' expression)?"},
	)

	var extIDs []string
	for _, d := range All() {
		if !enabled[d.ID] {
			continue
		}
		extIDs = append(extIDs, d.ID)
		rules = append(rules, d.Rules...)
	}

	return &grammar.Definition{
		Name:       name,
		Extensions: extIDs,
		Rules:      rules,
	}
}

func primaryText(enabled map[string]bool) string {
	var alts []string
	if enabled[grammar.ExtArithmetic] {
		alts = append(alts, "number")
	}
	if enabled[grammar.ExtStrings] {
		alts = append(alts, "string")
	}
	alts = append(alts, "boolean", "null", "list", "conditional")
	if enabled[grammar.ExtLookups] {
		alts = append(alts, "lookup_call")
	}
	if enabled[grammar.ExtFunctions] {
		alts = append(alts, "call")
	}
	if enabled[grammar.ExtAttributes] {
		alts = append(alts, "identifier")
	}
	alts = append(alts, "'(' expression ')'")
	return strings.Join(alts, " | ")
}
