package grammar

import "strings"

// Lexical rules supplied by the tokenizer rather than by the definition.
var lexicalBuiltins = map[string]bool{
	"number":     true,
	"string":     true,
	"identifier": true,
	"regex":      true,
	"boolean":    true,
	"null":       true,
}

// Validate checks a definition in full and returns an immutable Handle on
// success. All problems are accumulated: a rejected definition reports every
// duplicate rule, unresolved reference, precedence conflict, and termination
// hazard in one pass, so an editing session does not fix errors one at a
// time. On rejection the returned error is a *ErrorList.
func Validate(def *Definition) (*Handle, error) {
	list := &ErrorList{}
	if def == nil || len(def.Rules) == 0 {
		list.Add(ErrMalformedRule, "", "definition has no rules")
		return nil, list
	}

	// Parse every rule body, catching duplicates as we go.
	terms := make(map[string]*Term, len(def.Rules))
	order := make([]string, 0, len(def.Rules))
	for _, p := range def.Rules {
		if p.Name == "" {
			list.Add(ErrMalformedRule, "", "production with empty name")
			continue
		}
		if _, dup := terms[p.Name]; dup {
			list.Add(ErrDuplicateRule, p.Name, "production defined more than once")
			continue
		}
		body, err := ParseRuleBody(p.Text)
		if err != nil {
			list.Add(ErrMalformedRule, p.Name, "%v", err)
			terms[p.Name] = nil
			continue
		}
		terms[p.Name] = body
		order = append(order, p.Name)
	}

	// Every reference must land on a production or a lexical builtin.
	for _, name := range order {
		for _, ref := range terms[name].Refs() {
			if _, ok := terms[ref]; !ok && !lexicalBuiltins[ref] {
				list.Add(ErrUnresolvedReference, name, "references undefined rule %q", ref)
			}
		}
	}

	tiers, assocs, unary := checkTiers(def, terms, list)
	checkTermination(order, terms, list)

	if list.HasErrors() {
		return nil, list
	}
	return &Handle{
		def:    def.Clone(),
		terms:  terms,
		tiers:  tiers,
		assocs: assocs,
		unary:  unary,
	}, nil
}

// checkTiers resolves each tier production's operator symbols against the
// fixed symbol policy and rejects precedence ambiguity: a symbol claimed by
// two tiers, or one tier declared with conflicting associativity.
func checkTiers(def *Definition, terms map[string]*Term, list *ErrorList) (map[string][]string, map[string]Assoc, []string) {
	tiers := make(map[string][]string)
	var unary []string
	unarySeen := make(map[string]bool)
	tierSeen := make(map[string]map[string]bool)
	tierAssoc := make(map[string]Assoc)
	symbolTier := make(map[string]string)

	for _, p := range def.Rules {
		if p.Tier == "" || terms[p.Name] == nil {
			continue
		}
		if !KnownTier(p.Tier) {
			list.Add(ErrMalformedRule, p.Name, "unknown precedence tier %q", p.Tier)
			continue
		}
		assoc := p.Assoc
		if assoc == "" {
			assoc = DefaultAssoc(p.Tier)
		}
		if prev, ok := tierAssoc[p.Tier]; ok && prev != assoc {
			list.Add(ErrAmbiguousPrecedence, p.Name, "tier %q declared both %s- and %s-associative", p.Tier, prev, assoc)
		} else {
			tierAssoc[p.Tier] = assoc
		}

		for _, sym := range collectTierSymbols(terms[p.Name], terms) {
			canon := normalizeSymbol(sym)
			if p.Tier == TierUnary {
				if _, ok := LookupUnary(sym); !ok {
					list.Add(ErrUnresolvedReference, p.Name, "symbol %q has no unary operation", sym)
					continue
				}
				if !unarySeen[canon] {
					unarySeen[canon] = true
					unary = append(unary, canon)
				}
				continue
			}
			if _, ok := LookupOperator(p.Tier, sym); !ok {
				if home := TierForSymbol(sym); home != "" {
					list.Add(ErrAmbiguousPrecedence, p.Name, "symbol %q belongs to tier %q, not %q", sym, home, p.Tier)
				} else {
					list.Add(ErrUnresolvedReference, p.Name, "symbol %q has no operation in tier %q", sym, p.Tier)
				}
				continue
			}
			if owner, ok := symbolTier[canon]; ok && owner != p.Tier {
				list.Add(ErrAmbiguousPrecedence, p.Name, "symbol %q already bound to tier %q", sym, owner)
				continue
			}
			symbolTier[canon] = p.Tier
			if tierSeen[p.Tier] == nil {
				tierSeen[p.Tier] = make(map[string]bool)
			}
			if !tierSeen[p.Tier][canon] {
				tierSeen[p.Tier][canon] = true
				tiers[p.Tier] = append(tiers[p.Tier], canon)
			}
		}
	}
	return tiers, tierAssoc, unary
}

// checkTermination rejects the two grammar shapes that could make parsing
// loop forever: leftmost-reference cycles (classic left recursion, possibly
// through nullable prefixes) and repetitions whose body can match empty
// input without advancing.
func checkTermination(order []string, terms map[string]*Term, list *ErrorList) {
	null := computeNullability(terms)

	for _, name := range order {
		reportZeroWidthReps(name, terms[name], null, list)
	}

	const (
		white = iota
		grey
		black
	)
	state := make(map[string]int)
	var stack []string
	var dfs func(string)
	dfs = func(name string) {
		state[name] = grey
		stack = append(stack, name)
		for _, ref := range leftmostRefs(terms[name], null) {
			if _, ok := terms[ref]; !ok || terms[ref] == nil {
				continue
			}
			switch state[ref] {
			case white:
				dfs(ref)
			case grey:
				start := 0
				for i, n := range stack {
					if n == ref {
						start = i
						break
					}
				}
				chain := append(append([]string{}, stack[start:]...), ref)
				list.Add(ErrLeftRecursion, ref, "leftmost cycle %s", strings.Join(chain, " -> "))
			}
		}
		state[name] = black
		stack = stack[:len(stack)-1]
	}
	for _, name := range order {
		if state[name] == white {
			dfs(name)
		}
	}
}

func reportZeroWidthReps(rule string, t *Term, null map[string]bool, list *ErrorList) {
	if t == nil {
		return
	}
	if t.Kind == TermRep && termNullable(t.Terms[0], null) {
		list.Add(ErrLeftRecursion, rule, "repetition body %q can match empty input", t.Terms[0].String())
	}
	for _, child := range t.Terms {
		reportZeroWidthReps(rule, child, null, list)
	}
}

// collectTierSymbols gathers the terminal symbols of a tier production,
// following references to operator-set rules (rules whose body is nothing
// but terminals and choices of terminals).
func collectTierSymbols(t *Term, terms map[string]*Term) []string {
	var out []string
	seen := make(map[string]bool)
	var visit func(*Term)
	visit = func(t *Term) {
		switch t.Kind {
		case TermLiteral:
			if !seen[t.Text] {
				seen[t.Text] = true
				out = append(out, t.Text)
			}
		case TermRef:
			if body := terms[t.Name]; body != nil && terminalOnly(body) {
				visit(body)
			}
		default:
			for _, child := range t.Terms {
				visit(child)
			}
		}
	}
	visit(t)
	return out
}

func terminalOnly(t *Term) bool {
	switch t.Kind {
	case TermLiteral:
		return true
	case TermChoice:
		for _, child := range t.Terms {
			if !terminalOnly(child) {
				return false
			}
		}
		return true
	}
	return false
}

func computeNullability(terms map[string]*Term) map[string]bool {
	null := make(map[string]bool)
	for changed := true; changed; {
		changed = false
		for name, body := range terms {
			if body == nil || null[name] {
				continue
			}
			if termNullable(body, null) {
				null[name] = true
				changed = true
			}
		}
	}
	return null
}

func termNullable(t *Term, null map[string]bool) bool {
	switch t.Kind {
	case TermLiteral:
		return false
	case TermRef:
		return null[t.Name]
	case TermOpt, TermRep:
		return true
	case TermSeq:
		for _, child := range t.Terms {
			if !termNullable(child, null) {
				return false
			}
		}
		return true
	case TermChoice:
		for _, child := range t.Terms {
			if termNullable(child, null) {
				return true
			}
		}
		return false
	}
	return false
}

// leftmostRefs returns the production names reachable in leftmost position,
// looking through nullable prefixes.
func leftmostRefs(t *Term, null map[string]bool) []string {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case TermRef:
		return []string{t.Name}
	case TermLiteral:
		return nil
	case TermOpt, TermRep:
		return leftmostRefs(t.Terms[0], null)
	case TermChoice:
		var out []string
		for _, child := range t.Terms {
			out = append(out, leftmostRefs(child, null)...)
		}
		return out
	case TermSeq:
		var out []string
		for _, child := range t.Terms {
			out = append(out, leftmostRefs(child, null)...)
			if !termNullable(child, null) {
				break
			}
		}
		return out
	}
	return nil
}
