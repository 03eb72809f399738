package grammar

// Handle is a validated, immutable view of one grammar version. It is what
// the parser generator compiles and what in-flight calls pin: once built it
// is never mutated, so any number of goroutines may read it concurrently.
type Handle struct {
	version int
	def     *Definition
	terms   map[string]*Term
	tiers   map[string][]string // tier name -> surface symbols, appearance order
	assocs  map[string]Assoc    // tier name -> associativity
	unary   []string            // unary tier symbols
}

// Version returns the registry-assigned version, or 0 for a handle produced
// by standalone validation.
func (h *Handle) Version() int { return h.version }

// Name returns the grammar name.
func (h *Handle) Name() string { return h.def.Name }

// Definition returns the validated definition. The returned value is the
// handle's private copy; callers must treat it as read-only.
func (h *Handle) Definition() *Definition { return h.def }

// Rule returns the named production.
func (h *Handle) Rule(name string) (Production, bool) {
	return h.def.Production(name)
}

// Body returns the parsed term tree of the named production.
func (h *Handle) Body(name string) (*Term, bool) {
	t, ok := h.terms[name]
	return t, ok
}

// TierSymbols returns the operator symbols enabled for a binary tier, in
// the order the definition introduced them.
func (h *Handle) TierSymbols(tier string) []string {
	return h.tiers[tier]
}

// TierAssoc returns the associativity in force for a tier.
func (h *Handle) TierAssoc(tier string) Assoc {
	if a, ok := h.assocs[tier]; ok {
		return a
	}
	return DefaultAssoc(tier)
}

// UnarySymbols returns the enabled prefix operator symbols.
func (h *Handle) UnarySymbols() []string { return h.unary }

// Extensions returns the enabled extension ids.
func (h *Handle) Extensions() []string { return h.def.Extensions }

// Enabled returns true if the given extension id is enabled.
func (h *Handle) Enabled(ext string) bool { return h.def.HasExtension(ext) }

func (h *Handle) withVersion(v int) *Handle {
	out := *h
	out.version = v
	return &out
}
