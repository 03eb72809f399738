package grammar

import (
	"errors"
	"testing"
)

func arithmeticDefinition() *Definition {
	return &Definition{
		Name:       "arith-only",
		Extensions: []string{"arithmetic"},
		Rules: []Production{
			{Name: "expression", Text: "additive"},
			{Name: "additive", Text: "multiplicative (additive_op multiplicative)*", Tier: TierAdditive},
			{Name: "additive_op", Text: "'+' | '-'"},
			{Name: "multiplicative", Text: "primary (multiplicative_op primary)*", Tier: TierMultiplicative},
			{Name: "multiplicative_op", Text: "'*' | '/' | '%'"},
			{Name: "primary", Text: "number | '(' expression ')'"},
		},
	}
}

func TestValidateAcceptsWellFormedDefinition(t *testing.T) {
	handle, err := Validate(arithmeticDefinition())
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if got := handle.Name(); got != "arith-only" {
		t.Errorf("handle.Name() = %q, want %q", got, "arith-only")
	}
	add := handle.TierSymbols(TierAdditive)
	if len(add) != 2 || add[0] != "+" || add[1] != "-" {
		t.Errorf("TierSymbols(additive) = %v, want [+ -]", add)
	}
	mul := handle.TierSymbols(TierMultiplicative)
	if len(mul) != 3 {
		t.Errorf("TierSymbols(multiplicative) = %v, want three symbols", mul)
	}
	if _, ok := handle.Rule("primary"); !ok {
		t.Error("handle.Rule(primary) not found")
	}
	if _, ok := handle.Body("additive"); !ok {
		t.Error("handle.Body(additive) not found")
	}
}

func TestValidateHandleDetachedFromCaller(t *testing.T) {
	def := arithmeticDefinition()
	handle, err := Validate(def)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	def.Rules[0].Text = "mutated"
	if got, _ := handle.Rule("expression"); got.Text != "additive" {
		t.Errorf("handle saw caller mutation: rule text = %q", got.Text)
	}
}

func errKinds(t *testing.T, err error) map[ErrorKind]int {
	t.Helper()
	var list *ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("error is %T, want *ErrorList", err)
	}
	kinds := make(map[ErrorKind]int)
	for _, e := range list.Errors {
		kinds[e.Kind]++
	}
	return kinds
}

func TestValidateDuplicateRule(t *testing.T) {
	def := arithmeticDefinition()
	def.Rules = append(def.Rules, Production{Name: "additive", Text: "number"})
	_, err := Validate(def)
	if err == nil {
		t.Fatal("Validate() accepted a duplicate rule")
	}
	if kinds := errKinds(t, err); kinds[ErrDuplicateRule] != 1 {
		t.Errorf("duplicate-rule count = %d, want 1", kinds[ErrDuplicateRule])
	}
}

func TestValidateUnresolvedReference(t *testing.T) {
	def := arithmeticDefinition()
	def.Rules[0].Text = "additive | missing_rule"
	_, err := Validate(def)
	if err == nil {
		t.Fatal("Validate() accepted an unresolved reference")
	}
	if kinds := errKinds(t, err); kinds[ErrUnresolvedReference] != 1 {
		t.Errorf("unresolved-reference count = %d, want 1", kinds[ErrUnresolvedReference])
	}
}

func TestValidateAmbiguousPrecedenceAcrossTiers(t *testing.T) {
	def := arithmeticDefinition()
	// Claim '+' for the concat tier as well.
	def.Rules = append(def.Rules, Production{
		Name: "concat", Text: "additive ('+' additive)*", Tier: TierConcat,
	})
	_, err := Validate(def)
	if err == nil {
		t.Fatal("Validate() accepted one symbol in two tiers")
	}
	if kinds := errKinds(t, err); kinds[ErrAmbiguousPrecedence] == 0 {
		t.Errorf("got kinds %v, want ambiguous-precedence", kinds)
	}
}

func TestValidateConflictingAssociativity(t *testing.T) {
	def := arithmeticDefinition()
	def.Rules = append(def.Rules, Production{
		Name: "additive_extra", Text: "multiplicative ('+' multiplicative)*",
		Tier: TierAdditive, Assoc: AssocRight,
	})
	_, err := Validate(def)
	if err == nil {
		t.Fatal("Validate() accepted conflicting associativity in one tier")
	}
	if kinds := errKinds(t, err); kinds[ErrAmbiguousPrecedence] == 0 {
		t.Errorf("got kinds %v, want ambiguous-precedence", kinds)
	}
}

func TestValidateUnknownOperatorSymbol(t *testing.T) {
	def := arithmeticDefinition()
	def.Rules[2].Text = "'+' | '-' | '@'"
	_, err := Validate(def)
	if err == nil {
		t.Fatal("Validate() accepted an operator with no operation")
	}
	if kinds := errKinds(t, err); kinds[ErrUnresolvedReference] == 0 {
		t.Errorf("got kinds %v, want unresolved-reference for unknown symbol", kinds)
	}
}

func TestValidateLeftRecursion(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"direct", "expression '+' number"},
		{"through nullable prefix", "padding expression '+' number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := arithmeticDefinition()
			def.Rules[0].Text = tt.text
			if tt.name == "through nullable prefix" {
				def.Rules = append(def.Rules, Production{Name: "padding", Text: "'#'?"})
			}
			_, err := Validate(def)
			if err == nil {
				t.Fatal("Validate() accepted a left-recursive grammar")
			}
			if kinds := errKinds(t, err); kinds[ErrLeftRecursion] == 0 {
				t.Errorf("got kinds %v, want left-recursion", kinds)
			}
		})
	}
}

func TestValidateZeroWidthLoop(t *testing.T) {
	def := arithmeticDefinition()
	def.Rules = append(def.Rules,
		Production{Name: "filler", Text: "gap*"},
		Production{Name: "gap", Text: "'.'?"},
	)
	def.Rules[0].Text = "additive filler"
	_, err := Validate(def)
	if err == nil {
		t.Fatal("Validate() accepted a zero-width repetition")
	}
	if kinds := errKinds(t, err); kinds[ErrLeftRecursion] == 0 {
		t.Errorf("got kinds %v, want left-recursion for zero-width loop", kinds)
	}
}

func TestValidateMalformedRuleText(t *testing.T) {
	def := arithmeticDefinition()
	def.Rules[0].Text = "additive |"
	_, err := Validate(def)
	if err == nil {
		t.Fatal("Validate() accepted malformed rule text")
	}
	if kinds := errKinds(t, err); kinds[ErrMalformedRule] == 0 {
		t.Errorf("got kinds %v, want malformed-rule", kinds)
	}
}

func TestValidateAccumulatesErrors(t *testing.T) {
	def := arithmeticDefinition()
	def.Rules[0].Text = "additive | missing_one"
	def.Rules[5].Text = "number | missing_two"
	_, err := Validate(def)
	if err == nil {
		t.Fatal("Validate() accepted definition with two unresolved references")
	}
	if kinds := errKinds(t, err); kinds[ErrUnresolvedReference] != 2 {
		t.Errorf("unresolved-reference count = %d, want 2", kinds[ErrUnresolvedReference])
	}
}

func TestDefinitionFingerprint(t *testing.T) {
	a := arithmeticDefinition()
	b := arithmeticDefinition()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical definitions produced different fingerprints")
	}
	b.Rules[2].Text = "'+'"
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different definitions share a fingerprint")
	}
	b2 := arithmeticDefinition()
	b2.Version = 7
	if a.Fingerprint() != b2.Fingerprint() {
		t.Error("version number changed the fingerprint")
	}
}

func TestDecodeEncodeDefinition(t *testing.T) {
	def := arithmeticDefinition()
	data, err := EncodeDefinition(def)
	if err != nil {
		t.Fatalf("EncodeDefinition() failed: %v", err)
	}
	decoded, err := DecodeDefinition(data)
	if err != nil {
		t.Fatalf("DecodeDefinition() failed: %v", err)
	}
	if decoded.Name != def.Name || len(decoded.Rules) != len(def.Rules) {
		t.Errorf("round trip changed definition: name %q rules %d", decoded.Name, len(decoded.Rules))
	}
	if decoded.Fingerprint() != def.Fingerprint() {
		t.Error("round trip changed fingerprint")
	}
}
