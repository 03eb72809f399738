package grammar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Extension ids. Each names one pluggable bundle of grammar fragment, AST
// variants, and evaluator behavior; a definition lists the ones it enables.
const (
	ExtArithmetic = "arithmetic"
	ExtStrings    = "strings"
	ExtFunctions  = "functions"
	ExtLookups    = "lookups"
	ExtAttributes = "attributes"
	ExtRegex      = "regex"
)

// Assoc is the associativity of an operator tier.
type Assoc string

// Associativity values.
const (
	AssocLeft  Assoc = "left"
	AssocRight Assoc = "right"
	AssocNone  Assoc = "none" // Non-associative: at most one use per level (comparisons)
)

// Fixed precedence tier names, loosest to tightest. The policy of which tier
// binds tighter than which never changes across grammar edits; grammar data
// only decides which operator symbols populate each tier.
const (
	TierOr             = "or"
	TierAnd            = "and"
	TierComparison     = "comparison"
	TierConcat         = "concat"
	TierAdditive       = "additive"
	TierMultiplicative = "multiplicative"
	TierUnary          = "unary"
	TierPower          = "power"
)

// TierOrder lists the binary operator tiers loosest-first, the order the
// parser generator builds its climbing chain in.
var TierOrder = []string{
	TierOr,
	TierAnd,
	TierComparison,
	TierConcat,
	TierAdditive,
	TierMultiplicative,
	TierPower,
}

// DefaultAssoc returns the associativity the fixed policy prescribes for a
// tier when a production does not say otherwise.
func DefaultAssoc(tier string) Assoc {
	switch tier {
	case TierComparison:
		return AssocNone
	case TierPower:
		return AssocRight
	default:
		return AssocLeft
	}
}

// Production is one named grammar rule. Text holds the rule body in the
// production syntax understood by ParseRuleBody; Tier and Assoc attach the
// precedence metadata the parser generator consumes for operator rules.
type Production struct {
	Name        string `yaml:"name"`
	Text        string `yaml:"rule"`
	Tier        string `yaml:"tier,omitempty"`      // Operator tier this rule populates, if any
	Assoc       Assoc  `yaml:"assoc,omitempty"`     // Defaults per tier policy when empty
	Extension   string `yaml:"extension,omitempty"` // Owning extension id, empty for core rules
	Description string `yaml:"description,omitempty"`
}

// Metadata carries the descriptive fields of a grammar definition.
type Metadata struct {
	Description string    `yaml:"description,omitempty"`
	Author      string    `yaml:"author,omitempty"`
	Created     time.Time `yaml:"created,omitempty"`
	Updated     time.Time `yaml:"updated,omitempty"`
}

// Definition is a complete grammar: an ordered set of productions plus the
// set of enabled extensions. Definitions are plain data, edited, stored, and
// shipped as YAML; they become executable only through Validate and the
// parser generator. Version is assigned by the Registry on submission;
// a value present in a decoded document is informational only.
type Definition struct {
	Name       string       `yaml:"name"`
	Version    int          `yaml:"version,omitempty"`
	Metadata   Metadata     `yaml:"metadata,omitempty"`
	Extensions []string     `yaml:"extensions"`
	Rules      []Production `yaml:"rules"`
}

// Clone returns a deep copy of the definition.
func (d *Definition) Clone() *Definition {
	out := *d
	out.Extensions = append([]string(nil), d.Extensions...)
	out.Rules = append([]Production(nil), d.Rules...)
	return &out
}

// Production returns the named production, or false if it does not exist.
func (d *Definition) Production(name string) (Production, bool) {
	for _, p := range d.Rules {
		if p.Name == name {
			return p, true
		}
	}
	return Production{}, false
}

// HasExtension returns true if the definition enables the given extension id.
func (d *Definition) HasExtension(id string) bool {
	for _, e := range d.Extensions {
		if e == id {
			return true
		}
	}
	return false
}

// Fingerprint returns a stable content hash of the definition, ignoring the
// assigned version number. Two definitions with the same rules, extensions,
// and name share a fingerprint.
func (d *Definition) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "name:%s\n", d.Name)
	for _, e := range d.Extensions {
		fmt.Fprintf(h, "ext:%s\n", e)
	}
	for _, p := range d.Rules {
		fmt.Fprintf(h, "rule:%s:=%s tier:%s assoc:%s ext:%s\n", p.Name, p.Text, p.Tier, p.Assoc, p.Extension)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// DecodeDefinition parses a YAML grammar document.
func DecodeDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decoding grammar definition: %w", err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("grammar definition missing name")
	}
	return &def, nil
}

// EncodeDefinition renders a definition as a YAML document.
func EncodeDefinition(def *Definition) ([]byte, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encoding grammar definition: %w", err)
	}
	return data, nil
}
