package dictionary

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleDocument is the YAML shape of a rule catalog file:
//
//	rules:
//	  - name: high-value
//	    description: Flags orders above the reporting threshold.
//	    expression: 'order.amount > 1000'
type ruleDocument struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	ID          string `yaml:"id,omitempty"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Expression  string `yaml:"expression"`
}

// ReadRuleFile loads a rule catalog from a YAML document. Every entry needs a
// name and an expression; ids are optional and assigned by the store on save.
func ReadRuleFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}

	var doc ruleDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("rule file %q: %w", path, err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rule file %q has no rules", path)
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i, entry := range doc.Rules {
		if entry.Name == "" {
			return nil, fmt.Errorf("rule file %q: rule %d has no name", path, i+1)
		}
		if entry.Expression == "" {
			return nil, fmt.Errorf("rule file %q: rule %q has no expression", path, entry.Name)
		}
		rules = append(rules, Rule{
			ID:          entry.ID,
			Name:        entry.Name,
			Description: entry.Description,
			Expression:  entry.Expression,
		})
	}
	return rules, nil
}

// MarshalRules renders a rule catalog as a YAML document. Store metadata
// (timestamps) stays out of the document; ids are kept when present so a
// round-trip through a file preserves catalog identity.
func MarshalRules(rules []Rule) ([]byte, error) {
	doc := ruleDocument{Rules: make([]ruleEntry, 0, len(rules))}
	for _, r := range rules {
		doc.Rules = append(doc.Rules, ruleEntry{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Expression:  r.Expression,
		})
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding rule file: %w", err)
	}
	return data, nil
}

// WriteRuleFile writes a rule catalog as a YAML document.
func WriteRuleFile(path string, rules []Rule) error {
	data, err := MarshalRules(rules)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rule file: %w", err)
	}
	return nil
}
