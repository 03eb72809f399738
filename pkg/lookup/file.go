package lookup

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/eval"
)

// tableDocument is the YAML shape of a lookup table file:
//
//	tables:
//	  countries:
//	    US: United States
//	    GB: United Kingdom
//	  multipliers:
//	    standard: 1.0
//	    premium: [2.5, 3.0]
type tableDocument struct {
	Tables map[string]map[string]any `yaml:"tables"`
}

// LoadFile loads lookup tables from a YAML document into a new provider.
func LoadFile(path string) (*StaticProvider, error) {
	p := NewStaticProvider()
	if err := p.MergeFile(path); err != nil {
		return nil, err
	}
	return p, nil
}

// MergeFile loads a YAML table document into the provider, replacing tables
// that share a name with the file's.
func (p *StaticProvider) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading lookup tables: %w", err)
	}

	var doc tableDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("lookup table file %q: %w", path, err)
	}
	if len(doc.Tables) == 0 {
		return fmt.Errorf("lookup table file %q has no tables", path)
	}

	for name, raw := range doc.Tables {
		entries := make(map[string]eval.Value, len(raw))
		for key, v := range raw {
			value, err := eval.FromAny(v)
			if err != nil {
				return fmt.Errorf("table %q entry %q: %w", name, key, err)
			}
			entries[key] = value
		}
		p.AddTable(name, entries)
	}
	return nil
}
