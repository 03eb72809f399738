// Package lookup provides the table providers behind LOOKUP expressions:
// static in-memory tables and tables loaded from YAML documents. Providers
// wrap eval.ErrNotFound on a miss so the evaluator grades it as a soft
// lookup-miss rather than a hard failure.
package lookup

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/eval"
)

// StaticProvider serves lookups from in-memory tables. It is safe for
// concurrent use; tables may be added while lookups are in flight.
type StaticProvider struct {
	mu     sync.RWMutex
	tables map[string]map[string]eval.Value
}

// NewStaticProvider creates an empty provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		tables: make(map[string]map[string]eval.Value),
	}
}

// AddTable registers a table, replacing any existing table of the same name.
// The entries map is copied.
func (p *StaticProvider) AddTable(name string, entries map[string]eval.Value) {
	copied := make(map[string]eval.Value, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	p.mu.Lock()
	p.tables[name] = copied
	p.mu.Unlock()
}

// Lookup implements eval.Provider.
func (p *StaticProvider) Lookup(ctx context.Context, table, key string) (eval.Value, error) {
	p.mu.RLock()
	entries, ok := p.tables[table]
	if !ok {
		p.mu.RUnlock()
		return eval.Null(), fmt.Errorf("table %q: %w", table, eval.ErrNotFound)
	}
	v, ok := entries[key]
	p.mu.RUnlock()
	if !ok {
		return eval.Null(), fmt.Errorf("table %q has no entry %q: %w", table, key, eval.ErrNotFound)
	}
	return v, nil
}

// Tables lists the registered table names, sorted.
func (p *StaticProvider) Tables() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.tables))
	for name := range p.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Size returns the number of entries in a table, or 0 for an unknown table.
func (p *StaticProvider) Size(table string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tables[table])
}
