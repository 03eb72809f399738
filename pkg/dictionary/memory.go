package dictionary

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// MemoryStore implements Store with in-memory maps. All data is lost when
// the process exits. MemoryStore is thread-safe using sync.RWMutex.
type MemoryStore struct {
	mu sync.RWMutex

	// versions maps version number to the stored entry and definition.
	versions map[int]*memVersion

	// order holds version numbers in assignment order.
	order []int

	// next is the version number assigned to the next SaveDefinition.
	next int

	// active is the currently active version, 0 when none.
	active int

	// audits holds the audit trail in append order, all versions mixed.
	audits []*AuditRecord

	// rules maps rule id to the stored rule.
	rules map[string]*Rule
}

type memVersion struct {
	entry VersionEntry
	def   *grammar.Definition
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		versions: make(map[int]*memVersion),
		next:     1,
		rules:    make(map[string]*Rule),
	}
}

// SaveDefinition stores a definition as a new draft version.
func (m *MemoryStore) SaveDefinition(ctx context.Context, def *grammar.Definition) (int, error) {
	if def == nil {
		return 0, fmt.Errorf("dictionary: definition cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	version := m.next
	m.next++

	stored := def.Clone()
	stored.Version = version

	now := time.Now()
	m.versions[version] = &memVersion{
		entry: VersionEntry{
			Version:     version,
			Name:        stored.Name,
			State:       grammar.StateDraft,
			Fingerprint: stored.Fingerprint(),
			SavedAt:     now,
			UpdatedAt:   now,
		},
		def: stored,
	}
	m.order = append(m.order, version)

	return version, nil
}

// Definition returns a copy of the stored definition for a version.
func (m *MemoryStore) Definition(ctx context.Context, version int) (*grammar.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.versions[version]
	if !ok {
		return nil, fmt.Errorf("version %d: %w", version, ErrVersionNotFound)
	}
	return rec.def.Clone(), nil
}

// ListVersions returns all stored versions in version order.
func (m *MemoryStore) ListVersions(ctx context.Context) ([]VersionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]VersionEntry, 0, len(m.order))
	for _, v := range m.order {
		entries = append(entries, m.versions[v].entry)
	}
	return entries, nil
}

// SetState moves a version to the next lifecycle state.
func (m *MemoryStore) SetState(ctx context.Context, version int, next grammar.State) error {
	if next == grammar.StateActive {
		return fmt.Errorf("dictionary: activation must go through MarkActive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.versions[version]
	if !ok {
		return fmt.Errorf("version %d: %w", version, ErrVersionNotFound)
	}
	if !rec.entry.State.CanTransition(next) {
		return &StateError{Version: version, From: rec.entry.State, To: next}
	}

	rec.entry.State = next
	rec.entry.UpdatedAt = time.Now()
	if m.active == version {
		m.active = 0
	}
	return nil
}

// ActiveVersion returns the currently active version number.
func (m *MemoryStore) ActiveVersion(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == 0 {
		return 0, ErrNoActiveVersion
	}
	return m.active, nil
}

// MarkActive activates a validated version, superseding the previous one.
func (m *MemoryStore) MarkActive(ctx context.Context, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.versions[version]
	if !ok {
		return fmt.Errorf("version %d: %w", version, ErrVersionNotFound)
	}
	if !rec.entry.State.CanTransition(grammar.StateActive) {
		return &StateError{Version: version, From: rec.entry.State, To: grammar.StateActive}
	}

	now := time.Now()
	if m.active != 0 {
		prev := m.versions[m.active]
		prev.entry.State = grammar.StateSuperseded
		prev.entry.UpdatedAt = now
	}
	rec.entry.State = grammar.StateActive
	rec.entry.UpdatedAt = now
	m.active = version
	return nil
}

// AppendAudit appends a record to the audit trail.
func (m *MemoryStore) AppendAudit(ctx context.Context, record *AuditRecord) error {
	if err := normalizeAudit(record); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.versions[record.Version]; !ok {
		return fmt.Errorf("version %d: %w", record.Version, ErrVersionNotFound)
	}

	stored := *record
	m.audits = append(m.audits, &stored)
	return nil
}

// AuditTrail returns the audit records for a version in append order.
func (m *MemoryStore) AuditTrail(ctx context.Context, version int) ([]*AuditRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var trail []*AuditRecord
	for _, rec := range m.audits {
		if rec.Version == version {
			copied := *rec
			trail = append(trail, &copied)
		}
	}
	return trail, nil
}

// SaveRule inserts or updates a rule by id.
func (m *MemoryStore) SaveRule(ctx context.Context, rule *Rule) error {
	if err := normalizeRule(rule); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *rule
	m.rules[rule.ID] = &stored
	return nil
}

// Rule returns the rule with the given id.
func (m *MemoryStore) Rule(ctx context.Context, id string) (*Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rule, ok := m.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %q: %w", id, ErrRuleNotFound)
	}
	copied := *rule
	return &copied, nil
}

// ListRules returns all rules ordered by name.
func (m *MemoryStore) ListRules(ctx context.Context) ([]*Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]*Rule, 0, len(m.rules))
	for _, rule := range m.rules {
		copied := *rule
		rules = append(rules, &copied)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Name != rules[j].Name {
			return rules[i].Name < rules[j].Name
		}
		return rules[i].ID < rules[j].ID
	})
	return rules, nil
}

// DeleteRule removes a rule. No-op if the id does not exist.
func (m *MemoryStore) DeleteRule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rules, id)
	return nil
}

// PruneDrafts deletes never-validated drafts saved before the cutoff.
func (m *MemoryStore) PruneDrafts(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	kept := m.order[:0]
	for _, v := range m.order {
		rec := m.versions[v]
		if rec.entry.State == grammar.StateDraft && rec.entry.SavedAt.Before(olderThan) {
			delete(m.versions, v)
			deleted++
			continue
		}
		kept = append(kept, v)
	}
	m.order = kept
	return deleted, nil
}

// Checkpoint is a no-op; the memory store has no write-ahead state.
func (m *MemoryStore) Checkpoint(ctx context.Context) error { return nil }

// Close releases no resources; the memory store holds none.
func (m *MemoryStore) Close() error { return nil }
