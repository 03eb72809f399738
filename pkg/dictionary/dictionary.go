// Package dictionary persists grammar versions, named rule texts, and the
// activation audit trail. It is a collaborator of the engine, not part of it:
// the engine runs entirely in memory and hosts decide what to keep. Two
// backends are provided, an in-memory store for tests and embedding, and a
// SQLite store for durable single-instance deployments.
//
// Grammar versions move through the same lifecycle the engine enforces
// (draft, validated, active, superseded, archived). Archived versions are
// retained forever; maintenance prunes only drafts that never reached
// validation.
package dictionary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// Sentinel errors returned by store lookups.
var (
	// ErrVersionNotFound is returned when a grammar version does not exist.
	ErrVersionNotFound = errors.New("dictionary: grammar version not found")

	// ErrRuleNotFound is returned when a rule id does not exist.
	ErrRuleNotFound = errors.New("dictionary: rule not found")

	// ErrNoActiveVersion is returned when no grammar version is active.
	ErrNoActiveVersion = errors.New("dictionary: no active grammar version")
)

// StateError reports a lifecycle transition the store refused.
type StateError struct {
	Version int
	From    grammar.State
	To      grammar.State
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("dictionary: version %d cannot move %s -> %s", e.Version, e.From, e.To)
}

// VersionEntry describes one stored grammar version. The full definition is
// fetched separately with Definition.
type VersionEntry struct {
	// Version is the store-assigned monotonic version number.
	Version int

	// Name is the grammar's declared name.
	Name string

	// State is the version's lifecycle position.
	State grammar.State

	// Fingerprint is the content hash of the stored definition.
	Fingerprint string

	// SavedAt is when the definition was first stored.
	SavedAt time.Time

	// UpdatedAt is when the entry last changed state.
	UpdatedAt time.Time
}

// AuditEvent names a lifecycle event recorded in the audit trail.
type AuditEvent string

// Audit events, one per lifecycle transition out of draft.
const (
	AuditValidated  AuditEvent = "validated"
	AuditActivated  AuditEvent = "activated"
	AuditSuperseded AuditEvent = "superseded"
	AuditArchived   AuditEvent = "archived"
)

// EventForState returns the audit event that records arrival in the given
// lifecycle state. Draft has no event; versions are born as drafts.
func EventForState(state grammar.State) (AuditEvent, bool) {
	switch state {
	case grammar.StateValidated:
		return AuditValidated, true
	case grammar.StateActive:
		return AuditActivated, true
	case grammar.StateSuperseded:
		return AuditSuperseded, true
	case grammar.StateArchived:
		return AuditArchived, true
	}
	return "", false
}

// AuditRecord is one append-only entry in the activation audit trail.
type AuditRecord struct {
	// ID is a UUID assigned by the store when empty.
	ID string

	// Version is the grammar version the event belongs to.
	Version int

	// Event is the lifecycle event being recorded.
	Event AuditEvent

	// Actor identifies who triggered the event. Optional.
	Actor string

	// Detail carries free-form context for the event. Optional.
	Detail string

	// Timestamp is when the event happened. Assigned by the store when zero.
	Timestamp time.Time
}

// Rule is a named rule text in the catalog. The dictionary stores the source
// text only; parsing and evaluation stay with the engine.
type Rule struct {
	// ID is a UUID assigned by the store when empty.
	ID string

	// Name is the human-facing rule name.
	Name string

	// Description explains what the rule decides. Optional.
	Description string

	// Expression is the rule source text.
	Expression string

	// UpdatedAt is when the rule was last saved. Assigned by the store.
	UpdatedAt time.Time
}

// Store is the persistence interface for grammar versions, rule texts, and
// the audit trail. Implementations must be safe for concurrent use.
type Store interface {
	// SaveDefinition stores a definition as a new draft version and returns
	// the assigned version number. The definition is copied.
	SaveDefinition(ctx context.Context, def *grammar.Definition) (int, error)

	// Definition returns the stored definition for a version.
	// Returns ErrVersionNotFound if the version does not exist.
	Definition(ctx context.Context, version int) (*grammar.Definition, error)

	// ListVersions returns all stored versions in version order.
	ListVersions(ctx context.Context) ([]VersionEntry, error)

	// SetState moves a version to the next lifecycle state. Transitions must
	// follow the lifecycle; activation goes through MarkActive, not SetState.
	SetState(ctx context.Context, version int, next grammar.State) error

	// ActiveVersion returns the currently active version number.
	// Returns ErrNoActiveVersion if no version is active.
	ActiveVersion(ctx context.Context) (int, error)

	// MarkActive activates a validated version and moves the previously
	// active version, if any, to superseded. The swap is atomic.
	MarkActive(ctx context.Context, version int) error

	// AppendAudit appends a record to the audit trail. An empty ID and zero
	// Timestamp are assigned in place. The version must exist.
	AppendAudit(ctx context.Context, record *AuditRecord) error

	// AuditTrail returns the audit records for a version in append order.
	// Unknown versions yield an empty trail.
	AuditTrail(ctx context.Context, version int) ([]*AuditRecord, error)

	// SaveRule inserts or updates a rule by id. An empty ID is assigned in
	// place; UpdatedAt is always set to the save time.
	SaveRule(ctx context.Context, rule *Rule) error

	// Rule returns the rule with the given id.
	// Returns ErrRuleNotFound if the id does not exist.
	Rule(ctx context.Context, id string) (*Rule, error)

	// ListRules returns all rules ordered by name.
	ListRules(ctx context.Context) ([]*Rule, error)

	// DeleteRule removes a rule. No-op if the id does not exist.
	DeleteRule(ctx context.Context, id string) error

	// PruneDrafts deletes draft versions saved before the cutoff that never
	// reached validation. Returns the number deleted. Versions in any other
	// state, archived included, are never touched.
	PruneDrafts(ctx context.Context, olderThan time.Time) (int, error)

	// Checkpoint flushes backend write-ahead state to the main database.
	// No-op for backends without one.
	Checkpoint(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// normalizeAudit validates an audit record and assigns ID and Timestamp when
// the caller left them empty. Shared by both backends.
func normalizeAudit(record *AuditRecord) error {
	if record == nil {
		return fmt.Errorf("dictionary: audit record cannot be nil")
	}
	switch record.Event {
	case AuditValidated, AuditActivated, AuditSuperseded, AuditArchived:
	default:
		return fmt.Errorf("dictionary: unknown audit event %q", record.Event)
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	return nil
}

// normalizeRule validates a rule and assigns its ID when empty. UpdatedAt is
// stamped unconditionally.
func normalizeRule(rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("dictionary: rule cannot be nil")
	}
	if rule.Name == "" {
		return fmt.Errorf("dictionary: rule name cannot be empty")
	}
	if rule.Expression == "" {
		return fmt.Errorf("dictionary: rule expression cannot be empty")
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule.UpdatedAt = time.Now()
	return nil
}
