package dictionary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// SQLiteStore implements Store using SQLite for persistence. It is suitable
// for single-instance deployments where the grammar archive and audit trail
// must survive restarts.
//
// The store uses a write-ahead log for concurrent read performance. WAL
// checkpoints run through Checkpoint, which Maintenance schedules, plus a
// final checkpoint on Close.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	mu        sync.RWMutex
	closeOnce sync.Once

	// Pre-compiled statements for the hot paths. List queries and
	// maintenance run directly against db.
	nextVersionStmt *sql.Stmt
	bumpVersionStmt *sql.Stmt
	saveVersionStmt *sql.Stmt
	definitionStmt  *sql.Stmt
	stateStmt       *sql.Stmt
	setStateStmt    *sql.Stmt
	activeStmt      *sql.Stmt
	appendAuditStmt *sql.Stmt
	auditTrailStmt  *sql.Stmt
	saveRuleStmt    *sql.Stmt
	ruleStmt        *sql.Stmt
	deleteRuleStmt  *sql.Stmt
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the path to the SQLite database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default configuration for the given path.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:        path,
		BusyTimeout: 5 * time.Second,
	}
}

// NewSQLiteStore opens or creates the dictionary database at cfg.Path.
// A nil logger falls back to slog.Default().
func NewSQLiteStore(cfg SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("dictionary: sqlite path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:     db,
		path:   cfg.Path,
		logger: logger.With("component", "dictionary.sqlite"),
	}

	if err := store.initialize(cfg.BusyTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing dictionary database: %w", err)
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing dictionary statements: %w", err)
	}

	store.logger.Info("dictionary store opened", "path", cfg.Path)
	return store, nil
}

// initialize applies pragmas, creates the schema, and verifies its version.
func (s *SQLiteStore) initialize(busyTimeout time.Duration) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		return fmt.Errorf("setting synchronous mode: %w", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	if _, err := s.db.Exec(SeedVersionCounter); err != nil {
		return fmt.Errorf("seeding version counter: %w", err)
	}

	var got int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&got); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if got != SchemaVersion {
		return fmt.Errorf("schema version mismatch: database has %d, want %d", got, SchemaVersion)
	}
	return nil
}

// prepareStatements pre-compiles the statements used on the hot paths.
func (s *SQLiteStore) prepareStatements() error {
	stmts := []struct {
		dst  **sql.Stmt
		name string
		sql  string
	}{
		{&s.nextVersionStmt, "next version", `
			SELECT next_version FROM version_counter WHERE id = 1
		`},
		{&s.bumpVersionStmt, "bump version", `
			UPDATE version_counter SET next_version = next_version + 1 WHERE id = 1
		`},
		{&s.saveVersionStmt, "save version", `
			INSERT INTO grammar_versions (version, name, state, fingerprint, definition, saved_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`},
		{&s.definitionStmt, "definition", `
			SELECT definition FROM grammar_versions WHERE version = ?
		`},
		{&s.stateStmt, "state", `
			SELECT state FROM grammar_versions WHERE version = ?
		`},
		{&s.setStateStmt, "set state", `
			UPDATE grammar_versions SET state = ?, updated_at = ? WHERE version = ?
		`},
		{&s.activeStmt, "active version", `
			SELECT version FROM grammar_versions WHERE state = ? LIMIT 1
		`},
		{&s.appendAuditStmt, "append audit", `
			INSERT INTO audit_trail (id, version, event, actor, detail, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`},
		{&s.auditTrailStmt, "audit trail", `
			SELECT id, version, event, actor, detail, recorded_at
			FROM audit_trail
			WHERE version = ?
			ORDER BY seq
		`},
		{&s.saveRuleStmt, "save rule", `
			INSERT INTO rules (id, name, description, expression, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				expression = excluded.expression,
				updated_at = excluded.updated_at
		`},
		{&s.ruleStmt, "rule", `
			SELECT id, name, description, expression, updated_at FROM rules WHERE id = ?
		`},
		{&s.deleteRuleStmt, "delete rule", `
			DELETE FROM rules WHERE id = ?
		`},
	}

	for _, st := range stmts {
		prepared, err := s.db.Prepare(st.sql)
		if err != nil {
			return fmt.Errorf("preparing %s statement: %w", st.name, err)
		}
		*st.dst = prepared
	}
	return nil
}

// SaveDefinition stores a definition as a new draft version.
func (s *SQLiteStore) SaveDefinition(ctx context.Context, def *grammar.Definition) (int, error) {
	if def == nil {
		return 0, fmt.Errorf("dictionary: definition cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var version int
	if err := s.nextVersionStmt.QueryRowContext(ctx).Scan(&version); err != nil {
		return 0, fmt.Errorf("assigning grammar version: %w", err)
	}
	if _, err := s.bumpVersionStmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("advancing grammar version counter: %w", err)
	}

	stored := def.Clone()
	stored.Version = version

	data, err := grammar.EncodeDefinition(stored)
	if err != nil {
		return 0, err
	}

	now := time.Now().UnixNano()
	_, err = s.saveVersionStmt.ExecContext(ctx,
		version,
		stored.Name,
		string(grammar.StateDraft),
		stored.Fingerprint(),
		string(data),
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("saving grammar version %d: %w", version, err)
	}

	return version, nil
}

// Definition returns the stored definition for a version.
func (s *SQLiteStore) Definition(ctx context.Context, version int) (*grammar.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.definitionStmt.QueryRowContext(ctx, version).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("version %d: %w", version, ErrVersionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading grammar version %d: %w", version, err)
	}

	return grammar.DecodeDefinition([]byte(doc))
}

// ListVersions returns all stored versions in version order.
func (s *SQLiteStore) ListVersions(ctx context.Context) ([]VersionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT version, name, state, fingerprint, saved_at, updated_at
		FROM grammar_versions
		ORDER BY version
	`)
	if err != nil {
		return nil, fmt.Errorf("listing grammar versions: %w", err)
	}
	defer rows.Close()

	var entries []VersionEntry
	for rows.Next() {
		var (
			entry     VersionEntry
			state     string
			savedAt   int64
			updatedAt int64
		)
		if err := rows.Scan(&entry.Version, &entry.Name, &state, &entry.Fingerprint, &savedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning grammar version: %w", err)
		}
		entry.State = grammar.State(state)
		entry.SavedAt = time.Unix(0, savedAt)
		entry.UpdatedAt = time.Unix(0, updatedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grammar versions: %w", err)
	}
	return entries, nil
}

// SetState moves a version to the next lifecycle state.
func (s *SQLiteStore) SetState(ctx context.Context, version int, next grammar.State) error {
	if next == grammar.StateActive {
		return fmt.Errorf("dictionary: activation must go through MarkActive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.stateLocked(ctx, version)
	if err != nil {
		return err
	}
	if !current.CanTransition(next) {
		return &StateError{Version: version, From: current, To: next}
	}

	_, err = s.setStateStmt.ExecContext(ctx, string(next), time.Now().UnixNano(), version)
	if err != nil {
		return fmt.Errorf("updating grammar version %d state: %w", version, err)
	}
	return nil
}

// ActiveVersion returns the currently active version number.
func (s *SQLiteStore) ActiveVersion(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var version int
	err := s.activeStmt.QueryRowContext(ctx, string(grammar.StateActive)).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoActiveVersion
	}
	if err != nil {
		return 0, fmt.Errorf("loading active grammar version: %w", err)
	}
	return version, nil
}

// MarkActive activates a validated version, superseding the previous one.
// The two state updates commit in one transaction.
func (s *SQLiteStore) MarkActive(ctx context.Context, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning activation transaction: %w", err)
	}
	defer tx.Rollback()

	var state string
	err = tx.QueryRowContext(ctx, `SELECT state FROM grammar_versions WHERE version = ?`, version).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("version %d: %w", version, ErrVersionNotFound)
	}
	if err != nil {
		return fmt.Errorf("loading grammar version %d state: %w", version, err)
	}

	current := grammar.State(state)
	if !current.CanTransition(grammar.StateActive) {
		return &StateError{Version: version, From: current, To: grammar.StateActive}
	}

	now := time.Now().UnixNano()
	_, err = tx.ExecContext(ctx, `UPDATE grammar_versions SET state = ?, updated_at = ? WHERE state = ?`,
		string(grammar.StateSuperseded), now, string(grammar.StateActive))
	if err != nil {
		return fmt.Errorf("superseding active grammar version: %w", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE grammar_versions SET state = ?, updated_at = ? WHERE version = ?`,
		string(grammar.StateActive), now, version)
	if err != nil {
		return fmt.Errorf("activating grammar version %d: %w", version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing activation: %w", err)
	}
	return nil
}

// AppendAudit appends a record to the audit trail.
func (s *SQLiteStore) AppendAudit(ctx context.Context, record *AuditRecord) error {
	if err := normalizeAudit(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.stateLocked(ctx, record.Version); err != nil {
		return err
	}

	_, err := s.appendAuditStmt.ExecContext(ctx,
		record.ID,
		record.Version,
		string(record.Event),
		nullable(record.Actor),
		nullable(record.Detail),
		record.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("appending audit record: %w", err)
	}
	return nil
}

// AuditTrail returns the audit records for a version in append order.
func (s *SQLiteStore) AuditTrail(ctx context.Context, version int) ([]*AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.auditTrailStmt.QueryContext(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("loading audit trail: %w", err)
	}
	defer rows.Close()

	var trail []*AuditRecord
	for rows.Next() {
		var (
			rec        AuditRecord
			event      string
			actor      sql.NullString
			detail     sql.NullString
			recordedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.Version, &event, &actor, &detail, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		rec.Event = AuditEvent(event)
		rec.Actor = actor.String
		rec.Detail = detail.String
		rec.Timestamp = time.Unix(0, recordedAt)
		trail = append(trail, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit trail: %w", err)
	}
	return trail, nil
}

// SaveRule inserts or updates a rule by id.
func (s *SQLiteStore) SaveRule(ctx context.Context, rule *Rule) error {
	if err := normalizeRule(rule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.saveRuleStmt.ExecContext(ctx,
		rule.ID,
		rule.Name,
		nullable(rule.Description),
		rule.Expression,
		rule.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving rule %q: %w", rule.Name, err)
	}
	return nil
}

// Rule returns the rule with the given id.
func (s *SQLiteStore) Rule(ctx context.Context, id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, err := scanRule(s.ruleStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %q: %w", id, ErrRuleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading rule %q: %w", id, err)
	}
	return rule, nil
}

// ListRules returns all rules ordered by name.
func (s *SQLiteStore) ListRules(ctx context.Context) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, expression, updated_at
		FROM rules
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return rules, nil
}

// DeleteRule removes a rule. No-op if the id does not exist.
func (s *SQLiteStore) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteRuleStmt.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("deleting rule %q: %w", id, err)
	}
	return nil
}

// PruneDrafts deletes never-validated drafts saved before the cutoff.
func (s *SQLiteStore) PruneDrafts(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM grammar_versions WHERE state = ? AND saved_at < ?
	`, string(grammar.StateDraft), olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning draft versions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned drafts: %w", err)
	}
	return int(deleted), nil
}

// Checkpoint moves the write-ahead log into the main database file.
func (s *SQLiteStore) Checkpoint(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpointing dictionary database: %w", err)
	}
	return nil
}

// Close releases resources held by the store.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{
			s.nextVersionStmt,
			s.bumpVersionStmt,
			s.saveVersionStmt,
			s.definitionStmt,
			s.stateStmt,
			s.setStateStmt,
			s.activeStmt,
			s.appendAuditStmt,
			s.auditTrailStmt,
			s.saveRuleStmt,
			s.ruleStmt,
			s.deleteRuleStmt,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// stateLocked reads a version's state. Caller must hold at least a read lock.
func (s *SQLiteStore) stateLocked(ctx context.Context, version int) (grammar.State, error) {
	var state string
	err := s.stateStmt.QueryRowContext(ctx, version).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("version %d: %w", version, ErrVersionNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("loading grammar version %d state: %w", version, err)
	}
	return grammar.State(state), nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var (
		rule        Rule
		description sql.NullString
		updatedAt   int64
	)
	if err := row.Scan(&rule.ID, &rule.Name, &description, &rule.Expression, &updatedAt); err != nil {
		return nil, err
	}
	rule.Description = description.String
	rule.UpdatedAt = time.Unix(0, updatedAt)
	return &rule, nil
}

// nullable maps an empty string to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
