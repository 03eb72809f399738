package dictionary

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the dictionary schema.
//
// Timestamps are stored as Unix nanoseconds so round-trips keep full
// precision. Definitions are stored as the same YAML document the grammar
// codec reads and writes.
const Schema = `
-- Grammar version archive
CREATE TABLE IF NOT EXISTS grammar_versions (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    state TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    definition TEXT NOT NULL,
    saved_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Version numbers are never reused, even after drafts are pruned
CREATE TABLE IF NOT EXISTS version_counter (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    next_version INTEGER NOT NULL
);

-- Append-only audit trail; seq preserves append order
CREATE TABLE IF NOT EXISTS audit_trail (
    seq INTEGER PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    version INTEGER NOT NULL,
    event TEXT NOT NULL,
    actor TEXT,
    detail TEXT,
    recorded_at INTEGER NOT NULL
);

-- Named rule texts
CREATE TABLE IF NOT EXISTS rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_versions_state ON grammar_versions(state);
CREATE INDEX IF NOT EXISTS idx_audit_version ON audit_trail(version);
CREATE INDEX IF NOT EXISTS idx_rules_name ON rules(name);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

// SeedVersionCounter creates the version counter row if it does not exist.
const SeedVersionCounter = `
INSERT INTO version_counter (id, next_version)
VALUES (1, 1)
ON CONFLICT(id) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
