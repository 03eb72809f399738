package config

import "time"

// Config is the root configuration structure for the designer tooling.
// It contains the engine limits, the grammar source, lookup tables, the
// dictionary store, and logging settings.
type Config struct {
	// Engine contains rule parsing limits for the expression engine.
	Engine EngineConfig `yaml:"engine"`

	// Grammar contains the grammar definition source configuration,
	// including the optional file watch for hot reload.
	Grammar GrammarConfig `yaml:"grammar"`

	// Lookups contains the lookup table files loaded at startup.
	Lookups LookupsConfig `yaml:"lookups"`

	// Dictionary contains the persistence configuration for grammar
	// versions, rule texts, and the audit trail.
	Dictionary DictionaryConfig `yaml:"dictionary"`

	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig contains rule parsing limits.
type EngineConfig struct {
	// MaxRuleBytes is the maximum accepted rule text length in bytes.
	// Default: 65536 (64KB)
	MaxRuleBytes int `yaml:"max_rule_bytes"`

	// MaxDepth is the maximum expression nesting depth.
	// Default: 200
	MaxDepth int `yaml:"max_depth"`
}

// GrammarConfig contains the grammar definition source configuration.
type GrammarConfig struct {
	// File is the path to a YAML grammar definition document.
	// Empty means the built-in default grammar.
	File string `yaml:"file"`

	// Watch enables automatic reload when the grammar file changes.
	// Requires File to be set.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval collapses bursts of file change events into one
	// reload. Only used when Watch is enabled.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// LookupsConfig contains lookup table configuration.
type LookupsConfig struct {
	// Files lists YAML lookup table documents. Files are merged in order;
	// a table appearing in a later file replaces the earlier one.
	Files []string `yaml:"files"`
}

// DictionaryConfig contains the dictionary store configuration.
type DictionaryConfig struct {
	// Backend specifies the storage backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite DictionarySQLiteConfig `yaml:"sqlite"`

	// Maintenance contains scheduled maintenance configuration.
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// DictionarySQLiteConfig contains SQLite storage configuration.
type DictionarySQLiteConfig struct {
	// Path is the path to the SQLite database file.
	// Default: "data/dictionary.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// MaintenanceConfig contains scheduled dictionary maintenance configuration.
type MaintenanceConfig struct {
	// Schedule is a cron expression for automatic maintenance runs.
	// Empty disables scheduled maintenance.
	// Default: "0 4 * * *" (daily at 4 AM)
	Schedule string `yaml:"schedule"`

	// DraftRetention is how long never-validated draft grammar versions
	// are kept before pruning. 0 means keep drafts forever.
	// Default: 720h (30 days)
	DraftRetention time.Duration `yaml:"draft_retention"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}
