package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultMaxRuleBytes = 64 * 1024
	DefaultMaxDepth     = 200

	// Grammar defaults
	DefaultGrammarDebounce = 100 * time.Millisecond

	// Dictionary defaults
	DefaultDictionaryBackend     = "memory"
	DefaultDictionarySQLitePath  = "data/dictionary.db"
	DefaultDictionaryBusyTimeout = 5 * time.Second
	DefaultMaintenanceSchedule   = "0 4 * * *"
	DefaultDraftRetention        = 30 * 24 * time.Hour

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "text"
)

// DefaultConfig returns a configuration populated with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.MaxRuleBytes == 0 {
		cfg.Engine.MaxRuleBytes = DefaultMaxRuleBytes
	}
	if cfg.Engine.MaxDepth == 0 {
		cfg.Engine.MaxDepth = DefaultMaxDepth
	}

	// Grammar defaults
	if cfg.Grammar.DebounceInterval == 0 {
		cfg.Grammar.DebounceInterval = DefaultGrammarDebounce
	}

	// Dictionary defaults
	if cfg.Dictionary.Backend == "" {
		cfg.Dictionary.Backend = DefaultDictionaryBackend
	}
	if cfg.Dictionary.SQLite.Path == "" {
		cfg.Dictionary.SQLite.Path = DefaultDictionarySQLitePath
	}
	if cfg.Dictionary.SQLite.BusyTimeout == 0 {
		cfg.Dictionary.SQLite.BusyTimeout = DefaultDictionaryBusyTimeout
	}
	if cfg.Dictionary.Maintenance.Schedule == "" {
		cfg.Dictionary.Maintenance.Schedule = DefaultMaintenanceSchedule
	}
	if cfg.Dictionary.Maintenance.DraftRetention == 0 {
		cfg.Dictionary.Maintenance.DraftRetention = DefaultDraftRetention
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
}
