package config

import (
	"fmt"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "grammar.file").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateGrammar(&cfg.Grammar)...)
	errs = append(errs, validateDictionary(&cfg.Dictionary)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateEngine validates engine configuration.
func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxRuleBytes <= 0 {
		errs = append(errs, FieldError{
			Field:   "engine.max_rule_bytes",
			Message: "max rule bytes must be positive",
		})
	} else if cfg.MaxRuleBytes > 16*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "engine.max_rule_bytes",
			Message: "max rule bytes exceeds 16MiB; rules that large indicate a misconfiguration",
		})
	}

	if cfg.MaxDepth <= 0 {
		errs = append(errs, FieldError{
			Field:   "engine.max_depth",
			Message: "max depth must be positive",
		})
	} else if cfg.MaxDepth > 10000 {
		errs = append(errs, FieldError{
			Field:   "engine.max_depth",
			Message: "max depth exceeds 10000; deeper nesting risks stack exhaustion",
		})
	}

	return errs
}

// validateGrammar validates grammar configuration.
func validateGrammar(cfg *GrammarConfig) []FieldError {
	var errs []FieldError

	if cfg.Watch && cfg.File == "" {
		errs = append(errs, FieldError{
			Field:   "grammar.watch",
			Message: "watching requires grammar.file to be set",
		})
	}

	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "grammar.debounce_interval",
			Message: "debounce interval must not be negative",
		})
	}

	return errs
}

// validateDictionary validates dictionary configuration.
func validateDictionary(cfg *DictionaryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "dictionary.backend",
			Message: fmt.Sprintf("unknown backend %q (must be one of: memory, sqlite)", cfg.Backend),
		})
	}

	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "dictionary.sqlite.path",
			Message: "path is required when backend is sqlite",
		})
	}

	if cfg.SQLite.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "dictionary.sqlite.busy_timeout",
			Message: "busy timeout must not be negative",
		})
	}

	if cfg.Maintenance.DraftRetention < 0 {
		errs = append(errs, FieldError{
			Field:   "dictionary.maintenance.draft_retention",
			Message: "draft retention must not be negative",
		})
	}

	return errs
}

// validateLogging validates logging configuration.
func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q (must be one of: debug, info, warn, error)", cfg.Level),
		})
	}

	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q (must be one of: json, text)", cfg.Format),
		})
	}

	return errs
}
