package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
engine:
  max_rule_bytes: 32768
  max_depth: 50

grammar:
  file: "./grammar.yaml"
  watch: true
  debounce_interval: "250ms"

lookups:
  files:
    - "./lookups/countries.yaml"
    - "./lookups/products.yaml"

dictionary:
  backend: "sqlite"
  sqlite:
    path: "./test-dictionary.db"
    busy_timeout: "10s"

logging:
  level: "debug"
  format: "json"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Engine.MaxRuleBytes != 32768 {
		t.Errorf("expected max rule bytes %d, got %d", 32768, cfg.Engine.MaxRuleBytes)
	}
	if cfg.Engine.MaxDepth != 50 {
		t.Errorf("expected max depth %d, got %d", 50, cfg.Engine.MaxDepth)
	}

	if cfg.Grammar.File != "./grammar.yaml" {
		t.Errorf("expected grammar file %q, got %q", "./grammar.yaml", cfg.Grammar.File)
	}
	if !cfg.Grammar.Watch {
		t.Error("expected grammar watch to be enabled")
	}
	if cfg.Grammar.DebounceInterval != 250*time.Millisecond {
		t.Errorf("expected debounce interval %v, got %v", 250*time.Millisecond, cfg.Grammar.DebounceInterval)
	}

	if len(cfg.Lookups.Files) != 2 {
		t.Fatalf("expected 2 lookup files, got %d", len(cfg.Lookups.Files))
	}
	if cfg.Lookups.Files[0] != "./lookups/countries.yaml" {
		t.Errorf("expected first lookup file %q, got %q", "./lookups/countries.yaml", cfg.Lookups.Files[0])
	}

	if cfg.Dictionary.Backend != "sqlite" {
		t.Errorf("expected dictionary backend %q, got %q", "sqlite", cfg.Dictionary.Backend)
	}
	if cfg.Dictionary.SQLite.Path != "./test-dictionary.db" {
		t.Errorf("expected sqlite path %q, got %q", "./test-dictionary.db", cfg.Dictionary.SQLite.Path)
	}
	if cfg.Dictionary.SQLite.BusyTimeout != 10*time.Second {
		t.Errorf("expected busy timeout %v, got %v", 10*time.Second, cfg.Dictionary.SQLite.BusyTimeout)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected logging format %q, got %q", "json", cfg.Logging.Format)
	}
}

func TestLoadConfig_DefaultsApplied(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// A minimal file; everything else should come from defaults.
	configContent := `
grammar:
  file: "./grammar.yaml"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Engine.MaxRuleBytes != DefaultMaxRuleBytes {
		t.Errorf("expected default max rule bytes %d, got %d", DefaultMaxRuleBytes, cfg.Engine.MaxRuleBytes)
	}
	if cfg.Engine.MaxDepth != DefaultMaxDepth {
		t.Errorf("expected default max depth %d, got %d", DefaultMaxDepth, cfg.Engine.MaxDepth)
	}
	if cfg.Grammar.DebounceInterval != DefaultGrammarDebounce {
		t.Errorf("expected default debounce %v, got %v", DefaultGrammarDebounce, cfg.Grammar.DebounceInterval)
	}
	if cfg.Dictionary.Backend != DefaultDictionaryBackend {
		t.Errorf("expected default backend %q, got %q", DefaultDictionaryBackend, cfg.Dictionary.Backend)
	}
	if cfg.Dictionary.Maintenance.Schedule != DefaultMaintenanceSchedule {
		t.Errorf("expected default schedule %q, got %q", DefaultMaintenanceSchedule, cfg.Dictionary.Maintenance.Schedule)
	}
	if cfg.Dictionary.Maintenance.DraftRetention != DefaultDraftRetention {
		t.Errorf("expected default draft retention %v, got %v", DefaultDraftRetention, cfg.Dictionary.Maintenance.DraftRetention)
	}
	if cfg.Logging.Level != DefaultLoggingLevel {
		t.Errorf("expected default logging level %q, got %q", DefaultLoggingLevel, cfg.Logging.Level)
	}
	if cfg.Logging.Format != DefaultLoggingFormat {
		t.Errorf("expected default logging format %q, got %q", DefaultLoggingFormat, cfg.Logging.Format)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
	if !strings.Contains(err.Error(), "no such file or directory") {
		t.Errorf("expected file not found error, got: %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	malformedContent := `
grammar:
  file: "./grammar.yaml"
  invalid yaml here: [
`

	if err := os.WriteFile(configPath, []byte(malformedContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidContent := `
dictionary:
  backend: "postgres"

logging:
  level: "verbose"
  format: "json"
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError in error chain, got %T: %v", err, err)
	}
	if len(validationErr.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(validationErr.Errors), validationErr)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := DefaultConfig()
	before := *cfg

	ApplyDefaults(cfg)

	if cfg.Engine != before.Engine {
		t.Errorf("engine config changed on second apply: %+v != %+v", cfg.Engine, before.Engine)
	}
	if cfg.Dictionary != before.Dictionary {
		t.Errorf("dictionary config changed on second apply: %+v != %+v", cfg.Dictionary, before.Dictionary)
	}
	if cfg.Logging != before.Logging {
		t.Errorf("logging config changed on second apply: %+v != %+v", cfg.Logging, before.Logging)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Engine.MaxDepth = 42
	cfg.Logging.Level = "error"

	ApplyDefaults(cfg)

	if cfg.Engine.MaxDepth != 42 {
		t.Errorf("expected explicit max depth 42 to survive, got %d", cfg.Engine.MaxDepth)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected explicit logging level %q to survive, got %q", "error", cfg.Logging.Level)
	}
	if cfg.Engine.MaxRuleBytes != DefaultMaxRuleBytes {
		t.Errorf("expected default max rule bytes %d, got %d", DefaultMaxRuleBytes, cfg.Engine.MaxRuleBytes)
	}
}

func TestLoadConfigWithEnvOverrides_BasicOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
grammar:
  file: "./file-grammar.yaml"

dictionary:
  backend: "memory"

logging:
  level: "info"
  format: "text"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("DESIGNER_GRAMMAR_FILE", "./env-grammar.yaml")
	t.Setenv("DESIGNER_DICTIONARY_BACKEND", "sqlite")
	t.Setenv("DESIGNER_DICTIONARY_SQLITE_PATH", "./env-dictionary.db")
	t.Setenv("DESIGNER_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Grammar.File != "./env-grammar.yaml" {
		t.Errorf("expected grammar file %q from env, got %q", "./env-grammar.yaml", cfg.Grammar.File)
	}
	if cfg.Dictionary.Backend != "sqlite" {
		t.Errorf("expected backend %q from env, got %q", "sqlite", cfg.Dictionary.Backend)
	}
	if cfg.Dictionary.SQLite.Path != "./env-dictionary.db" {
		t.Errorf("expected sqlite path %q from env, got %q", "./env-dictionary.db", cfg.Dictionary.SQLite.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level %q from env, got %q", "debug", cfg.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_NumericAndBoolParsing(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
grammar:
  file: "./grammar.yaml"
  watch: false

engine:
  max_depth: 100
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("DESIGNER_ENGINE_MAX_DEPTH", "500")
	t.Setenv("DESIGNER_GRAMMAR_WATCH", "true")
	t.Setenv("DESIGNER_GRAMMAR_DEBOUNCE_INTERVAL", "2s")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Engine.MaxDepth != 500 {
		t.Errorf("expected max depth 500 from env, got %d", cfg.Engine.MaxDepth)
	}
	if !cfg.Grammar.Watch {
		t.Error("expected watch enabled from env")
	}
	if cfg.Grammar.DebounceInterval != 2*time.Second {
		t.Errorf("expected debounce %v from env, got %v", 2*time.Second, cfg.Grammar.DebounceInterval)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
engine:
  max_depth: 100
grammar:
  watch: false
  file: "./grammar.yaml"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("DESIGNER_ENGINE_MAX_DEPTH", "not-a-number")
	t.Setenv("DESIGNER_GRAMMAR_WATCH", "definitely")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Engine.MaxDepth != 100 {
		t.Errorf("expected file value 100 to survive bad env, got %d", cfg.Engine.MaxDepth)
	}
	if cfg.Grammar.Watch {
		t.Error("expected file value false to survive bad env")
	}
}

func TestLoadConfigWithEnvOverrides_ValidationAfterOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "info"
  format: "text"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	// The file validates but the override does not; loading must fail.
	t.Setenv("DESIGNER_LOGGING_LEVEL", "chatty")

	_, err := LoadConfigWithEnvOverrides(configPath)
	if err == nil {
		t.Fatal("expected validation error after env override")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError in error chain, got %T: %v", err, err)
	}
}

func TestValidate_EngineBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.MaxRuleBytes = 32 * 1024 * 1024
	cfg.Engine.MaxDepth = 50000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for excessive engine limits")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if len(validationErr.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(validationErr.Errors), validationErr)
	}
}

func TestValidate_WatchRequiresFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grammar.Watch = true
	cfg.Grammar.File = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for watch without file")
	}
	if !strings.Contains(err.Error(), "grammar.watch") {
		t.Errorf("expected grammar.watch in error, got: %v", err)
	}
}

func TestValidate_SQLiteRequiresPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dictionary.Backend = "sqlite"
	cfg.Dictionary.SQLite.Path = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for sqlite backend without path")
	}
	if !strings.Contains(err.Error(), "dictionary.sqlite.path") {
		t.Errorf("expected dictionary.sqlite.path in error, got: %v", err)
	}
}

func TestValidationError_Formatting(t *testing.T) {
	empty := ValidationError{}
	if empty.Error() != "configuration validation failed" {
		t.Errorf("unexpected empty error text: %q", empty.Error())
	}

	single := ValidationError{Errors: []FieldError{
		{Field: "logging.level", Message: "unknown level"},
	}}
	want := "configuration validation failed: logging.level: unknown level"
	if single.Error() != want {
		t.Errorf("single error text = %q, want %q", single.Error(), want)
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "logging.level", Message: "unknown level"},
		{Field: "logging.format", Message: "unknown format"},
	}}
	text := multi.Error()
	if !strings.Contains(text, "2 errors") {
		t.Errorf("expected count in multi-error text, got: %q", text)
	}
	if !strings.Contains(text, "logging.format: unknown format") {
		t.Errorf("expected second error in multi-error text, got: %q", text)
	}
}
