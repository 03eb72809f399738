package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention DESIGNER_SECTION_FIELD (e.g., DESIGNER_GRAMMAR_FILE) and always
// take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Values that fail to parse keep the file-based value.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DESIGNER_ENGINE_MAX_RULE_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxRuleBytes = n
		}
	}
	if v := os.Getenv("DESIGNER_ENGINE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxDepth = n
		}
	}

	if v := os.Getenv("DESIGNER_GRAMMAR_FILE"); v != "" {
		cfg.Grammar.File = v
	}
	if v := os.Getenv("DESIGNER_GRAMMAR_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Grammar.Watch = b
		}
	}
	if v := os.Getenv("DESIGNER_GRAMMAR_DEBOUNCE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Grammar.DebounceInterval = d
		}
	}

	if v := os.Getenv("DESIGNER_DICTIONARY_BACKEND"); v != "" {
		cfg.Dictionary.Backend = v
	}
	if v := os.Getenv("DESIGNER_DICTIONARY_SQLITE_PATH"); v != "" {
		cfg.Dictionary.SQLite.Path = v
	}

	if v := os.Getenv("DESIGNER_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DESIGNER_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
