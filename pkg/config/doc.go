// Package config provides configuration management for the data designer.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention DESIGNER_SECTION_FIELD.
// For example:
//
//   - DESIGNER_GRAMMAR_FILE overrides grammar.file
//   - DESIGNER_DICTIONARY_BACKEND overrides dictionary.backend
//   - DESIGNER_LOGGING_LEVEL overrides logging.level
//
// Environment variables always take precedence over file-based configuration.
// Values that fail to parse (for example a non-numeric DESIGNER_ENGINE_MAX_DEPTH)
// keep the file-based value.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// All configuration is validated automatically during loading. Validation
// errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - dictionary.backend: unknown backend "postgres" (must be one of: memory, sqlite)
//	  - logging.level: unknown level "verbose" (must be one of: debug, info, warn, error)
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	grammar:
//	  file: "./grammar.yaml"
//	  watch: true
//
//	lookups:
//	  files:
//	    - "./lookups/countries.yaml"
//	    - "./lookups/products.yaml"
//
//	dictionary:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "./data/dictionary.db"
//
//	logging:
//	  level: "info"
//	  format: "text"
//
// Callers share configuration by passing the loaded *Config explicitly; the
// package keeps no global state.
package config
