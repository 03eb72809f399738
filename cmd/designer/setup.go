package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/diag"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/eval"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
	"github.com/adamtc007/data-designer-sub001/pkg/cli"
	"github.com/adamtc007/data-designer-sub001/pkg/config"
	"github.com/adamtc007/data-designer-sub001/pkg/dictionary"
	"github.com/adamtc007/data-designer-sub001/pkg/lookup"
	"github.com/adamtc007/data-designer-sub001/pkg/rules"
)

// defaultConfigFile is loaded when --config is not given and the file exists.
const defaultConfigFile = "config.yaml"

// timeFormat renders store timestamps in machine-readable output.
const timeFormat = time.RFC3339

// loadDesignerConfig resolves the configuration for a command run. An
// explicit --config path must exist; without one, config.yaml is used when
// present and built-in defaults otherwise.
func loadDesignerConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return config.DefaultConfig(), nil
		}
		path = defaultConfigFile
	}
	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

// buildLogger constructs the process logger from the logging section.
// Logs go to stderr so command output on stdout stays clean; --verbose
// forces debug level.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.Logging.AddSource}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// openStore opens the dictionary store named by the configuration.
func openStore(cfg *config.Config, logger *slog.Logger) (dictionary.Store, error) {
	switch cfg.Dictionary.Backend {
	case "sqlite":
		store, err := dictionary.NewSQLiteStore(dictionary.SQLiteConfig{
			Path:        cfg.Dictionary.SQLite.Path,
			BusyTimeout: cfg.Dictionary.SQLite.BusyTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("opening dictionary store: %w", err)
		}
		return store, nil
	default:
		return dictionary.NewMemoryStore(), nil
	}
}

// loadGrammarDefinition reads and decodes a grammar document. An empty path
// returns nil, meaning the engine's built-in default grammar.
func loadGrammarDefinition(path string) (*grammar.Definition, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading grammar file: %w", err)
	}
	def, err := grammar.DecodeDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("grammar file %q: %w", path, err)
	}
	return def, nil
}

// buildLookups merges the configured lookup table files plus any given on
// the command line, later files replacing earlier tables. Returns nil when
// there are no files at all, so the engine runs without a provider.
func buildLookups(cfg *config.Config, extra []string) (*lookup.StaticProvider, error) {
	files := append(append([]string{}, cfg.Lookups.Files...), extra...)
	if len(files) == 0 {
		return nil, nil
	}
	provider := lookup.NewStaticProvider()
	for _, f := range files {
		if err := provider.MergeFile(f); err != nil {
			return nil, err
		}
	}
	return provider, nil
}

// buildEngine assembles an engine from the configuration plus per-command
// overrides. grammarFile overrides grammar.file from the configuration; the
// configured watch setting is ignored here, one-shot commands never watch.
func buildEngine(cfg *config.Config, logger *slog.Logger, grammarFile string, lookupFiles []string) (*rules.Engine, error) {
	path := cfg.Grammar.File
	if grammarFile != "" {
		path = grammarFile
	}
	def, err := loadGrammarDefinition(path)
	if err != nil {
		return nil, err
	}
	provider, err := buildLookups(cfg, lookupFiles)
	if err != nil {
		return nil, err
	}

	opts := []rules.Option{rules.WithLogger(logger)}
	if def != nil {
		opts = append(opts, rules.WithDefinition(def))
	}
	if provider != nil {
		opts = append(opts, rules.WithLookups(provider))
	}
	engineCfg := &rules.Config{
		MaxRuleBytes: cfg.Engine.MaxRuleBytes,
		MaxDepth:     cfg.Engine.MaxDepth,
	}
	return rules.New(engineCfg, opts...)
}

// loadAttributes reads a YAML document of attribute values for evaluation.
// The document must map dotted attribute names to scalars or lists; nested
// maps are rejected the same way the language rejects map values.
func loadAttributes(path string) (eval.MapContext, error) {
	if path == "" {
		return eval.MapContext{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attributes file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("attributes file %q: %w", path, err)
	}

	attrs := make(eval.MapContext, len(raw))
	for name, v := range raw {
		value, err := eval.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("attributes file %q: attribute %q: %w", path, name, err)
		}
		attrs[name] = value
	}
	return attrs, nil
}

// attributeNames returns the attribute names in the context, for diagnostic
// suggestions.
func attributeNames(attrs eval.MapContext) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	return names
}

// printReports writes diagnostics to stderr, one per line.
func printReports(reports []diag.Report) {
	for _, r := range reports {
		fmt.Fprintln(os.Stderr, r.String())
	}
}

// jsonValue renders a runtime value in its native JSON shape: numbers as
// numbers, lists as arrays, null as null.
func jsonValue(v eval.Value) any {
	switch v.Kind() {
	case eval.KindNumber:
		n, _ := v.AsNumber()
		return n
	case eval.KindString:
		s, _ := v.AsString()
		return s
	case eval.KindBool:
		b, _ := v.AsBool()
		return b
	case eval.KindList:
		elems, _ := v.AsList()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = jsonValue(e)
		}
		return out
	default:
		return nil
	}
}
