package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adamtc007/data-designer-sub001/pkg/rules"
)

// resetLintFlags puts the lint flags into a known state before each test.
func resetLintFlags() {
	lintFlags.file = ""
	lintFlags.dir = ""
	lintFlags.grammar = ""
	lintFlags.lookups = nil
	lintFlags.format = "text"
	lintFlags.strict = false
	cfgFile = ""
}

func TestLintRulesValidFile(t *testing.T) {
	resetLintFlags()
	lintFlags.file = "testdata/valid-rules.yaml"

	if err := lintRules(nil, nil); err != nil {
		t.Errorf("lintRules() with valid file returned error: %v", err)
	}
}

func TestLintRulesInvalidFile(t *testing.T) {
	resetLintFlags()
	lintFlags.file = "testdata/invalid-rules.yaml"

	if err := lintRules(nil, nil); err == nil {
		t.Error("lintRules() with invalid file should return error")
	}
}

func TestLintRulesNonexistentFile(t *testing.T) {
	resetLintFlags()
	lintFlags.file = "testdata/nonexistent.yaml"

	if err := lintRules(nil, nil); err == nil {
		t.Error("lintRules() with nonexistent file should return error")
	}
}

func TestLintRulesNoFileOrDir(t *testing.T) {
	resetLintFlags()

	if err := lintRules(nil, nil); err == nil {
		t.Error("lintRules() without file or dir should return error")
	}
}

func TestLintRulesJSONFormat(t *testing.T) {
	resetLintFlags()
	lintFlags.file = "testdata/valid-rules.yaml"
	lintFlags.format = "json"

	if err := lintRules(nil, nil); err != nil {
		t.Errorf("lintRules() with JSON format returned error: %v", err)
	}
}

func TestLintRulesWarningsNotStrict(t *testing.T) {
	resetLintFlags()
	lintFlags.file = "testdata/warn-rules.yaml"

	if err := lintRules(nil, nil); err != nil {
		t.Errorf("lintRules() with warnings only returned error: %v", err)
	}
}

func TestLintRulesWarningsStrict(t *testing.T) {
	resetLintFlags()
	lintFlags.file = "testdata/warn-rules.yaml"
	lintFlags.strict = true

	if err := lintRules(nil, nil); err == nil {
		t.Error("lintRules() in strict mode should fail on warnings")
	}
}

func TestLintRuleFile(t *testing.T) {
	eng, err := rules.New(nil)
	if err != nil {
		t.Fatalf("rules.New() error = %v", err)
	}
	defer eng.Close()

	syms := lintSymbols{funcs: make(map[string]bool), tables: make(map[string]bool)}
	for _, name := range eng.Symbols().Funcs {
		syms.funcs[name] = true
		syms.funcNames = append(syms.funcNames, name)
	}

	tests := []struct {
		name       string
		file       string
		wantValid  bool
		wantIssues int
	}{
		{
			name:      "valid catalog",
			file:      "testdata/valid-rules.yaml",
			wantValid: true,
		},
		{
			name:       "invalid catalog",
			file:       "testdata/invalid-rules.yaml",
			wantValid:  false,
			wantIssues: 1,
		},
		{
			name:       "warnings only",
			file:       "testdata/warn-rules.yaml",
			wantValid:  true,
			wantIssues: 2,
		},
		{
			name:       "nonexistent file",
			file:       "testdata/nonexistent.yaml",
			wantValid:  false,
			wantIssues: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := lintRuleFile(eng, syms, tt.file)
			if result.Valid != tt.wantValid {
				t.Errorf("lintRuleFile(%q).Valid = %v, want %v", tt.file, result.Valid, tt.wantValid)
			}
			if len(result.Issues) != tt.wantIssues {
				t.Errorf("lintRuleFile(%q) issues = %d, want %d: %+v",
					tt.file, len(result.Issues), tt.wantIssues, result.Issues)
			}
		})
	}
}

func TestLintRuleFileUnknownFunctionWarning(t *testing.T) {
	eng, err := rules.New(nil)
	if err != nil {
		t.Fatalf("rules.New() error = %v", err)
	}
	defer eng.Close()

	syms := lintSymbols{funcs: make(map[string]bool), tables: make(map[string]bool)}
	for _, name := range eng.Symbols().Funcs {
		syms.funcs[name] = true
		syms.funcNames = append(syms.funcNames, name)
	}

	result := lintRuleFile(eng, syms, "testdata/warn-rules.yaml")
	var found *lintIssue
	for i := range result.Issues {
		if result.Issues[i].Code == "lint/unknown-function" {
			found = &result.Issues[i]
		}
	}
	if found == nil {
		t.Fatalf("no unknown-function warning in %+v", result.Issues)
	}
	if found.Severity != "warning" {
		t.Errorf("severity = %q, want %q", found.Severity, "warning")
	}
	if found.Suggestion == "" {
		t.Error("expected a suggestion for ROUNDD")
	}
}

func TestLintRulesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	data, err := os.ReadFile("testdata/valid-rules.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "valid.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	resetLintFlags()
	lintFlags.dir = tmpDir

	if err := lintRules(nil, nil); err != nil {
		t.Errorf("lintRules() on directory returned error: %v", err)
	}
}

func TestLintRulesEmptyDirectory(t *testing.T) {
	resetLintFlags()
	lintFlags.dir = t.TempDir()

	if err := lintRules(nil, nil); err == nil {
		t.Error("lintRules() on empty directory should return error")
	}
}
