//go:build integration

package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/extension"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// TestLintPipeline runs the lint command against valid and broken catalogs.
func TestLintPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildDesignerBinary(t)

	ruleFile := filepath.Join(tmpDir, "rules.yaml")
	createRuleFile(t, ruleFile, `rules:
  - name: high-value
    expression: trade.notional > 1000000
  - name: rounded-fee
    expression: ROUND(trade.notional * 0.0025)
`)

	t.Log("Step 1: Linting a valid catalog...")
	lintCmd := exec.Command(binaryPath, "lint", "--file", ruleFile)
	output, err := lintCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("lint failed: %v\nOutput: %s", err, output)
	}
	if !bytes.Contains(output, []byte("0 error(s)")) {
		t.Errorf("expected clean lint summary, got: %s", output)
	}

	t.Log("Step 2: Linting a broken catalog...")
	brokenFile := filepath.Join(tmpDir, "broken.yaml")
	createRuleFile(t, brokenFile, `rules:
  - name: broken
    expression: trade.notional > >
`)

	lintCmd = exec.Command(binaryPath, "lint", "--file", brokenFile)
	output, err = lintCmd.CombinedOutput()
	if err == nil {
		t.Fatalf("lint should fail on a broken catalog\nOutput: %s", output)
	}
	if exitCode(err) != 1 {
		t.Errorf("lint exit code = %d, want 1", exitCode(err))
	}

	t.Log("Step 3: Lint with JSON output...")
	lintCmd = exec.Command(binaryPath, "lint", "--file", ruleFile, "--format", "json")
	output, err = lintCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("lint with JSON output failed: %v\nOutput: %s", err, output)
	}

	var report map[string]interface{}
	if err := json.Unmarshal(output, &report); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if report["files"] == nil {
		t.Fatalf("JSON output missing 'files' field: %+v", report)
	}
}

// TestEvalOutput evaluates expressions through the binary in both formats.
func TestEvalOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildDesignerBinary(t)

	attrsFile := filepath.Join(tmpDir, "attrs.yaml")
	if err := os.WriteFile(attrsFile, []byte("trade.notional: 2000000\n"), 0644); err != nil {
		t.Fatalf("failed to create attributes file: %v", err)
	}

	cmd := exec.Command(binaryPath, "eval", "--attrs", attrsFile, "trade.notional * 0.0025")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("eval failed: %v\nOutput: %s", err, output)
	}
	if !bytes.Contains(output, []byte("5000")) {
		t.Errorf("expected 5000 in eval output, got: %s", output)
	}

	cmd = exec.Command(binaryPath, "eval", "--format", "json", `CONCAT("a", "b")`)
	output, err = cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("eval with JSON output failed: %v\nOutput: %s", err, output)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(output, &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if result["value"] != "ab" {
		t.Errorf("eval value = %v, want ab", result["value"])
	}
	if result["kind"] != "string" {
		t.Errorf("eval kind = %v, want string", result["kind"])
	}

	cmd = exec.Command(binaryPath, "eval", "1 + +")
	output, err = cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("eval should fail on a malformed expression\nOutput: %s", output)
	}
	if exitCode(err) != 1 {
		t.Errorf("eval exit code = %d, want 1", exitCode(err))
	}
}

// TestGrammarPipeline imports, activates, and audits grammar versions against
// a sqlite-backed dictionary.
func TestGrammarPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildDesignerBinary(t)

	configFile := filepath.Join(tmpDir, "config.yaml")
	createTestConfig(t, configFile, fmt.Sprintf(`
dictionary:
  backend: sqlite
  sqlite:
    path: %q

logging:
  level: warn
`, filepath.Join(tmpDir, "dictionary.db")))

	grammarFile := filepath.Join(tmpDir, "grammar.yaml")
	createGrammarFile(t, grammarFile)

	t.Log("Step 1: Validating the definition...")
	cmd := exec.Command(binaryPath, "grammar", "validate", "--file", grammarFile)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("grammar validate failed: %v\nOutput: %s", err, output)
	}
	if !bytes.Contains(output, []byte("valid")) {
		t.Errorf("expected 'valid' in output, got: %s", output)
	}

	t.Log("Step 2: Importing and activating...")
	cmd = exec.Command(binaryPath, "grammar", "import",
		"--config", configFile,
		"--file", grammarFile,
		"--activate",
		"--actor", "integration")
	output, err = cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("grammar import failed: %v\nOutput: %s", err, output)
	}
	if !bytes.Contains(output, []byte("version 1 (active)")) {
		t.Errorf("expected activation message, got: %s", output)
	}

	t.Log("Step 3: Listing versions as JSON...")
	cmd = exec.Command(binaryPath, "grammar", "list",
		"--config", configFile,
		"--format", "json")
	output, err = cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("grammar list failed: %v\nOutput: %s", err, output)
	}

	var versions []map[string]interface{}
	if err := json.Unmarshal(output, &versions); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if len(versions) != 1 {
		t.Fatalf("expected 1 version, got %d", len(versions))
	}
	if versions[0]["state"] != "active" {
		t.Errorf("version state = %v, want active", versions[0]["state"])
	}

	t.Log("Step 4: Reading the audit trail...")
	cmd = exec.Command(binaryPath, "grammar", "audit",
		"--config", configFile,
		"--version", "1",
		"--format", "json")
	output, err = cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("grammar audit failed: %v\nOutput: %s", err, output)
	}

	var trail []map[string]interface{}
	if err := json.Unmarshal(output, &trail); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if len(trail) < 2 {
		t.Fatalf("expected validated and activated events, got %d records", len(trail))
	}
	if trail[0]["event"] != "validated" {
		t.Errorf("first event = %v, want validated", trail[0]["event"])
	}
	if trail[0]["actor"] != "integration" {
		t.Errorf("audit actor = %v, want integration", trail[0]["actor"])
	}
}

// TestRuleCatalogPipeline imports rules into the dictionary and lists them.
func TestRuleCatalogPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildDesignerBinary(t)

	configFile := filepath.Join(tmpDir, "config.yaml")
	createTestConfig(t, configFile, fmt.Sprintf(`
dictionary:
  backend: sqlite
  sqlite:
    path: %q

logging:
  level: warn
`, filepath.Join(tmpDir, "dictionary.db")))

	ruleFile := filepath.Join(tmpDir, "rules.yaml")
	createRuleFile(t, ruleFile, `rules:
  - name: high-value
    expression: trade.notional > 1000000
`)

	cmd := exec.Command(binaryPath, "rules", "import",
		"--config", configFile,
		"--file", ruleFile)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("rules import failed: %v\nOutput: %s", err, output)
	}
	if !bytes.Contains(output, []byte("1 created")) {
		t.Errorf("expected '1 created' in output, got: %s", output)
	}

	cmd = exec.Command(binaryPath, "rules", "list",
		"--config", configFile,
		"--format", "json")
	output, err = cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("rules list failed: %v\nOutput: %s", err, output)
	}

	var rules []map[string]interface{}
	if err := json.Unmarshal(output, &rules); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if rules[0]["name"] != "high-value" {
		t.Errorf("rule name = %v, want high-value", rules[0]["name"])
	}
}

// TestCommandVersionOutput tests the version command.
func TestCommandVersionOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	binaryPath := buildDesignerBinary(t)

	cmd := exec.Command(binaryPath, "version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("version command failed: %v\nOutput: %s", err, output)
	}
	if !bytes.Contains(output, []byte("designer")) {
		t.Errorf("version output should contain 'designer', got: %s", output)
	}
}

// Helper functions

// buildDesignerBinary builds the designer binary for testing
func buildDesignerBinary(t *testing.T) string {
	t.Helper()

	binaryPath := "../bin/designer"
	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath
	}

	t.Log("Building designer binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/designer")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build designer: %v\nOutput: %s", err, output)
	}

	return binaryPath
}

// exitCode extracts the process exit code from a CombinedOutput error.
func exitCode(err error) int {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// createTestConfig creates a test configuration file
func createTestConfig(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}
}

// createRuleFile creates a rule catalog file
func createRuleFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create rule file: %v", err)
	}
}

// createGrammarFile writes the default definition so the test does not depend
// on a hand-maintained YAML copy of the grammar.
func createGrammarFile(t *testing.T, path string) {
	t.Helper()

	data, err := grammar.EncodeDefinition(extension.DefaultDefinition())
	if err != nil {
		t.Fatalf("failed to encode definition: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to create grammar file: %v", err)
	}
}
