package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/diag"
	"github.com/adamtc007/data-designer-sub001/pkg/cli"
	"github.com/adamtc007/data-designer-sub001/pkg/config"
	"github.com/adamtc007/data-designer-sub001/pkg/dictionary"
	"github.com/adamtc007/data-designer-sub001/pkg/rules"
)

var lintFlags struct {
	file    string
	dir     string
	grammar string
	lookups []string
	format  string
	strict  bool
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check rule catalog files",
	Long: `Lint parses every rule in one or more rule catalog files against the
active grammar and reports expressions that do not parse, calls to unknown
functions, references to unknown lookup tables, and duplicate rule names.

Parse failures are errors; the rest are warnings. With --strict, warnings
fail the run too. Lookup table references are only checked when lookup
files are configured or given with --lookups.

Examples:
  # Lint a single catalog
  designer lint --file rules.yaml

  # Lint every catalog in a directory against a custom grammar
  designer lint --dir ./rules --grammar grammar.yaml

  # Machine-readable report
  designer lint --file rules.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "rule catalog file to lint")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of rule catalog files to lint")
	lintCmd.Flags().StringVar(&lintFlags.grammar, "grammar", "", "grammar definition file (default: configured grammar)")
	lintCmd.Flags().StringSliceVar(&lintFlags.lookups, "lookups", nil, "lookup table files, in addition to configured ones")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format (text, json, csv)")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
}

// lintIssue is one finding in a rule catalog.
type lintIssue struct {
	Rule       string `json:"rule,omitempty"`
	Severity   string `json:"severity"`
	Code       string `json:"code,omitempty"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// lintFileResult is the outcome for one catalog file. Valid means the file
// loaded and every rule parsed; warnings do not make a file invalid.
type lintFileResult struct {
	File   string      `json:"file"`
	Rules  int         `json:"rules"`
	Valid  bool        `json:"valid"`
	Issues []lintIssue `json:"issues,omitempty"`
}

// lintReport is the full lint run, across all files.
type lintReport struct {
	Files    []lintFileResult `json:"files"`
	Errors   int              `json:"errors"`
	Warnings int              `json:"warnings"`
}

// Headers implements cli.Tabular.
func (r *lintReport) Headers() []string {
	return []string{"file", "rule", "severity", "code", "line", "column", "message", "suggestion"}
}

// Rows implements cli.Tabular.
func (r *lintReport) Rows() [][]string {
	var rows [][]string
	for _, f := range r.Files {
		for _, issue := range f.Issues {
			rows = append(rows, []string{
				f.File,
				issue.Rule,
				issue.Severity,
				issue.Code,
				fmt.Sprintf("%d", issue.Line),
				fmt.Sprintf("%d", issue.Column),
				issue.Message,
				issue.Suggestion,
			})
		}
	}
	return rows
}

// lintSymbols is the name universe rules are checked against: the active
// grammar's functions and the loaded lookup tables. Empty table set means
// no lookup files were given, so table references go unchecked.
type lintSymbols struct {
	funcs      map[string]bool
	funcNames  []string
	tables     map[string]bool
	tableNames []string
}

func lintRules(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return cli.NewConfigError("", "either --file or --dir must be specified")
	}
	format, err := cli.ParseFormat(lintFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	cfg, err := loadDesignerConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	eng, err := buildEngine(cfg, logger, lintFlags.grammar, nil)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	defer eng.Close()

	syms, err := collectLintSymbols(cfg, eng)
	if err != nil {
		return err
	}

	files, err := collectRuleFiles()
	if err != nil {
		return err
	}

	report := &lintReport{}
	for _, f := range files {
		result := lintRuleFile(eng, syms, f)
		for _, issue := range result.Issues {
			if issue.Severity == "error" {
				report.Errors++
			} else {
				report.Warnings++
			}
		}
		report.Files = append(report.Files, result)
	}

	if err := writeLintReport(format, report); err != nil {
		return err
	}

	if report.Errors > 0 {
		return cli.NewCommandError("lint", fmt.Errorf("%d error(s) in %d file(s)", report.Errors, len(files)))
	}
	if lintFlags.strict && report.Warnings > 0 {
		return cli.NewCommandError("lint", fmt.Errorf("%d warning(s) in %d file(s) (strict mode)", report.Warnings, len(files)))
	}
	return nil
}

// collectLintSymbols gathers the function and lookup table names available
// to the rules being checked.
func collectLintSymbols(cfg *config.Config, eng *rules.Engine) (lintSymbols, error) {
	syms := lintSymbols{
		funcs:  make(map[string]bool),
		tables: make(map[string]bool),
	}
	for _, name := range eng.Symbols().Funcs {
		syms.funcs[name] = true
		syms.funcNames = append(syms.funcNames, name)
	}

	provider, err := buildLookups(cfg, lintFlags.lookups)
	if err != nil {
		return syms, err
	}
	if provider != nil {
		for _, table := range provider.Tables() {
			syms.tables[table] = true
			syms.tableNames = append(syms.tableNames, table)
		}
	}
	return syms, nil
}

// lintRuleFile checks one catalog file: every rule must parse, and parsed
// rules are scanned for statically detectable evaluation problems.
func lintRuleFile(eng *rules.Engine, syms lintSymbols, path string) lintFileResult {
	result := lintFileResult{File: path, Valid: true}

	rs, err := dictionary.ReadRuleFile(path)
	if err != nil {
		result.Valid = false
		result.Issues = append(result.Issues, lintIssue{
			Severity: "error",
			Code:     "lint/load",
			Message:  err.Error(),
		})
		return result
	}
	result.Rules = len(rs)

	seen := make(map[string]bool, len(rs))
	for _, rule := range rs {
		if seen[rule.Name] {
			result.Issues = append(result.Issues, lintIssue{
				Rule:     rule.Name,
				Severity: "warning",
				Code:     "lint/duplicate-name",
				Message:  fmt.Sprintf("rule name %q appears more than once", rule.Name),
			})
		}
		seen[rule.Name] = true

		node, err := eng.ParseRule(rule.Expression)
		if err != nil {
			result.Valid = false
			for _, r := range eng.Explain(rule.Expression, err) {
				result.Issues = append(result.Issues, lintIssue{
					Rule:       rule.Name,
					Severity:   r.Severity.String(),
					Code:       r.Code,
					Line:       r.Line,
					Column:     r.Column,
					Message:    r.Message,
					Suggestion: r.Suggestion,
				})
			}
			continue
		}
		result.Issues = append(result.Issues, scanRule(rule.Name, node, syms)...)
	}
	return result
}

// scanRule walks a parsed rule for problems that would only surface at
// evaluation time: unknown function names and unknown lookup tables.
func scanRule(name string, node ast.Node, syms lintSymbols) []lintIssue {
	var issues []lintIssue
	ast.Walk(node, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.Call:
			// Call names are normalized to upper case by the parser.
			if !syms.funcs[x.Name] {
				issue := lintIssue{
					Rule:     name,
					Severity: "warning",
					Code:     "lint/unknown-function",
					Message:  fmt.Sprintf("unknown function %q", x.Name),
				}
				if near, ok := diag.Nearest(x.Name, syms.funcNames); ok {
					issue.Suggestion = fmt.Sprintf("did you mean %q?", near)
				}
				issues = append(issues, issue)
			}
		case *ast.Lookup:
			if len(syms.tables) > 0 && !syms.tables[x.Table] {
				issue := lintIssue{
					Rule:     name,
					Severity: "warning",
					Code:     "lint/unknown-table",
					Message:  fmt.Sprintf("unknown lookup table %q", x.Table),
				}
				if near, ok := diag.Nearest(x.Table, syms.tableNames); ok {
					issue.Suggestion = fmt.Sprintf("did you mean %q?", near)
				}
				issues = append(issues, issue)
			}
		}
		return true
	})
	return issues
}

// collectRuleFiles resolves --file and --dir into the list of catalog files
// to check, sorted by name.
func collectRuleFiles() ([]string, error) {
	if lintFlags.file != "" {
		return []string{lintFlags.file}, nil
	}

	entries, err := os.ReadDir(lintFlags.dir)
	if err != nil {
		return nil, fmt.Errorf("reading rule directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(lintFlags.dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no rule files found in %s", lintFlags.dir)
	}
	sort.Strings(files)
	return files, nil
}

// writeLintReport renders the report to stdout in the selected format.
func writeLintReport(format cli.OutputFormat, report *lintReport) error {
	switch format {
	case cli.FormatJSON:
		return cli.NewFormatter(format).FormatTo(os.Stdout, report)
	case cli.FormatCSV:
		return cli.NewFormatter(format).FormatTo(os.Stdout, report)
	default:
		for _, f := range report.Files {
			switch {
			case !f.Valid:
				fmt.Printf("✗ %s\n", f.File)
			case len(f.Issues) > 0:
				fmt.Printf("⚠ %s: %d rule(s)\n", f.File, f.Rules)
			default:
				fmt.Printf("✓ %s: %d rule(s)\n", f.File, f.Rules)
			}
			for _, issue := range f.Issues {
				pos := ""
				if issue.Line > 0 {
					pos = fmt.Sprintf("%d:%d ", issue.Line, issue.Column)
				}
				line := fmt.Sprintf("  %s%s %s: %s", pos, issue.Severity, issue.Rule, issue.Message)
				if issue.Suggestion != "" {
					line += fmt.Sprintf(" (%s)", issue.Suggestion)
				}
				fmt.Println(line)
			}
		}
		fmt.Printf("\n%d file(s) checked, %d error(s), %d warning(s)\n",
			len(report.Files), report.Errors, report.Warnings)
		return nil
	}
}
