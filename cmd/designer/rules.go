package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamtc007/data-designer-sub001/pkg/cli"
	"github.com/adamtc007/data-designer-sub001/pkg/dictionary"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the rule catalog in the dictionary",
	Long: `Rules manages the named rule texts in the dictionary store. The store
keeps source text only; parsing and evaluation happen in the engine, so
stored rules survive grammar changes and are re-checked with lint.

Examples:
  designer rules import --file rules.yaml
  designer rules list
  designer rules export --file backup.yaml
  designer rules rm 6b4a...`,
}

var rulesImportFlags struct {
	file    string
	grammar string
	force   bool
}

var rulesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a rule catalog file into the store",
	Long: `Import saves every rule in a catalog file to the dictionary store.
Entries with ids update the stored rule with that id; entries without ids
are created. Every expression must parse against the active grammar
unless --force is given; nothing is written when any rule fails.`,
	RunE: importRules,
}

var rulesExportFlags struct {
	file string
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the stored rule catalog to a file",
	RunE:  exportRules,
}

var rulesListFlags struct {
	format string
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rules",
	RunE:  listRules,
}

var rulesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a stored rule by id",
	Args:  cobra.ExactArgs(1),
	RunE:  removeRule,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesImportCmd)
	rulesCmd.AddCommand(rulesExportCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesRmCmd)

	rulesImportCmd.Flags().StringVarP(&rulesImportFlags.file, "file", "f", "", "rule catalog file (required)")
	rulesImportCmd.Flags().StringVar(&rulesImportFlags.grammar, "grammar", "", "grammar definition file (default: configured grammar)")
	rulesImportCmd.Flags().BoolVar(&rulesImportFlags.force, "force", false, "import without parsing the expressions")
	_ = rulesImportCmd.MarkFlagRequired("file")

	rulesExportCmd.Flags().StringVarP(&rulesExportFlags.file, "file", "f", "", "destination file (required)")
	_ = rulesExportCmd.MarkFlagRequired("file")

	rulesListCmd.Flags().StringVar(&rulesListFlags.format, "format", "text", "output format (text, json, csv)")
}

func importRules(cmd *cobra.Command, args []string) error {
	rs, err := dictionary.ReadRuleFile(rulesImportFlags.file)
	if err != nil {
		return err
	}

	cfg, err := loadDesignerConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	if !rulesImportFlags.force {
		eng, err := buildEngine(cfg, logger, rulesImportFlags.grammar, nil)
		if err != nil {
			return fmt.Errorf("building engine: %w", err)
		}
		defer eng.Close()

		bad := 0
		for _, rule := range rs {
			if _, err := eng.ParseRule(rule.Expression); err != nil {
				fmt.Fprintf(os.Stderr, "rule %q:\n", rule.Name)
				printReports(eng.Explain(rule.Expression, err))
				bad++
			}
		}
		if bad > 0 {
			return cli.NewCommandError("rules import", fmt.Errorf("%d rule(s) do not parse, nothing imported", bad))
		}
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	created, updated := 0, 0
	for i := range rs {
		isNew := rs[i].ID == ""
		if err := store.SaveRule(ctx, &rs[i]); err != nil {
			return fmt.Errorf("saving rule %q: %w", rs[i].Name, err)
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	fmt.Printf("✓ %s imported: %d created, %d updated\n", rulesImportFlags.file, created, updated)
	return nil
}

func exportRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadDesignerConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	stored, err := store.ListRules(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing rules: %w", err)
	}
	if len(stored) == 0 {
		return cli.NewCommandError("rules export", fmt.Errorf("no rules stored"))
	}

	rs := make([]dictionary.Rule, 0, len(stored))
	for _, r := range stored {
		rs = append(rs, *r)
	}
	if err := dictionary.WriteRuleFile(rulesExportFlags.file, rs); err != nil {
		return err
	}
	fmt.Printf("✓ %d rule(s) exported to %s\n", len(rs), rulesExportFlags.file)
	return nil
}

// ruleView is the machine-readable shape of a stored rule.
type ruleView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	UpdatedAt   string `json:"updated_at"`
}

// ruleList adapts stored rules to table output.
type ruleList []ruleView

// Headers implements cli.Tabular.
func (l ruleList) Headers() []string {
	return []string{"id", "name", "expression", "updated_at"}
}

// Rows implements cli.Tabular.
func (l ruleList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{r.ID, r.Name, r.Expression, r.UpdatedAt})
	}
	return rows
}

func listRules(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(rulesListFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	cfg, err := loadDesignerConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	stored, err := store.ListRules(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing rules: %w", err)
	}

	switch format {
	case cli.FormatJSON, cli.FormatCSV:
		views := make(ruleList, 0, len(stored))
		for _, r := range stored {
			views = append(views, ruleView{
				ID:          r.ID,
				Name:        r.Name,
				Description: r.Description,
				Expression:  r.Expression,
				UpdatedAt:   r.UpdatedAt.Format(timeFormat),
			})
		}
		return cli.NewFormatter(format).FormatTo(os.Stdout, views)
	default:
		if len(stored) == 0 {
			fmt.Println("no rules stored")
			return nil
		}
		fmt.Printf("%-36s %-24s %-14s %s\n", "ID", "NAME", "UPDATED", "EXPRESSION")
		for _, r := range stored {
			fmt.Printf("%-36s %-24s %-14s %s\n",
				r.ID, r.Name, humanize.Time(r.UpdatedAt), truncate(r.Expression, 48))
		}
		return nil
	}
}

func removeRule(cmd *cobra.Command, args []string) error {
	cfg, err := loadDesignerConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	id := args[0]
	rule, err := store.Rule(ctx, id)
	if err != nil {
		return fmt.Errorf("loading rule %s: %w", id, err)
	}
	if err := store.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("deleting rule %s: %w", id, err)
	}
	fmt.Printf("✓ rule %q deleted\n", rule.Name)
	return nil
}

// truncate shortens s for table display.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
