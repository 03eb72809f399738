package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/diag"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/extension"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
	"github.com/adamtc007/data-designer-sub001/pkg/cli"
	"github.com/adamtc007/data-designer-sub001/pkg/dictionary"
)

var grammarCmd = &cobra.Command{
	Use:   "grammar",
	Short: "Manage grammar versions in the dictionary",
	Long: `Grammar manages the versioned grammar definitions in the dictionary
store. Definitions move through a one-way lifecycle: saved as drafts,
validated, activated (superseding the previous active version), and
finally archived. Superseded versions are kept forever; to roll back,
import the old definition again as a new version.

Examples:
  # Check a definition without touching the store
  designer grammar validate --file grammar.yaml

  # Import a definition and activate it in one step
  designer grammar import --file grammar.yaml --activate

  # Inspect stored versions
  designer grammar list
  designer grammar show --version 3
  designer grammar audit --version 3`,
}

var grammarValidateFlags struct {
	file   string
	format string
}

var grammarValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a grammar definition file",
	Long: `Validate decodes a grammar definition document and runs the same checks
activation runs: unknown extensions, duplicate productions, unresolved
references, precedence conflicts, and non-terminating rules. All problems
are reported in one pass. The store is not touched.`,
	RunE: validateGrammarFile,
}

var grammarImportFlags struct {
	file     string
	activate bool
	actor    string
}

var grammarImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Store a grammar definition as a new version",
	Long: `Import saves a grammar definition document to the dictionary store as a
new draft version, validates it, and records the validation in the audit
trail. An invalid definition stays stored as a draft so the editing
session can be picked up later. With --activate, a valid definition is
activated immediately.`,
	RunE: importGrammar,
}

var grammarListFlags struct {
	format string
}

var grammarListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored grammar versions",
	RunE:  listGrammarVersions,
}

var grammarShowFlags struct {
	version int
}

var grammarShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a stored grammar definition",
	Long: `Show prints the stored definition document for one version as YAML,
ready to be edited and re-imported.`,
	RunE: showGrammarVersion,
}

var grammarActivateFlags struct {
	version int
	actor   string
}

var grammarActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Activate a stored grammar version",
	Long: `Activate makes a stored version the active grammar, superseding the
previous active version. Draft versions are validated first; superseded
and archived versions cannot be activated again, import the definition
as a new version instead.`,
	RunE: activateGrammarVersion,
}

var grammarAuditFlags struct {
	version int
	format  string
}

var grammarAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the audit trail for a grammar version",
	RunE:  showGrammarAudit,
}

func init() {
	rootCmd.AddCommand(grammarCmd)
	grammarCmd.AddCommand(grammarValidateCmd)
	grammarCmd.AddCommand(grammarImportCmd)
	grammarCmd.AddCommand(grammarListCmd)
	grammarCmd.AddCommand(grammarShowCmd)
	grammarCmd.AddCommand(grammarActivateCmd)
	grammarCmd.AddCommand(grammarAuditCmd)

	grammarValidateCmd.Flags().StringVarP(&grammarValidateFlags.file, "file", "f", "", "grammar definition file (required)")
	grammarValidateCmd.Flags().StringVar(&grammarValidateFlags.format, "format", "text", "output format (text, json)")
	_ = grammarValidateCmd.MarkFlagRequired("file")

	grammarImportCmd.Flags().StringVarP(&grammarImportFlags.file, "file", "f", "", "grammar definition file (required)")
	grammarImportCmd.Flags().BoolVar(&grammarImportFlags.activate, "activate", false, "activate the version after validation")
	grammarImportCmd.Flags().StringVar(&grammarImportFlags.actor, "actor", "cli", "actor recorded in the audit trail")
	_ = grammarImportCmd.MarkFlagRequired("file")

	grammarListCmd.Flags().StringVar(&grammarListFlags.format, "format", "text", "output format (text, json, csv)")

	grammarShowCmd.Flags().IntVar(&grammarShowFlags.version, "version", 0, "version number (required)")
	_ = grammarShowCmd.MarkFlagRequired("version")

	grammarActivateCmd.Flags().IntVar(&grammarActivateFlags.version, "version", 0, "version number (required)")
	grammarActivateCmd.Flags().StringVar(&grammarActivateFlags.actor, "actor", "cli", "actor recorded in the audit trail")
	_ = grammarActivateCmd.MarkFlagRequired("version")

	grammarAuditCmd.Flags().IntVar(&grammarAuditFlags.version, "version", 0, "version number (required)")
	grammarAuditCmd.Flags().StringVar(&grammarAuditFlags.format, "format", "text", "output format (text, json, csv)")
	_ = grammarAuditCmd.MarkFlagRequired("version")
}

func validateGrammarFile(cmd *cobra.Command, args []string) error {
	def, err := loadGrammarDefinition(grammarValidateFlags.file)
	if err != nil {
		return err
	}

	reports := checkDefinition(def)
	if grammarValidateFlags.format == "json" {
		if err := writeGrammarCheckJSON(def, reports); err != nil {
			return err
		}
	} else {
		if len(reports) == 0 {
			fmt.Printf("✓ %s is valid\n", grammarValidateFlags.file)
			fmt.Printf("  name:        %s\n", def.Name)
			fmt.Printf("  productions: %d\n", len(def.Rules))
			fmt.Printf("  extensions:  %d\n", len(def.Extensions))
			fmt.Printf("  fingerprint: %s\n", def.Fingerprint())
		} else {
			fmt.Printf("✗ %s is invalid\n", grammarValidateFlags.file)
			for _, r := range reports {
				fmt.Printf("  %s\n", r.String())
			}
		}
	}

	if len(reports) > 0 {
		return cli.NewCommandError("grammar validate", fmt.Errorf("%d problem(s) found", len(reports)))
	}
	return nil
}

func importGrammar(cmd *cobra.Command, args []string) error {
	def, err := loadGrammarDefinition(grammarImportFlags.file)
	if err != nil {
		return err
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

	ctx := cmd.Context()
	version, err := store.SaveDefinition(ctx, def)
	if err != nil {
		return fmt.Errorf("saving grammar definition: %w", err)
	}

	if reports := checkDefinition(def); len(reports) > 0 {
		printReports(reports)
		fmt.Printf("⚠ %s saved as draft version %d, validation failed\n", grammarImportFlags.file, version)
		return cli.NewCommandError("grammar import", fmt.Errorf("%d problem(s) found", len(reports)))
	}

	if err := store.SetState(ctx, version, grammar.StateValidated); err != nil {
		return fmt.Errorf("marking version %d validated: %w", version, err)
	}
	if err := store.AppendAudit(ctx, &dictionary.AuditRecord{
		Version: version,
		Event:   dictionary.AuditValidated,
		Actor:   grammarImportFlags.actor,
		Detail:  "fingerprint " + def.Fingerprint(),
	}); err != nil {
		return fmt.Errorf("recording validation: %w", err)
	}

	if !grammarImportFlags.activate {
		fmt.Printf("✓ %s imported as version %d (validated)\n", grammarImportFlags.file, version)
		return nil
	}
	if err := activateStored(ctx, store, version, grammarImportFlags.actor); err != nil {
		return err
	}
	fmt.Printf("✓ %s imported as version %d (active)\n", grammarImportFlags.file, version)
	return nil
}

// grammarVersionView is the machine-readable shape of a stored version.
type grammarVersionView struct {
	Version     int    `json:"version"`
	Name        string `json:"name"`
	State       string `json:"state"`
	Fingerprint string `json:"fingerprint"`
	SavedAt     string `json:"saved_at"`
	UpdatedAt   string `json:"updated_at"`
}

// grammarVersionList adapts version entries to table output.
type grammarVersionList []grammarVersionView

// Headers implements cli.Tabular.
func (l grammarVersionList) Headers() []string {
	return []string{"version", "name", "state", "fingerprint", "saved_at", "updated_at"}
}

// Rows implements cli.Tabular.
func (l grammarVersionList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, v := range l {
		rows = append(rows, []string{
			fmt.Sprintf("%d", v.Version), v.Name, v.State, v.Fingerprint, v.SavedAt, v.UpdatedAt,
		})
	}
	return rows
}

func listGrammarVersions(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(grammarListFlags.format)
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

	entries, err := store.ListVersions(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing grammar versions: %w", err)
	}

	switch format {
	case cli.FormatJSON, cli.FormatCSV:
		views := make(grammarVersionList, 0, len(entries))
		for _, e := range entries {
			views = append(views, grammarVersionView{
				Version:     e.Version,
				Name:        e.Name,
				State:       string(e.State),
				Fingerprint: e.Fingerprint,
				SavedAt:     e.SavedAt.Format(timeFormat),
				UpdatedAt:   e.UpdatedAt.Format(timeFormat),
			})
		}
		return cli.NewFormatter(format).FormatTo(os.Stdout, views)
	default:
		if len(entries) == 0 {
			fmt.Println("no grammar versions stored")
			return nil
		}
		fmt.Printf("%-8s %-20s %-11s %-16s %s\n", "VERSION", "NAME", "STATE", "FINGERPRINT", "SAVED")
		for _, e := range entries {
			fmt.Printf("%-8d %-20s %-11s %-16s %s\n",
				e.Version, e.Name, e.State, e.Fingerprint, humanize.Time(e.SavedAt))
		}
		return nil
	}
}

func showGrammarVersion(cmd *cobra.Command, args []string) error {
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

	def, err := store.Definition(cmd.Context(), grammarShowFlags.version)
	if err != nil {
		return fmt.Errorf("loading version %d: %w", grammarShowFlags.version, err)
	}
	data, err := grammar.EncodeDefinition(def)
	if err != nil {
		return fmt.Errorf("encoding version %d: %w", grammarShowFlags.version, err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func activateGrammarVersion(cmd *cobra.Command, args []string) error {
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

	version := grammarActivateFlags.version
	if err := activateStored(cmd.Context(), store, version, grammarActivateFlags.actor); err != nil {
		return err
	}
	fmt.Printf("✓ version %d is now active\n", version)
	return nil
}

// auditRecordView is the machine-readable shape of one audit record.
type auditRecordView struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	Event     string `json:"event"`
	Actor     string `json:"actor,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// auditTrailList adapts audit records to table output.
type auditTrailList []auditRecordView

// Headers implements cli.Tabular.
func (l auditTrailList) Headers() []string {
	return []string{"timestamp", "version", "event", "actor", "detail"}
}

// Rows implements cli.Tabular.
func (l auditTrailList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{r.Timestamp, fmt.Sprintf("%d", r.Version), r.Event, r.Actor, r.Detail})
	}
	return rows
}

func showGrammarAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(grammarAuditFlags.format)
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

	trail, err := store.AuditTrail(cmd.Context(), grammarAuditFlags.version)
	if err != nil {
		return fmt.Errorf("loading audit trail: %w", err)
	}

	switch format {
	case cli.FormatJSON, cli.FormatCSV:
		views := make(auditTrailList, 0, len(trail))
		for _, r := range trail {
			views = append(views, auditRecordView{
				ID:        r.ID,
				Version:   r.Version,
				Event:     string(r.Event),
				Actor:     r.Actor,
				Detail:    r.Detail,
				Timestamp: r.Timestamp.Format(timeFormat),
			})
		}
		return cli.NewFormatter(format).FormatTo(os.Stdout, views)
	default:
		if len(trail) == 0 {
			fmt.Printf("no audit records for version %d\n", grammarAuditFlags.version)
			return nil
		}
		for _, r := range trail {
			line := fmt.Sprintf("%s  %-10s", r.Timestamp.Format(timeFormat), r.Event)
			if r.Actor != "" {
				line += "  actor=" + r.Actor
			}
			if r.Detail != "" {
				line += "  " + r.Detail
			}
			fmt.Println(line)
		}
		return nil
	}
}

// checkDefinition runs the same checks grammar activation runs and returns
// the problems as diagnostic reports.
func checkDefinition(def *grammar.Definition) []diag.Report {
	if err := extension.Verify(def.Extensions); err != nil {
		return diag.FromGrammar(err)
	}
	if _, err := grammar.Validate(def); err != nil {
		return diag.FromGrammar(err)
	}
	return nil
}

// writeGrammarCheckJSON renders a validation outcome as JSON.
func writeGrammarCheckJSON(def *grammar.Definition, reports []diag.Report) error {
	type reportView struct {
		Severity   string `json:"severity"`
		Code       string `json:"code"`
		Message    string `json:"message"`
		Suggestion string `json:"suggestion,omitempty"`
	}
	out := struct {
		Valid       bool         `json:"valid"`
		Name        string       `json:"name"`
		Productions int          `json:"productions"`
		Extensions  []string     `json:"extensions"`
		Fingerprint string       `json:"fingerprint"`
		Reports     []reportView `json:"reports,omitempty"`
	}{
		Valid:       len(reports) == 0,
		Name:        def.Name,
		Productions: len(def.Rules),
		Extensions:  def.Extensions,
		Fingerprint: def.Fingerprint(),
	}
	for _, r := range reports {
		out.Reports = append(out.Reports, reportView{
			Severity:   r.Severity.String(),
			Code:       r.Code,
			Message:    r.Message,
			Suggestion: r.Suggestion,
		})
	}
	return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, out)
}

// activateStored validates a stored version as needed, activates it, and
// records the transitions in the audit trail.
func activateStored(ctx context.Context, store dictionary.Store, version int, actor string) error {
	entry, err := storedVersion(ctx, store, version)
	if err != nil {
		return err
	}

	switch entry.State {
	case grammar.StateActive:
		return nil
	case grammar.StateDraft:
		def, err := store.Definition(ctx, version)
		if err != nil {
			return fmt.Errorf("loading version %d: %w", version, err)
		}
		if reports := checkDefinition(def); len(reports) > 0 {
			printReports(reports)
			return cli.NewCommandError("grammar activate", fmt.Errorf("version %d does not validate", version))
		}
		if err := store.SetState(ctx, version, grammar.StateValidated); err != nil {
			return fmt.Errorf("marking version %d validated: %w", version, err)
		}
		if err := store.AppendAudit(ctx, &dictionary.AuditRecord{
			Version: version,
			Event:   dictionary.AuditValidated,
			Actor:   actor,
			Detail:  "fingerprint " + def.Fingerprint(),
		}); err != nil {
			return fmt.Errorf("recording validation: %w", err)
		}
	case grammar.StateValidated:
	default:
		return fmt.Errorf("version %d is %s and cannot be activated; import the definition as a new version", version, entry.State)
	}

	prev, prevErr := store.ActiveVersion(ctx)
	if prevErr != nil && !errors.Is(prevErr, dictionary.ErrNoActiveVersion) {
		return fmt.Errorf("reading active version: %w", prevErr)
	}

	if err := store.MarkActive(ctx, version); err != nil {
		return fmt.Errorf("activating version %d: %w", version, err)
	}

	detail := "initial activation"
	if prevErr == nil {
		detail = fmt.Sprintf("replaces version %d", prev)
	}
	if err := store.AppendAudit(ctx, &dictionary.AuditRecord{
		Version: version,
		Event:   dictionary.AuditActivated,
		Actor:   actor,
		Detail:  detail,
	}); err != nil {
		return fmt.Errorf("recording activation: %w", err)
	}
	if prevErr == nil && prev != version {
		if err := store.AppendAudit(ctx, &dictionary.AuditRecord{
			Version: prev,
			Event:   dictionary.AuditSuperseded,
			Actor:   actor,
			Detail:  fmt.Sprintf("superseded by version %d", version),
		}); err != nil {
			return fmt.Errorf("recording supersession: %w", err)
		}
	}
	return nil
}

// storedVersion finds one version in the store listing.
func storedVersion(ctx context.Context, store dictionary.Store, version int) (dictionary.VersionEntry, error) {
	entries, err := store.ListVersions(ctx)
	if err != nil {
		return dictionary.VersionEntry{}, fmt.Errorf("listing grammar versions: %w", err)
	}
	for _, e := range entries {
		if e.Version == version {
			return e, nil
		}
	}
	return dictionary.VersionEntry{}, fmt.Errorf("version %d: %w", version, dictionary.ErrVersionNotFound)
}
