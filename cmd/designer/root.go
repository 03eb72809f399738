package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adamtc007/data-designer-sub001/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "designer",
	Short: "Rule authoring tool for the Attribute Derivation Language",
	Long: `Designer authors, checks, and runs Attribute Derivation Language rules.

Rules are arithmetic and logical expressions over dotted attribute names,
parsed against a grammar that is itself runtime data: grammar definitions
are versioned, validated, and swapped without restarting anything.

The tool provides:
  - Rule catalog linting with positioned diagnostics and suggestions
  - One-shot expression evaluation against YAML attribute documents
  - Canonical reformatting, in infix or s-expression form
  - The grammar lifecycle: validate, import, activate, audit
  - A watch loop that hot-reloads the grammar file and archives
    every activation to the dictionary store

Configuration is read from a YAML file (--config, default config.yaml)
with DESIGNER_SECTION_FIELD environment variable overrides.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure: 2 for
// configuration and usage problems, the command's own code otherwise.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default config.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	// Disable the generated completion command; completion.go registers one
	// with shell-specific install instructions.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
