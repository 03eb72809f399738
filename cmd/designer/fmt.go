package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adamtc007/data-designer-sub001/pkg/adl"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
	"github.com/adamtc007/data-designer-sub001/pkg/cli"
	"github.com/adamtc007/data-designer-sub001/pkg/dictionary"
)

var fmtFlags struct {
	file  string
	sexpr bool
	emit  string
	write bool
	check bool
}

var fmtCmd = &cobra.Command{
	Use:   "fmt [expression]",
	Short: "Reprint rules in canonical form",
	Long: `Fmt parses an expression, or every rule in a catalog file, and reprints
it in canonical form: normalized spacing, minimal parentheses, upper-case
keywords. Parsing uses the built-in default grammar.

A single expression can be read as infix or, with --sexpr, as an
s-expression, and emitted in either form with --emit. Catalog files are
always rewritten as canonical infix: by default the formatted catalog is
printed to stdout, --write rewrites the file in place, and --check only
reports rules that are not canonical.

Examples:
  designer fmt 'IF a>b THEN  "hi" ELSE "lo"'
  designer fmt --emit sexpr 'price * (1 + tax.rate)'
  designer fmt --sexpr '(* price (+ 1 tax.rate))'
  designer fmt --file rules.yaml --write
  designer fmt --file rules.yaml --check`,
	Args: cobra.MaximumNArgs(1),
	RunE: formatRules,
}

func init() {
	rootCmd.AddCommand(fmtCmd)

	fmtCmd.Flags().StringVarP(&fmtFlags.file, "file", "f", "", "rule catalog file to format")
	fmtCmd.Flags().BoolVar(&fmtFlags.sexpr, "sexpr", false, "parse the expression as an s-expression")
	fmtCmd.Flags().StringVar(&fmtFlags.emit, "emit", "text", "output form for a single expression (text, sexpr)")
	fmtCmd.Flags().BoolVarP(&fmtFlags.write, "write", "w", false, "rewrite the catalog file in place")
	fmtCmd.Flags().BoolVar(&fmtFlags.check, "check", false, "report non-canonical rules without writing")
}

func formatRules(cmd *cobra.Command, args []string) error {
	switch fmtFlags.emit {
	case "text", "sexpr":
	default:
		return cli.NewConfigError("emit", fmt.Sprintf("unknown output form %q (must be one of: text, sexpr)", fmtFlags.emit))
	}

	if len(args) == 1 {
		if fmtFlags.file != "" {
			return cli.NewConfigError("", "give an expression or --file, not both")
		}
		return formatExpression(args[0])
	}
	if fmtFlags.file == "" {
		return cli.NewConfigError("", "an expression argument or --file is required")
	}
	return formatCatalog(fmtFlags.file)
}

// formatExpression reprints one expression on stdout.
func formatExpression(text string) error {
	parse := adl.Parse
	if fmtFlags.sexpr {
		parse = adl.ParseSexpr
	}
	node, err := parse(text)
	if err != nil {
		return cli.NewCommandError("fmt", err)
	}

	if fmtFlags.emit == "sexpr" {
		fmt.Println(ast.Sexpr(node))
		return nil
	}
	fmt.Println(ast.Format(node))
	return nil
}

// formatCatalog canonicalizes every rule expression in a catalog file.
func formatCatalog(path string) error {
	rs, err := dictionary.ReadRuleFile(path)
	if err != nil {
		return err
	}

	var changed []string
	for i, rule := range rs {
		node, err := adl.Parse(rule.Expression)
		if err != nil {
			return cli.NewCommandError("fmt", fmt.Errorf("rule %q: %w", rule.Name, err))
		}
		formatted := ast.Format(node)
		if formatted != rule.Expression {
			changed = append(changed, rule.Name)
			rs[i].Expression = formatted
		}
	}

	switch {
	case fmtFlags.check:
		for _, name := range changed {
			fmt.Printf("✗ rule %q is not canonical\n", name)
		}
		if len(changed) > 0 {
			return cli.NewCommandError("fmt", fmt.Errorf("%d rule(s) need formatting", len(changed)))
		}
		fmt.Printf("✓ %s: %d rule(s) canonical\n", path, len(rs))
		return nil
	case fmtFlags.write:
		if len(changed) == 0 {
			fmt.Printf("✓ %s unchanged\n", path)
			return nil
		}
		if err := dictionary.WriteRuleFile(path, rs); err != nil {
			return err
		}
		fmt.Printf("✓ %s: %d rule(s) rewritten\n", path, len(changed))
		return nil
	default:
		data, err := dictionary.MarshalRules(rs)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}
}
