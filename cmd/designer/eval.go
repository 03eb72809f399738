package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adamtc007/data-designer-sub001/pkg/cli"
	"github.com/adamtc007/data-designer-sub001/pkg/dictionary"
)

var evalFlags struct {
	file    string
	rule    string
	attrs   string
	lookups []string
	grammar string
	sexpr   bool
	format  string
}

var evalCmd = &cobra.Command{
	Use:   "eval [expression]",
	Short: "Evaluate one expression and print its value",
	Long: `Eval parses an expression against the active grammar and evaluates it
with the attribute values from --attrs. The expression comes from the
command line, or from a rule catalog with --file and --rule.

Attribute documents map dotted attribute names to scalars or lists:

  trade.notional: 2500000
  trade.currency: USD
  risk.weight: 0.2

Examples:
  designer eval 'trade.notional * risk.weight'
  designer eval --attrs trade.yaml 'IF trade.notional > 1000000 THEN "review" ELSE "auto"'
  designer eval --file rules.yaml --rule margin-rate --attrs trade.yaml
  designer eval --lookups tiers.yaml 'LOOKUP(client.tier, "tier_discounts")'
  designer eval --sexpr '(* (+ 1 2) 3)'`,
	Args: cobra.MaximumNArgs(1),
	RunE: evalExpression,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalFlags.file, "file", "f", "", "rule catalog file to take the expression from")
	evalCmd.Flags().StringVar(&evalFlags.rule, "rule", "", "rule name in the catalog file")
	evalCmd.Flags().StringVarP(&evalFlags.attrs, "attrs", "a", "", "YAML file of attribute values")
	evalCmd.Flags().StringSliceVar(&evalFlags.lookups, "lookups", nil, "lookup table files, in addition to configured ones")
	evalCmd.Flags().StringVar(&evalFlags.grammar, "grammar", "", "grammar definition file (default: configured grammar)")
	evalCmd.Flags().BoolVar(&evalFlags.sexpr, "sexpr", false, "parse the expression as an s-expression")
	evalCmd.Flags().StringVar(&evalFlags.format, "format", "text", "output format (text, json)")
}

func evalExpression(cmd *cobra.Command, args []string) error {
	switch evalFlags.format {
	case "text", "json":
	default:
		return cli.NewConfigError("format", fmt.Sprintf("unknown output format %q (must be one of: text, json)", evalFlags.format))
	}
	text, err := resolveExpression(args)
	if err != nil {
		return err
	}

	cfg, err := loadDesignerConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	eng, err := buildEngine(cfg, logger, evalFlags.grammar, evalFlags.lookups)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	defer eng.Close()

	attrs, err := loadAttributes(evalFlags.attrs)
	if err != nil {
		return err
	}
	names := attributeNames(attrs)

	parse := eng.ParseRule
	if evalFlags.sexpr {
		parse = eng.ParseRuleSexpr
	}
	node, err := parse(text)
	if err != nil {
		printReports(eng.Explain(text, err, names...))
		return cli.NewCommandError("eval", fmt.Errorf("expression does not parse"))
	}

	value, err := eng.EvaluateRule(cmd.Context(), node, attrs)
	if err != nil {
		printReports(eng.Explain(text, err, names...))
		return cli.NewCommandError("eval", fmt.Errorf("evaluation failed"))
	}

	if evalFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"expression": text,
			"value":      jsonValue(value),
			"kind":       value.Kind().String(),
		})
	}
	fmt.Println(value.Display())
	return nil
}

// resolveExpression picks the expression text from the positional argument
// or from a rule catalog entry. Exactly one source must be given.
func resolveExpression(args []string) (string, error) {
	fromArg := len(args) == 1
	fromFile := evalFlags.file != ""

	switch {
	case fromArg && fromFile:
		return "", cli.NewConfigError("", "give an expression or --file, not both")
	case fromArg:
		return args[0], nil
	case fromFile:
		if evalFlags.rule == "" {
			return "", cli.NewConfigError("rule", "--file requires --rule to pick an entry")
		}
		rs, err := dictionary.ReadRuleFile(evalFlags.file)
		if err != nil {
			return "", err
		}
		for _, r := range rs {
			if r.Name == evalFlags.rule {
				return r.Expression, nil
			}
		}
		return "", fmt.Errorf("rule %q not found in %s", evalFlags.rule, evalFlags.file)
	default:
		return "", cli.NewConfigError("", "an expression argument or --file is required")
	}
}
