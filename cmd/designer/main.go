// Designer is the authoring tool for the Attribute Derivation Language, a
// grammar-driven expression engine for data dictionary rules.
//
// It parses and evaluates derivation rules, checks rule catalogs, reprints
// rules in canonical form, and manages the grammar lifecycle: grammar
// definitions are versioned documents that move through draft, validated,
// active, and superseded states, with every activation recorded in an audit
// trail.
//
// Usage:
//
//	# Evaluate an expression against a set of attribute values
//	designer eval --attrs trade.yaml 'trade.notional * risk.weight'
//
//	# Check every rule in a catalog
//	designer lint --file rules.yaml
//
//	# Reprint a rule in canonical form
//	designer fmt 'IF a>b THEN "hi" ELSE "lo"'
//
//	# Import a grammar definition and activate it
//	designer grammar import --file grammar.yaml --activate
//
//	# Watch the configured grammar file and archive every activation
//	designer watch
//
//	# Show version information
//	designer version
//
// For complete documentation, see: https://github.com/adamtc007/data-designer-sub001
package main

func main() {
	Execute()
}
