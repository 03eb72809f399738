package main

import (
	"context"
	"testing"
)

// resetEvalFlags puts the eval flags into a known state before each test.
func resetEvalFlags() {
	evalFlags.file = ""
	evalFlags.rule = ""
	evalFlags.attrs = ""
	evalFlags.lookups = nil
	evalFlags.grammar = ""
	evalFlags.sexpr = false
	evalFlags.format = "text"
	cfgFile = ""
	evalCmd.SetContext(context.Background())
}

func TestEvalExpressionLiteral(t *testing.T) {
	resetEvalFlags()

	if err := evalExpression(evalCmd, []string{"(1 + 2) * 3"}); err != nil {
		t.Errorf("evalExpression() returned error: %v", err)
	}
}

func TestEvalExpressionWithAttributes(t *testing.T) {
	resetEvalFlags()
	evalFlags.attrs = "testdata/attrs.yaml"

	if err := evalExpression(evalCmd, []string{"trade.notional * risk.weight"}); err != nil {
		t.Errorf("evalExpression() with attributes returned error: %v", err)
	}
}

func TestEvalExpressionFromCatalog(t *testing.T) {
	resetEvalFlags()
	evalFlags.file = "testdata/valid-rules.yaml"
	evalFlags.rule = "margin-rate"
	evalFlags.attrs = "testdata/attrs.yaml"

	if err := evalExpression(evalCmd, nil); err != nil {
		t.Errorf("evalExpression() from catalog returned error: %v", err)
	}
}

func TestEvalExpressionSexpr(t *testing.T) {
	resetEvalFlags()
	evalFlags.sexpr = true

	if err := evalExpression(evalCmd, []string{"(* (+ 1 2) 3)"}); err != nil {
		t.Errorf("evalExpression() with s-expression returned error: %v", err)
	}
}

func TestEvalExpressionParseFailure(t *testing.T) {
	resetEvalFlags()

	if err := evalExpression(evalCmd, []string{"1 + + +"}); err == nil {
		t.Error("evalExpression() with malformed expression should return error")
	}
}

func TestEvalExpressionJSONFormat(t *testing.T) {
	resetEvalFlags()
	evalFlags.format = "json"

	if err := evalExpression(evalCmd, []string{`CONCAT("a", "b")`}); err != nil {
		t.Errorf("evalExpression() with JSON format returned error: %v", err)
	}
}

func TestResolveExpressionValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		file    string
		rule    string
		wantErr bool
	}{
		{name: "argument only", args: []string{"1 + 2"}},
		{name: "neither argument nor file", wantErr: true},
		{name: "both argument and file", args: []string{"1"}, file: "testdata/valid-rules.yaml", wantErr: true},
		{name: "file without rule", file: "testdata/valid-rules.yaml", wantErr: true},
		{name: "file with rule", file: "testdata/valid-rules.yaml", rule: "high-value"},
		{name: "file with unknown rule", file: "testdata/valid-rules.yaml", rule: "missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEvalFlags()
			evalFlags.file = tt.file
			evalFlags.rule = tt.rule

			_, err := resolveExpression(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("resolveExpression() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
