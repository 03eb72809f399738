package diag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/eval"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/extension"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/parser"
)

func defaultProgram(t *testing.T) *parser.Program {
	t.Helper()
	handle, err := grammar.Validate(extension.DefaultDefinition())
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	return parser.Compile(handle)
}

func allFunctions() []string {
	return eval.NewRegistry(eval.AllFunctions()...).Names()
}

func TestFromParse(t *testing.T) {
	program := defaultProgram(t)
	src := "2 +\n* 3"
	_, perr := parser.Parse(src, program)
	if perr == nil {
		t.Fatal("Parse() succeeded, want error")
	}

	r := FromParse(src, perr, nil)
	if r.Code != "parse/unexpected-token" {
		t.Errorf("Code = %q, want parse/unexpected-token", r.Code)
	}
	if r.Severity != SeverityError {
		t.Errorf("Severity = %s, want error", r.Severity)
	}
	if r.Line != 2 || r.Column != 1 {
		t.Errorf("position = %d:%d, want 2:1", r.Line, r.Column)
	}
	if !strings.Contains(r.Message, "expected") {
		t.Errorf("Message = %q, want expectation phrasing", r.Message)
	}
	if got := r.String(); !strings.HasPrefix(got, "2:1 error parse/unexpected-token") {
		t.Errorf("String() = %q, want position and code prefix", got)
	}
}

func TestFromEvalUnknownFunction(t *testing.T) {
	program := defaultProgram(t)
	src := "CONCTA('a', 'b')"
	node, perr := parser.Parse(src, program)
	if perr != nil {
		t.Fatalf("Parse() failed: %v", perr)
	}
	_, eerr := eval.New().Evaluate(context.Background(), node, nil)
	if eerr == nil {
		t.Fatal("Evaluate() succeeded, want unknown function")
	}

	dict := Symbols{Funcs: allFunctions()}
	r := FromEval(src, eerr, dict)
	if r.Code != "eval/unknown-function" {
		t.Errorf("Code = %q, want eval/unknown-function", r.Code)
	}
	if want := "Did you mean 'CONCAT'?"; r.Suggestion != want {
		t.Errorf("Suggestion = %q, want %q", r.Suggestion, want)
	}
	if r.Line != 1 || r.Column != 1 {
		t.Errorf("position = %d:%d, want 1:1", r.Line, r.Column)
	}
}

func TestFromEvalUnknownAttribute(t *testing.T) {
	program := defaultProgram(t)
	src := "riskrating > 5"
	node, perr := parser.Parse(src, program)
	if perr != nil {
		t.Fatalf("Parse() failed: %v", perr)
	}
	_, eerr := eval.New().Evaluate(context.Background(), node, eval.MapContext{})
	if eerr == nil {
		t.Fatal("Evaluate() succeeded, want unknown attribute")
	}

	dict := Symbols{Attrs: []string{"risk_rating", "age"}}
	r := FromEval(src, eerr, dict)
	if r.Code != "eval/unknown-attribute" {
		t.Errorf("Code = %q, want eval/unknown-attribute", r.Code)
	}
	if want := "Did you mean 'risk_rating'?"; r.Suggestion != want {
		t.Errorf("Suggestion = %q, want %q", r.Suggestion, want)
	}
}

func TestFromEvalLookupMissIsWarning(t *testing.T) {
	program := defaultProgram(t)
	src := "LOOKUP('US', 'countries')"
	node, perr := parser.Parse(src, program)
	if perr != nil {
		t.Fatalf("Parse() failed: %v", perr)
	}
	_, eerr := eval.New().Evaluate(context.Background(), node, nil)
	if eerr == nil {
		t.Fatal("Evaluate() succeeded, want lookup miss")
	}

	r := FromEval(src, eerr, nil)
	if r.Code != "eval/lookup-miss" {
		t.Errorf("Code = %q, want eval/lookup-miss", r.Code)
	}
	if r.Severity != SeverityWarning {
		t.Errorf("Severity = %s, want warning", r.Severity)
	}
}

func TestFromEvalDistantNameListsValid(t *testing.T) {
	dict := Symbols{Funcs: allFunctions()}
	eerr := &eval.Error{Kind: eval.ErrUnknownFunction, Message: `unknown function "ZZZZZZ"`}
	r := FromEval("ZZZZZZ()", eerr, dict)
	if !strings.HasPrefix(r.Suggestion, "Valid functions include:") {
		t.Errorf("Suggestion = %q, want valid-name listing", r.Suggestion)
	}
}

func TestFromGrammar(t *testing.T) {
	def := &grammar.Definition{
		Name: "dup",
		Rules: []grammar.Production{
			{Name: "expression", Text: "a"},
			{Name: "a", Text: "'X'"},
			{Name: "a", Text: "'Y'"},
		},
	}
	_, err := grammar.Validate(def)
	if err == nil {
		t.Fatal("Validate() succeeded, want duplicate rule")
	}

	reports := FromGrammar(err)
	if len(reports) != 1 {
		t.Fatalf("FromGrammar() returned %d reports, want 1", len(reports))
	}
	r := reports[0]
	if r.Code != "grammar/duplicate-rule" {
		t.Errorf("Code = %q, want grammar/duplicate-rule", r.Code)
	}
	if !strings.Contains(r.Message, `"a"`) {
		t.Errorf("Message = %q, want it to name the rule", r.Message)
	}
	if r.Line != 0 {
		t.Errorf("Line = %d, want 0 for grammar reports", r.Line)
	}

	generic := FromGrammar(errors.New("boom"))
	if len(generic) != 1 || generic[0].Code != "grammar/error" {
		t.Errorf("FromGrammar(non-grammar) = %+v, want one grammar/error report", generic)
	}
}

func TestNearest(t *testing.T) {
	funcs := []string{"CONCAT", "CONTAINS", "COUNT", "ABS", "LOOKUP"}
	tests := []struct {
		name  string
		word  string
		want  string
		found bool
	}{
		{"transposed letters", "CONCTA", "CONCAT", true},
		{"case-insensitive exact", "concat", "CONCAT", true},
		{"single dropped letter", "LOKUP", "LOOKUP", true},
		{"nothing close", "zz", "", false},
		{"empty word", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Nearest(tt.word, funcs)
			if ok != tt.found || got != tt.want {
				t.Errorf("Nearest(%q) = %q, %v, want %q, %v", tt.word, got, ok, tt.want, tt.found)
			}
		})
	}

	if _, ok := Nearest("x", nil); ok {
		t.Error("Nearest with no candidates reported a match")
	}
}

func TestComplete(t *testing.T) {
	dict := Symbols{
		Funcs: []string{"CONCAT", "CONTAINS", "COUNT", "CEIL", "ABS"},
		Words: []string{"IF", "THEN", "ELSE"},
	}

	got := Complete("con", dict, 10)
	if len(got) == 0 {
		t.Fatal("Complete(con) returned nothing")
	}
	seen := false
	for _, name := range got {
		if name == "CONCAT" {
			seen = true
		}
	}
	if !seen {
		t.Errorf("Complete(con) = %v, want CONCAT in results", got)
	}

	if got := Complete("c", dict, 2); len(got) > 2 {
		t.Errorf("Complete with limit 2 returned %d results", len(got))
	}
	if got := Complete("", dict, 5); got != nil {
		t.Errorf("Complete(empty) = %v, want nil", got)
	}
	if got := Complete("x", nil, 5); got != nil {
		t.Errorf("Complete(nil dict) = %v, want nil", got)
	}
}

func TestReportString(t *testing.T) {
	r := Report{
		Severity:   SeverityError,
		Code:       "eval/unknown-function",
		Line:       3,
		Column:     7,
		Message:    `unknown function "CONCTA"`,
		Suggestion: "Did you mean 'CONCAT'?",
	}
	want := `3:7 error eval/unknown-function: unknown function "CONCTA" (Did you mean 'CONCAT'?)`
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	bare := Report{Severity: SeverityError, Code: "grammar/left-recursion", Message: "leftmost cycle a -> a"}
	if got := bare.String(); got != "error grammar/left-recursion: leftmost cycle a -> a" {
		t.Errorf("String() = %q", got)
	}
}
