package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/eval"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/extension"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
	"github.com/adamtc007/data-designer-sub001/pkg/rules/source"
)

type tableProvider map[string]map[string]eval.Value

func (p tableProvider) Lookup(ctx context.Context, table, key string) (eval.Value, error) {
	entries, ok := p[table]
	if !ok {
		return eval.Null(), fmt.Errorf("table %q: %w", table, eval.ErrNotFound)
	}
	v, ok := entries[key]
	if !ok {
		return eval.Null(), fmt.Errorf("key %q: %w", key, eval.ErrNotFound)
	}
	return v, nil
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	eng, err := New(nil, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func mustCompose(t *testing.T, name string, ids ...string) *grammar.Definition {
	t.Helper()
	def, err := extension.Compose(name, ids...)
	if err != nil {
		t.Fatalf("Compose(%s) error: %v", name, err)
	}
	return def
}

func TestEngineDefaultGrammar(t *testing.T) {
	eng := newTestEngine(t)

	if v, ok := eng.ActiveVersion(); !ok || v != 1 {
		t.Errorf("ActiveVersion() = %d, %v, want 1, true", v, ok)
	}

	got, err := eng.ParseAndEvaluate(context.Background(), "2 + 3 * 4", nil)
	if err != nil {
		t.Fatalf("ParseAndEvaluate() error: %v", err)
	}
	if n, ok := got.AsNumber(); !ok || n != 14 {
		t.Errorf("2 + 3 * 4 = %s, want 14", got.Display())
	}
}

func TestEngineEvaluateWithAttributes(t *testing.T) {
	eng := newTestEngine(t)

	attrs := eval.MapContext{
		"client.risk_rating": eval.Number(7),
		"client.name":        eval.String("Acme"),
	}

	node, err := eng.ParseRule("IF client.risk_rating > 5 THEN client.name & ' flagged' ELSE 'ok'")
	if err != nil {
		t.Fatalf("ParseRule() error: %v", err)
	}
	got, err := eng.EvaluateRule(context.Background(), node, attrs)
	if err != nil {
		t.Fatalf("EvaluateRule() error: %v", err)
	}
	if s, _ := got.AsString(); s != "Acme flagged" {
		t.Errorf("conditional = %s, want Acme flagged", got.Display())
	}
}

func TestEngineLookupProvider(t *testing.T) {
	provider := tableProvider{
		"countries": {"US": eval.String("United States")},
	}
	eng := newTestEngine(t, WithLookups(provider))

	got, err := eng.ParseAndEvaluate(context.Background(), "LOOKUP('US', 'countries')", nil)
	if err != nil {
		t.Fatalf("ParseAndEvaluate() error: %v", err)
	}
	if s, _ := got.AsString(); s != "United States" {
		t.Errorf("LOOKUP = %s, want United States", got.Display())
	}

	_, err = eng.ParseAndEvaluate(context.Background(), "LOOKUP('FR', 'countries')", nil)
	var eerr *eval.Error
	if !errors.As(err, &eerr) || eerr.Kind != eval.ErrLookupMiss {
		t.Errorf("missing key error = %v, want lookup-miss", err)
	}
}

func TestEngineActivateDefinition(t *testing.T) {
	eng := newTestEngine(t)

	lean := mustCompose(t, "lean", grammar.ExtArithmetic)
	handle, err := eng.ActivateDefinition(lean)
	if err != nil {
		t.Fatalf("ActivateDefinition() error: %v", err)
	}
	if handle.Version() != 2 {
		t.Errorf("activated version = %d, want 2", handle.Version())
	}
	if v, _ := eng.ActiveVersion(); v != 2 {
		t.Errorf("ActiveVersion() = %d, want 2", v)
	}

	// Arithmetic still parses; string literals are no longer in the grammar.
	if _, err := eng.ParseRule("-2 ** 2"); err != nil {
		t.Errorf("ParseRule(-2 ** 2) under lean grammar error: %v", err)
	}
	if _, err := eng.ParseRule("'hello'"); err == nil {
		t.Error("ParseRule('hello') succeeded under a grammar without strings")
	}

	// The superseded version is retained, not deleted.
	infos := eng.Versions()
	if len(infos) != 2 {
		t.Fatalf("Versions() returned %d entries, want 2", len(infos))
	}
	if infos[0].State != grammar.StateSuperseded {
		t.Errorf("version 1 state = %s, want %s", infos[0].State, grammar.StateSuperseded)
	}
	if infos[1].State != grammar.StateActive {
		t.Errorf("version 2 state = %s, want %s", infos[1].State, grammar.StateActive)
	}
}

func TestEngineActivationHook(t *testing.T) {
	var seen []int
	eng := newTestEngine(t, WithActivationHook(func(h *grammar.Handle) {
		seen = append(seen, h.Version())
	}))

	lean := mustCompose(t, "lean", grammar.ExtArithmetic)
	if _, err := eng.ActivateDefinition(lean); err != nil {
		t.Fatalf("ActivateDefinition() error: %v", err)
	}

	// One call for the initial grammar, one for the activation.
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("hook saw versions %v, want [1 2]", seen)
	}

	// A rejected definition never reaches the hook.
	bad := extension.DefaultDefinition()
	bad.Rules = append(bad.Rules, grammar.Production{Name: bad.Rules[0].Name, Text: "'x'"})
	if _, err := eng.ActivateDefinition(bad); err == nil {
		t.Fatal("ActivateDefinition(duplicate rule) = nil error, want error")
	}
	if len(seen) != 2 {
		t.Errorf("hook ran on a rejected activation, saw %v", seen)
	}
}

func TestEngineRejectsInvalidDefinition(t *testing.T) {
	eng := newTestEngine(t)

	bad := extension.DefaultDefinition()
	bad.Name = "broken"
	bad.Rules = append(bad.Rules, grammar.Production{Name: bad.Rules[0].Name, Text: "'x'"})

	_, err := eng.ActivateDefinition(bad)
	if err == nil {
		t.Fatal("ActivateDefinition(duplicate rule) = nil error, want error")
	}
	var list *grammar.ErrorList
	if !errors.As(err, &list) || len(list.ByKind(grammar.ErrDuplicateRule)) == 0 {
		t.Errorf("error %v does not report a duplicate rule", err)
	}

	// The default grammar keeps serving.
	if v, _ := eng.ActiveVersion(); v != 1 {
		t.Errorf("ActiveVersion() after rejected edit = %d, want 1", v)
	}
	if _, err := eng.ParseRule("1 + 1"); err != nil {
		t.Errorf("ParseRule() after rejected edit error: %v", err)
	}
}

func TestEngineRejectsUnknownExtension(t *testing.T) {
	eng := newTestEngine(t)

	def := extension.DefaultDefinition()
	def.Extensions = append(def.Extensions, "telepathy")

	_, err := eng.ActivateDefinition(def)
	var unknown *extension.UnknownError
	if !errors.As(err, &unknown) || unknown.ID != "telepathy" {
		t.Errorf("ActivateDefinition error = %v, want unknown extension telepathy", err)
	}
}

func TestEngineFunctionSetFollowsGrammar(t *testing.T) {
	eng := newTestEngine(t)

	// All extensions: CONCAT resolves.
	if _, err := eng.ParseAndEvaluate(context.Background(), "CONCAT('a', 'b')", nil); err != nil {
		t.Fatalf("CONCAT under default grammar error: %v", err)
	}

	// Without the strings extension the string built-ins are gone, even
	// though call syntax still parses.
	noStrings := mustCompose(t, "no-strings",
		grammar.ExtArithmetic, grammar.ExtFunctions, grammar.ExtAttributes)
	if _, err := eng.ActivateDefinition(noStrings); err != nil {
		t.Fatalf("ActivateDefinition() error: %v", err)
	}

	if _, err := eng.ParseAndEvaluate(context.Background(), "ABS(0 - 2)", nil); err != nil {
		t.Errorf("ABS under no-strings grammar error: %v", err)
	}
	_, err := eng.ParseAndEvaluate(context.Background(), "UPPER(x)", eval.MapContext{"x": eval.String("a")})
	var eerr *eval.Error
	if !errors.As(err, &eerr) || eerr.Kind != eval.ErrUnknownFunction {
		t.Errorf("UPPER under no-strings grammar = %v, want unknown-function", err)
	}
}

func TestEngineSnapshotPinsVersion(t *testing.T) {
	eng := newTestEngine(t)

	snap, err := eng.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if snap.Version() != 1 {
		t.Fatalf("Snapshot().Version() = %d, want 1", snap.Version())
	}

	noRegex := mustCompose(t, "no-regex",
		grammar.ExtArithmetic, grammar.ExtStrings, grammar.ExtFunctions,
		grammar.ExtLookups, grammar.ExtAttributes)
	if _, err := eng.ActivateDefinition(noRegex); err != nil {
		t.Fatalf("ActivateDefinition() error: %v", err)
	}

	// The engine moved on; the snapshot still parses regex matches.
	if _, err := eng.ParseRule("x ~ /^[0-9]+$/"); err == nil {
		t.Error("engine still accepts ~ after regex was disabled")
	}
	if snap.Version() != 1 {
		t.Errorf("snapshot version changed to %d after activation", snap.Version())
	}
	node, err := snap.Parse("x ~ /^[0-9]+$/")
	if err != nil {
		t.Fatalf("snapshot Parse() error: %v", err)
	}
	got, err := snap.Evaluate(context.Background(), node, eval.MapContext{"x": eval.String("42199")})
	if err != nil {
		t.Fatalf("snapshot Evaluate() error: %v", err)
	}
	if b, _ := got.AsBool(); !b {
		t.Errorf("snapshot evaluation = %s, want true", got.Display())
	}
}

func TestEngineActivationAtomicUnderLoad(t *testing.T) {
	eng := newTestEngine(t)

	defA := mustCompose(t, "flip-a", extension.IDs()...)
	defB := mustCompose(t, "flip-b", extension.IDs()...)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errCh := make(chan error, 8)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				v, err := eng.ParseAndEvaluate(context.Background(), "2 + 3 * 4", nil)
				if err != nil {
					errCh <- err
					return
				}
				if n, ok := v.AsNumber(); !ok || n != 14 {
					errCh <- fmt.Errorf("got %s, want 14", v.Display())
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		def := defA
		if i%2 == 1 {
			def = defB
		}
		if _, err := eng.ActivateDefinition(def); err != nil {
			t.Fatalf("ActivateDefinition() during load error: %v", err)
		}
	}
	close(stop)
	wg.Wait()

	select {
	case err := <-errCh:
		t.Fatalf("parse/eval failed during activation storm: %v", err)
	default:
	}

	if got := len(eng.Versions()); got != 51 {
		t.Errorf("Versions() returned %d entries, want 51", got)
	}
}

func TestEngineReloadFromSource(t *testing.T) {
	src := source.NewMemorySource(extension.DefaultDefinition())
	eng := newTestEngine(t, WithSource(src))

	if v, _ := eng.ActiveVersion(); v != 1 {
		t.Fatalf("initial ActiveVersion() = %d, want 1", v)
	}

	src.Update(mustCompose(t, "updated", grammar.ExtArithmetic, grammar.ExtFunctions))

	deadline := time.Now().Add(5 * time.Second)
	for {
		if v, _ := eng.ActiveVersion(); v == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("engine never picked up the source update")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := eng.ParseRule("'text'"); err == nil {
		t.Error("string literal parsed under the updated arithmetic-only grammar")
	}
}

func TestEngineReloadKeepsServingOnBadSource(t *testing.T) {
	src := source.NewMemorySource(extension.DefaultDefinition())
	eng := newTestEngine(t, WithSource(src))

	bad := extension.DefaultDefinition()
	bad.Rules = append(bad.Rules, grammar.Production{Name: "orphan", Text: "missing_rule"})
	src.SetDefinition(bad)

	if err := eng.Reload(context.Background()); err == nil {
		t.Fatal("Reload() with invalid definition = nil error, want error")
	}
	if v, _ := eng.ActiveVersion(); v != 1 {
		t.Errorf("ActiveVersion() after failed reload = %d, want 1", v)
	}
	if _, err := eng.ParseAndEvaluate(context.Background(), "1 + 1", nil); err != nil {
		t.Errorf("engine stopped serving after failed reload: %v", err)
	}
}

func TestEngineReloadWithoutSource(t *testing.T) {
	eng := newTestEngine(t)
	if err := eng.Reload(context.Background()); err == nil {
		t.Error("Reload() without source = nil error, want error")
	}
}

func TestEngineSymbols(t *testing.T) {
	eng := newTestEngine(t)

	syms := eng.Symbols("risk_rating", "age")

	found := func(list []string, want string) bool {
		for _, s := range list {
			if s == want {
				return true
			}
		}
		return false
	}
	if !found(syms.Funcs, "CONCAT") {
		t.Error("Symbols().Funcs missing CONCAT")
	}
	if !found(syms.Words, "IF") {
		t.Error("Symbols().Words missing IF")
	}
	if !found(syms.Attrs, "risk_rating") {
		t.Error("Symbols().Attrs missing risk_rating")
	}
}

func TestEngineExplain(t *testing.T) {
	eng := newTestEngine(t)

	_, err := eng.ParseRule("2 +\n* 3")
	reports := eng.Explain("2 +\n* 3", err)
	if len(reports) != 1 {
		t.Fatalf("Explain(parse error) returned %d reports, want 1", len(reports))
	}
	if reports[0].Code != "parse/unexpected-token" {
		t.Errorf("report code = %q, want parse/unexpected-token", reports[0].Code)
	}
	if reports[0].Line != 2 {
		t.Errorf("report line = %d, want 2", reports[0].Line)
	}

	_, err = eng.ParseAndEvaluate(context.Background(), "CONCTA('a', 'b')", nil)
	reports = eng.Explain("CONCTA('a', 'b')", err)
	if len(reports) != 1 {
		t.Fatalf("Explain(eval error) returned %d reports, want 1", len(reports))
	}
	if want := "Did you mean 'CONCAT'?"; reports[0].Suggestion != want {
		t.Errorf("suggestion = %q, want %q", reports[0].Suggestion, want)
	}

	if reports := eng.Explain("x", nil); reports != nil {
		t.Errorf("Explain(nil) = %v, want nil", reports)
	}
}

func TestEngineMetrics(t *testing.T) {
	m := NewMetrics(nil)
	eng := newTestEngine(t, WithMetrics(m))

	if _, err := eng.ParseAndEvaluate(context.Background(), "1 + 2", nil); err != nil {
		t.Fatalf("ParseAndEvaluate() error: %v", err)
	}
	if _, err := eng.ParseRule("1 +"); err == nil {
		t.Fatal("ParseRule(1 +) = nil error, want parse error")
	}
	if _, err := eng.ParseAndEvaluate(context.Background(), "1 / 0", nil); err == nil {
		t.Fatal("ParseAndEvaluate(1 / 0) = nil error, want eval error")
	}

	if got := testutil.ToFloat64(m.parsesTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("parses_total{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.parsesTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("parses_total{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.evalsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("evals_total{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal.WithLabelValues("eval", "division-by-zero")); got != 1 {
		t.Errorf("errors_total{eval,division-by-zero} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.activeVersion); got != 1 {
		t.Errorf("active_grammar_version = %v, want 1", got)
	}
}

func TestEngineConfigValidation(t *testing.T) {
	if _, err := New(&Config{MaxRuleBytes: -1, MaxDepth: 10}); err == nil {
		t.Error("New(negative MaxRuleBytes) = nil error, want error")
	}
	if _, err := New(&Config{MaxRuleBytes: 1024, MaxDepth: 0}); err == nil {
		t.Error("New(zero MaxDepth) = nil error, want error")
	}

	eng, err := New(&Config{MaxRuleBytes: 8, MaxDepth: 10})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer eng.Close()
	if _, err := eng.ParseRule(strings.Repeat("1", 16)); err == nil {
		t.Error("ParseRule() over the byte limit = nil error, want error")
	}
}

func TestEngineCloseIdempotent(t *testing.T) {
	eng, err := New(nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestEngineSurfacesAgree(t *testing.T) {
	eng := newTestEngine(t)

	infix, err := eng.ParseRule("2 + 3 * 4")
	if err != nil {
		t.Fatalf("ParseRule() error: %v", err)
	}
	sexpr, err := eng.ParseRuleSexpr("(+ 2 (* 3 4))")
	if err != nil {
		t.Fatalf("ParseRuleSexpr() error: %v", err)
	}

	a, err := eng.EvaluateRule(context.Background(), infix, nil)
	if err != nil {
		t.Fatalf("EvaluateRule(infix) error: %v", err)
	}
	b, err := eng.EvaluateRule(context.Background(), sexpr, nil)
	if err != nil {
		t.Fatalf("EvaluateRule(sexpr) error: %v", err)
	}
	if !a.Equal(b) {
		t.Errorf("surfaces disagree: %s vs %s", a.Display(), b.Display())
	}
}

func BenchmarkEngineParse(b *testing.B) {
	eng, err := New(nil)
	if err != nil {
		b.Fatal(err)
	}
	defer eng.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.ParseRule("IF risk_rating > 5 AND country = 'US' THEN base * 1.5 ELSE base"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngineEvaluate(b *testing.B) {
	eng, err := New(nil)
	if err != nil {
		b.Fatal(err)
	}
	defer eng.Close()

	node, perr := eng.ParseRule("IF risk_rating > 5 AND country = 'US' THEN base * 1.5 ELSE base")
	if perr != nil {
		b.Fatal(perr)
	}
	attrs := eval.MapContext{
		"risk_rating": eval.Number(7),
		"country":     eval.String("US"),
		"base":        eval.Number(100),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.EvaluateRule(context.Background(), node, attrs); err != nil {
			b.Fatal(err)
		}
	}
}
