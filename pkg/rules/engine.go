// Package rules is the engine orchestrator: it owns the grammar registry,
// caches one compiled parser program per grammar version, derives the built-in
// function set from the active grammar's extensions, and routes rule text
// through parse and evaluation with metrics on every outcome.
//
// Grammar edits go through ActivateDefinition or a watched source; both paths
// are all-or-nothing. A rejected definition leaves the previously active
// version serving, and in-flight work pinned by Snapshot finishes on the
// version it started with.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/diag"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/eval"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/extension"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
	"github.com/adamtc007/data-designer-sub001/pkg/adl/parser"
	"github.com/adamtc007/data-designer-sub001/pkg/rules/source"
)

// Config contains engine configuration.
type Config struct {
	// MaxRuleBytes is the maximum accepted rule text length.
	MaxRuleBytes int

	// MaxDepth is the maximum expression nesting depth.
	MaxDepth int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxRuleBytes: parser.DefaultMaxInputBytes,
		MaxDepth:     parser.DefaultMaxDepth,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.MaxRuleBytes <= 0 {
		return fmt.Errorf("max rule bytes must be positive, got %d", c.MaxRuleBytes)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive, got %d", c.MaxDepth)
	}
	return nil
}

// compiled is one grammar version ready to serve: the immutable handle, its
// parser program and configured parser, and an evaluator carrying the
// function set the version's extensions contribute.
type compiled struct {
	handle    *grammar.Handle
	program   *parser.Program
	parser    *parser.Parser
	funcs     *eval.Registry
	evaluator *eval.Evaluator
}

// Engine evaluates rule expressions against a runtime-editable grammar.
// All methods are safe for concurrent use. Parse and evaluation never block
// on grammar edits: the active version is read through an atomic handle, and
// activation swaps it in one store.
type Engine struct {
	config  *Config
	logger  *slog.Logger
	metrics *Metrics

	registry   *grammar.Registry
	src        source.Source
	initial    *grammar.Definition
	lookups    eval.Provider
	funcs      *eval.Registry // Overrides extension-derived built-ins when set
	onActivate func(*grammar.Handle)

	programsMu sync.RWMutex
	programs   map[int]*compiled

	stopCh      chan struct{}
	wg          sync.WaitGroup
	cancelWatch context.CancelFunc
	closeOnce   sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSource sets a grammar source. The engine loads its initial grammar
// from the source and reloads on watch events. A configured source takes
// precedence over WithDefinition.
func WithSource(src source.Source) Option {
	return func(e *Engine) {
		e.src = src
	}
}

// WithDefinition sets the initial grammar definition for engines without a
// source. Without this, the engine starts on the default grammar with all
// extensions enabled.
func WithDefinition(def *grammar.Definition) Option {
	return func(e *Engine) {
		e.initial = def
	}
}

// WithLookups sets the provider behind LOOKUP expressions.
func WithLookups(p eval.Provider) Option {
	return func(e *Engine) {
		e.lookups = p
	}
}

// WithFunctions replaces the extension-derived built-in set with a fixed
// registry, for hosts that register their own functions.
func WithFunctions(r *eval.Registry) Option {
	return func(e *Engine) {
		e.funcs = r
	}
}

// WithMetrics sets the metrics instance. Defaults to a fresh instance on a
// private Prometheus registry.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithActivationHook registers a function the engine calls after every
// successful activation, with the newly active handle. Hosts use it to
// observe activations, for example to archive each version in a persistent
// store. The hook runs synchronously on the activating goroutine and must
// not call back into the engine.
func WithActivationHook(fn func(*grammar.Handle)) Option {
	return func(e *Engine) {
		e.onActivate = fn
	}
}

// New creates an engine and activates its initial grammar: from the source
// when one is configured, from WithDefinition otherwise, falling back to the
// default grammar. Engines with a source watch it for changes until Close.
func New(cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		config:   cfg,
		registry: grammar.NewRegistry(),
		programs: make(map[int]*compiled),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}

	ctx := context.Background()
	switch {
	case e.src != nil:
		if err := e.Reload(ctx); err != nil {
			return nil, fmt.Errorf("failed to load initial grammar: %w", err)
		}
		e.startWatching()
	case e.initial != nil:
		if _, err := e.ActivateDefinition(e.initial); err != nil {
			return nil, fmt.Errorf("failed to activate initial grammar: %w", err)
		}
	default:
		if _, err := e.ActivateDefinition(extension.DefaultDefinition()); err != nil {
			return nil, fmt.Errorf("failed to activate default grammar: %w", err)
		}
	}

	return e, nil
}

// ParseRule parses one rule expression against the active grammar. It
// returns either one complete tree or one structured error, never a partial
// tree.
func (e *Engine) ParseRule(text string) (ast.Node, error) {
	c, err := e.active()
	if err != nil {
		return nil, err
	}
	return e.parse(c, text)
}

// ParseRuleSexpr parses the S-expression surface against the active grammar.
// Both surfaces produce structurally equal trees for equivalent input.
func (e *Engine) ParseRuleSexpr(text string) (ast.Node, error) {
	c, err := e.active()
	if err != nil {
		return nil, err
	}
	return e.parseSexpr(c, text)
}

// EvaluateRule evaluates a parsed rule against an attribute context using
// the active grammar's function set.
func (e *Engine) EvaluateRule(ctx context.Context, node ast.Node, attrs eval.AttributeContext) (eval.Value, error) {
	c, err := e.active()
	if err != nil {
		return eval.Null(), err
	}
	return e.evaluate(ctx, c, node, attrs)
}

// ParseAndEvaluate parses and evaluates rule text in one call. Both phases
// run against the same grammar version even if an activation lands between
// them.
func (e *Engine) ParseAndEvaluate(ctx context.Context, text string, attrs eval.AttributeContext) (eval.Value, error) {
	c, err := e.active()
	if err != nil {
		return eval.Null(), err
	}
	node, err := e.parse(c, text)
	if err != nil {
		return eval.Null(), err
	}
	return e.evaluate(ctx, c, node, attrs)
}

// ActivateDefinition submits, validates, and activates a grammar definition
// in one all-or-nothing step. On failure the previously active version keeps
// serving and the returned error lists every problem found.
func (e *Engine) ActivateDefinition(def *grammar.Definition) (*grammar.Handle, error) {
	if def == nil {
		return nil, fmt.Errorf("nil grammar definition")
	}
	if err := extension.Verify(def.Extensions); err != nil {
		e.metrics.RecordError("grammar", "unknown-extension")
		return nil, err
	}

	start := time.Now()
	handle, err := e.registry.ActivateDefinition(def)
	if err != nil {
		e.metrics.RecordError("grammar", grammarErrorKind(err))
		return nil, err
	}
	e.compiledFor(handle)
	e.metrics.RecordCompile(time.Since(start))
	e.metrics.SetActiveVersion(handle.Version())

	e.logger.Info("grammar activated",
		"name", handle.Name(),
		"version", handle.Version(),
		"fingerprint", handle.Definition().Fingerprint(),
		"extensions", len(handle.Extensions()),
	)
	if e.onActivate != nil {
		e.onActivate(handle)
	}
	return handle, nil
}

// Reload loads the definition from the configured source and activates it.
// Validation failure leaves the active version serving.
func (e *Engine) Reload(ctx context.Context) error {
	if e.src == nil {
		return fmt.Errorf("no grammar source configured")
	}

	def, err := e.src.Load(ctx)
	if err != nil {
		e.metrics.RecordReload(false)
		return fmt.Errorf("loading grammar definition: %w", err)
	}
	if _, err := e.ActivateDefinition(def); err != nil {
		e.metrics.RecordReload(false)
		return fmt.Errorf("activating grammar %q: %w", def.Name, err)
	}
	e.metrics.RecordReload(true)
	return nil
}

// Snapshot pins the active grammar version for callers that batch: every
// parse and evaluation through the snapshot uses the pinned version, no
// matter what activations happen meanwhile.
func (e *Engine) Snapshot() (*Snapshot, error) {
	c, err := e.active()
	if err != nil {
		return nil, err
	}
	return &Snapshot{eng: e, c: c}, nil
}

// Registry exposes the grammar registry for version inspection and staged
// lifecycle operations. Activations through the registry are picked up by
// the engine on the next parse.
func (e *Engine) Registry() *grammar.Registry {
	return e.registry
}

// ActiveVersion returns the active grammar version. The boolean is false
// before the first activation.
func (e *Engine) ActiveVersion() (int, bool) {
	h, ok := e.registry.Active()
	if !ok {
		return 0, false
	}
	return h.Version(), true
}

// Versions lists every grammar version the engine has seen.
func (e *Engine) Versions() []grammar.VersionInfo {
	return e.registry.Versions()
}

// Symbols assembles the symbol dictionary for diagnostics and editor
// tooling: the active grammar's keywords, the active function set, and the
// caller-supplied attribute names.
func (e *Engine) Symbols(attrs ...string) diag.Symbols {
	syms := diag.Symbols{Attrs: attrs}
	c, err := e.active()
	if err != nil {
		return syms
	}
	syms.Funcs = c.funcs.Names()
	syms.Words = c.program.Keywords()
	return syms
}

// Explain converts a parse, evaluation, or grammar error into diagnostic
// reports with positions and suggestions, resolved against the active
// grammar's symbols plus the given attribute names.
func (e *Engine) Explain(src string, err error, attrs ...string) []diag.Report {
	if err == nil {
		return nil
	}
	dict := e.Symbols(attrs...)

	var perr *parser.Error
	if errors.As(err, &perr) {
		return []diag.Report{diag.FromParse(src, perr, dict)}
	}
	var eerr *eval.Error
	if errors.As(err, &eerr) {
		return []diag.Report{diag.FromEval(src, eerr, dict)}
	}
	return diag.FromGrammar(err)
}

// Close stops the source watcher and waits for background work to finish.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		if e.cancelWatch != nil {
			e.cancelWatch()
		}
		close(e.stopCh)
		e.wg.Wait()
	})
	return nil
}

// active resolves the active grammar version to its compiled form.
func (e *Engine) active() (*compiled, error) {
	h, ok := e.registry.Active()
	if !ok {
		return nil, grammar.ErrNoActiveGrammar
	}
	return e.compiledFor(h), nil
}

// compiledFor returns the cached compiled form of a handle, compiling on
// first use. Compilation cannot fail for a validated handle.
func (e *Engine) compiledFor(h *grammar.Handle) *compiled {
	e.programsMu.RLock()
	c, ok := e.programs[h.Version()]
	e.programsMu.RUnlock()
	if ok {
		return c
	}

	e.programsMu.Lock()
	defer e.programsMu.Unlock()
	if c, ok := e.programs[h.Version()]; ok {
		return c
	}

	prog := parser.Compile(h)
	funcs := e.funcs
	if funcs == nil {
		funcs = eval.NewRegistry(extension.FunctionsFor(h.Extensions()...)...)
	}
	evalOpts := []eval.Option{eval.WithFunctions(funcs)}
	if e.lookups != nil {
		evalOpts = append(evalOpts, eval.WithLookups(e.lookups))
	}

	c = &compiled{
		handle:  h,
		program: prog,
		parser: parser.New(prog,
			parser.WithMaxInputBytes(e.config.MaxRuleBytes),
			parser.WithMaxDepth(e.config.MaxDepth)),
		funcs:     funcs,
		evaluator: eval.New(evalOpts...),
	}
	e.programs[h.Version()] = c
	return c
}

func (e *Engine) parse(c *compiled, text string) (ast.Node, error) {
	node, perr := c.parser.Parse(text)
	if perr != nil {
		e.metrics.RecordParse(false)
		e.metrics.RecordError("parse", string(perr.Kind))
		return nil, perr
	}
	e.metrics.RecordParse(true)
	return node, nil
}

func (e *Engine) parseSexpr(c *compiled, text string) (ast.Node, error) {
	node, perr := c.parser.ParseSexpr(text)
	if perr != nil {
		e.metrics.RecordParse(false)
		e.metrics.RecordError("parse", string(perr.Kind))
		return nil, perr
	}
	e.metrics.RecordParse(true)
	return node, nil
}

func (e *Engine) evaluate(ctx context.Context, c *compiled, node ast.Node, attrs eval.AttributeContext) (eval.Value, error) {
	start := time.Now()
	v, eerr := c.evaluator.Evaluate(ctx, node, attrs)
	if eerr != nil {
		e.metrics.RecordEval(false, time.Since(start))
		e.metrics.RecordError("eval", string(eerr.Kind))
		return eval.Null(), eerr
	}
	e.metrics.RecordEval(true, time.Since(start))
	return v, nil
}

// startWatching subscribes to the source and reloads on events until Close.
// The subscription happens before this returns, so no event after New is
// missed.
func (e *Engine) startWatching() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancelWatch = cancel

	eventCh, err := e.src.Watch(ctx)
	if err != nil {
		e.logger.Error("failed to start grammar watcher", "error", err)
		cancel()
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		for {
			select {
			case <-e.stopCh:
				return
			case ev, ok := <-eventCh:
				if !ok {
					return
				}
				e.handleSourceEvent(ev)
			}
		}
	}()
}

// handleSourceEvent reloads the grammar after a source change.
func (e *Engine) handleSourceEvent(ev source.Event) {
	if ev.Error != nil {
		e.logger.Error("grammar watcher error", "error", ev.Error)
		return
	}
	if ev.Type == source.EventRemoved {
		e.logger.Warn("grammar source removed, active version keeps serving", "path", ev.Path)
		return
	}

	e.logger.Info("grammar source changed", "type", string(ev.Type), "path", ev.Path)
	if err := e.Reload(context.Background()); err != nil {
		e.logger.Error("grammar reload failed, active version keeps serving", "error", err)
	}
}

// grammarErrorKind maps a registry error to a metric label.
func grammarErrorKind(err error) string {
	var list *grammar.ErrorList
	if errors.As(err, &list) && list.HasErrors() {
		return string(list.Errors[0].Kind)
	}
	var single *grammar.Error
	if errors.As(err, &single) {
		return string(single.Kind)
	}
	var trans *grammar.TransitionError
	if errors.As(err, &trans) {
		return "lifecycle"
	}
	return "invalid"
}

// Snapshot is a pinned view of one grammar version. It stays valid and
// consistent across later activations; batch callers parse and evaluate any
// number of rules against it.
type Snapshot struct {
	eng *Engine
	c   *compiled
}

// Version returns the pinned grammar version.
func (s *Snapshot) Version() int { return s.c.handle.Version() }

// GrammarName returns the pinned grammar's name.
func (s *Snapshot) GrammarName() string { return s.c.handle.Name() }

// Handle returns the pinned grammar handle.
func (s *Snapshot) Handle() *grammar.Handle { return s.c.handle }

// Program returns the pinned compiled parser program.
func (s *Snapshot) Program() *parser.Program { return s.c.program }

// Parse parses rule text against the pinned grammar version.
func (s *Snapshot) Parse(text string) (ast.Node, error) {
	return s.eng.parse(s.c, text)
}

// ParseSexpr parses the S-expression surface against the pinned version.
func (s *Snapshot) ParseSexpr(text string) (ast.Node, error) {
	return s.eng.parseSexpr(s.c, text)
}

// Evaluate evaluates a parsed rule with the pinned version's function set.
func (s *Snapshot) Evaluate(ctx context.Context, node ast.Node, attrs eval.AttributeContext) (eval.Value, error) {
	return s.eng.evaluate(ctx, s.c, node, attrs)
}

// ParseAndEvaluate parses and evaluates against the pinned version.
func (s *Snapshot) ParseAndEvaluate(ctx context.Context, text string, attrs eval.AttributeContext) (eval.Value, error) {
	node, err := s.Parse(text)
	if err != nil {
		return eval.Null(), err
	}
	return s.Evaluate(ctx, node, attrs)
}
