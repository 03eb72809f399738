package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
	"github.com/adamtc007/data-designer-sub001/pkg/cli"
	"github.com/adamtc007/data-designer-sub001/pkg/dictionary"
	"github.com/adamtc007/data-designer-sub001/pkg/rules"
	"github.com/adamtc007/data-designer-sub001/pkg/rules/source"
)

var watchFlags struct {
	actor string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the grammar file and archive every activation",
	Long: `Watch runs the grammar authoring loop: it loads the configured grammar
file, reloads it whenever the file changes, and archives every successful
activation to the dictionary store with a full audit trail. A definition
that fails validation is reported and the previous grammar stays active,
so the file can be fixed and saved again without restarting.

Scheduled dictionary maintenance, when configured, runs inside this
process. The loop stops on interrupt or SIGTERM.

Requires grammar.file in the configuration.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFlags.actor, "actor", "watch", "actor recorded in the audit trail")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadDesignerConfig()
	if err != nil {
		return err
	}
	if cfg.Grammar.File == "" {
		return cli.NewConfigError("grammar.file", "watch requires a grammar file to be configured")
	}
	logger := buildLogger(cfg)

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	provider, err := buildLookups(cfg, nil)
	if err != nil {
		return err
	}

	src, err := source.NewFileSource(&source.FileConfig{
		Path:             cfg.Grammar.File,
		DebounceInterval: cfg.Grammar.DebounceInterval,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening grammar source: %w", err)
	}

	opts := []rules.Option{
		rules.WithLogger(logger),
		rules.WithSource(src),
		rules.WithActivationHook(func(h *grammar.Handle) {
			archiveActivation(store, logger, h, watchFlags.actor)
		}),
	}
	if provider != nil {
		opts = append(opts, rules.WithLookups(provider))
	}

	eng, err := rules.New(&rules.Config{
		MaxRuleBytes: cfg.Engine.MaxRuleBytes,
		MaxDepth:     cfg.Engine.MaxDepth,
	}, opts...)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	defer eng.Close()

	maint := dictionary.NewMaintenance(store, &dictionary.MaintenanceConfig{
		Schedule:       cfg.Dictionary.Maintenance.Schedule,
		DraftRetention: cfg.Dictionary.Maintenance.DraftRetention,
	}, logger)

	ctx, stop := cli.ShutdownContext(cmd.Context())
	defer stop()

	if err := maint.Start(ctx); err != nil {
		return fmt.Errorf("starting maintenance: %w", err)
	}
	defer maint.Stop()

	version, _ := eng.ActiveVersion()
	fmt.Printf("✓ grammar loaded from %s (version %d active)\n", cfg.Grammar.File, version)
	fmt.Printf("✓ dictionary backend: %s\n", cfg.Dictionary.Backend)
	if cfg.Dictionary.Maintenance.Schedule != "" {
		fmt.Printf("✓ maintenance scheduled: %s\n", cfg.Dictionary.Maintenance.Schedule)
	}
	fmt.Println("watching for grammar changes, press Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nshutting down")
	if err := store.Checkpoint(context.Background()); err != nil {
		logger.Warn("checkpointing store", "error", err)
	}
	return nil
}

// archiveActivation persists one engine activation to the dictionary: the
// definition is saved, validated, and marked active, with audit records for
// each transition. Runs on the engine's activation path, so failures are
// logged rather than propagated; the engine keeps serving either way.
func archiveActivation(store dictionary.Store, logger *slog.Logger, h *grammar.Handle, actor string) {
	ctx := context.Background()
	def := h.Definition()

	version, err := store.SaveDefinition(ctx, def)
	if err != nil {
		logger.Error("archiving grammar activation", "error", err)
		return
	}

	prev, prevErr := store.ActiveVersion(ctx)
	if prevErr != nil && !errors.Is(prevErr, dictionary.ErrNoActiveVersion) {
		logger.Error("reading active version", "error", prevErr)
		return
	}

	if err := store.SetState(ctx, version, grammar.StateValidated); err != nil {
		logger.Error("marking archived version validated", "version", version, "error", err)
		return
	}
	if err := store.AppendAudit(ctx, &dictionary.AuditRecord{
		Version: version,
		Event:   dictionary.AuditValidated,
		Actor:   actor,
		Detail:  "fingerprint " + def.Fingerprint(),
	}); err != nil {
		logger.Error("recording validation", "version", version, "error", err)
	}

	if err := store.MarkActive(ctx, version); err != nil {
		logger.Error("activating archived version", "version", version, "error", err)
		return
	}
	detail := fmt.Sprintf("engine version %d", h.Version())
	if err := store.AppendAudit(ctx, &dictionary.AuditRecord{
		Version: version,
		Event:   dictionary.AuditActivated,
		Actor:   actor,
		Detail:  detail,
	}); err != nil {
		logger.Error("recording activation", "version", version, "error", err)
	}
	if prevErr == nil && prev != version {
		if err := store.AppendAudit(ctx, &dictionary.AuditRecord{
			Version: prev,
			Event:   dictionary.AuditSuperseded,
			Actor:   actor,
			Detail:  fmt.Sprintf("superseded by version %d", version),
		}); err != nil {
			logger.Error("recording supersession", "version", prev, "error", err)
		}
	}

	logger.Info("grammar activation archived",
		"store_version", version,
		"engine_version", h.Version(),
		"fingerprint", def.Fingerprint(),
	)
}
