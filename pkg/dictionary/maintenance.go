package dictionary

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// MaintenanceConfig configures scheduled dictionary maintenance.
type MaintenanceConfig struct {
	// Schedule is a cron expression for automatic maintenance runs.
	// Example: "0 4 * * *" (daily at 4 AM). Empty disables scheduling;
	// RunOnce can still be called directly.
	Schedule string

	// DraftRetention is how long never-validated drafts are kept before
	// pruning. 0 means keep drafts forever (no pruning).
	DraftRetention time.Duration
}

// DefaultMaintenanceConfig returns the default maintenance configuration.
func DefaultMaintenanceConfig() *MaintenanceConfig {
	return &MaintenanceConfig{
		Schedule:       "0 4 * * *",
		DraftRetention: 30 * 24 * time.Hour,
	}
}

// Maintenance runs periodic dictionary upkeep: pruning stale drafts that
// never reached validation and checkpointing the store's write-ahead log.
// Versions past validation, archived ones included, are never deleted.
type Maintenance struct {
	store  Store
	config *MaintenanceConfig
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewMaintenance creates a maintenance runner for the given store.
// A nil config uses DefaultMaintenanceConfig; a nil logger falls back to
// slog.Default().
func NewMaintenance(store Store, config *MaintenanceConfig, logger *slog.Logger) *Maintenance {
	if config == nil {
		config = DefaultMaintenanceConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Maintenance{
		store:  store,
		config: config,
		cron:   cron.New(),
		logger: logger.With("component", "dictionary.maintenance"),
	}
}

// Start begins scheduled maintenance based on the configured cron expression.
// If the schedule is empty, Start does nothing. The scheduler stops when ctx
// is cancelled or Stop is called.
func (m *Maintenance) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.Schedule == "" {
		m.logger.Info("maintenance schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(m.config.Schedule); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", m.config.Schedule, err)
	}

	_, err := m.cron.AddFunc(m.config.Schedule, func() {
		m.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling maintenance: %w", err)
	}

	m.cron.Start()
	m.running = true

	m.logger.Info("dictionary maintenance started",
		"schedule", m.config.Schedule,
		"draft_retention", m.config.DraftRetention,
	)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// run executes one maintenance cycle and logs the outcome.
func (m *Maintenance) run(ctx context.Context) {
	pruned, err := m.RunOnce(ctx)
	if err != nil {
		m.logger.Error("scheduled maintenance failed", "error", err)
		return
	}

	if pruned > 0 {
		m.logger.Info("scheduled maintenance completed", "pruned_drafts", pruned)
	} else {
		m.logger.Debug("scheduled maintenance completed, no drafts pruned")
	}
}

// RunOnce prunes stale drafts and checkpoints the store. It returns the
// number of drafts pruned.
func (m *Maintenance) RunOnce(ctx context.Context) (int, error) {
	var pruned int

	if m.config.DraftRetention > 0 {
		cutoff := time.Now().Add(-m.config.DraftRetention)
		n, err := m.store.PruneDrafts(ctx, cutoff)
		if err != nil {
			return 0, fmt.Errorf("pruning stale drafts: %w", err)
		}
		pruned = n
	}

	if err := m.store.Checkpoint(ctx); err != nil {
		return pruned, fmt.Errorf("checkpointing store: %w", err)
	}

	return pruned, nil
}

// Stop stops the scheduler and waits for any running job to complete.
func (m *Maintenance) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron != nil && m.running {
		ctx := m.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		m.running = false
		m.logger.Info("dictionary maintenance stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (m *Maintenance) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// NextRun returns the next scheduled maintenance time, or nil when the
// scheduler is idle.
func (m *Maintenance) NextRun() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron == nil {
		return nil
	}
	entries := m.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
