// Package housekeeping runs the periodic maintenance loops: marking agents
// whose heartbeats went quiet and enforcing the retention window on stored
// telemetry.
package housekeeping

import (
	"context"
	"log/slog"
	"time"

	"github.com/logbookhq/logbook-server/internal/agents"
)

type Config struct {
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RetentionDays   int           `mapstructure:"retention_days"`
}

func (c Config) withDefaults() Config {
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 24 * time.Hour
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	return c
}

type AgentSweeper interface {
	MarkStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type RetentionStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// BacklogReporter is implemented by stores that track records which never
// received their secondary-store reference. The backlog is only reported;
// reconciliation itself is an external concern.
type BacklogReporter interface {
	CountUnindexed(ctx context.Context) (int64, error)
}

type Runner struct {
	cfg    Config
	agents AgentSweeper
	stores map[string]RetentionStore
	now    func() time.Time
}

func NewRunner(cfg Config, sweeper AgentSweeper, retention map[string]RetentionStore) *Runner {
	return &Runner{
		cfg:    cfg.withDefaults(),
		agents: sweeper,
		stores: retention,
		now:    time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	sweep := time.NewTicker(r.cfg.SweepInterval)
	defer sweep.Stop()
	cleanup := time.NewTicker(r.cfg.CleanupInterval)
	defer cleanup.Stop()

	slog.Info("Housekeeping started",
		"sweep_interval", r.cfg.SweepInterval,
		"cleanup_interval", r.cfg.CleanupInterval,
		"retention_days", r.cfg.RetentionDays)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Housekeeping stopped")
			return
		case <-sweep.C:
			r.SweepAgents(ctx)
		case <-cleanup.C:
			r.EnforceRetention(ctx)
		}
	}
}

// SweepAgents marks agents inactive when their last heartbeat is older than
// the online window.
func (r *Runner) SweepAgents(ctx context.Context) {
	cutoff := r.now().UTC().Add(-agents.OnlineWindow)
	marked, err := r.agents.MarkStale(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to sweep stale agents", "error", err)
		return
	}
	if marked > 0 {
		slog.Info("Marked stale agents inactive", "count", marked, "cutoff", cutoff)
	}
}

// EnforceRetention deletes telemetry rows older than the retention window
// from each registered store.
func (r *Runner) EnforceRetention(ctx context.Context) {
	cutoff := r.now().UTC().AddDate(0, 0, -r.cfg.RetentionDays)
	for name, store := range r.stores {
		deleted, err := store.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			slog.Error("Retention cleanup failed", "store", name, "error", err)
			continue
		}
		if deleted > 0 {
			slog.Info("Retention cleanup complete", "store", name, "deleted", deleted, "cutoff", cutoff)
		}

		if reporter, ok := store.(BacklogReporter); ok {
			backlog, err := reporter.CountUnindexed(ctx)
			if err != nil {
				slog.Error("Failed to count unindexed records", "store", name, "error", err)
				continue
			}
			if backlog > 0 {
				slog.Warn("Records stored but never indexed", "store", name, "count", backlog)
			}
		}
	}
}
