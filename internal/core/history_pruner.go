package core

// history_pruner.go runs background maintenance on the run history.
//
// Old bulk_runs rows are deleted on a fixed interval. The pruner is
// long-running and context-aware for graceful shutdown; a failed cycle is
// logged and retried on the next tick.

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PruneConfig holds configuration for the history pruner.
type PruneConfig struct {
	Retention     time.Duration // How long summaries are kept (default: 30 days)
	CheckInterval time.Duration // How often to prune (default: 24h)
}

// HistoryPruner deletes summaries older than a cutoff.
type HistoryPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

const deleteOldRuns = `DELETE FROM bulk_runs WHERE finished_at < $1`

// PruneBefore deletes runs that finished before cutoff.
func (s *PgHistoryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, deleteOldRuns, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune bulk runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// StartHistoryPruner prunes immediately, then every CheckInterval, until
// ctx is cancelled.
func StartHistoryPruner(ctx context.Context, p HistoryPruner, cfg PruneConfig) {
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 24 * time.Hour
	}

	slog.Info("history pruner started", "retention", cfg.Retention, "interval", cfg.CheckInterval)

	pruneOnce(ctx, p, cfg.Retention, time.Now)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history pruner stopped")
			return
		case <-ticker.C:
			pruneOnce(ctx, p, cfg.Retention, time.Now)
		}
	}
}

func pruneOnce(ctx context.Context, p HistoryPruner, retention time.Duration, now func() time.Time) {
	start := time.Now()
	n, err := p.PruneBefore(ctx, now().Add(-retention))
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}
	slog.Info("pruned run history",
		"runs_deleted", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
