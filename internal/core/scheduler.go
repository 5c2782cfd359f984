package core

// scheduler.go runs the reservation pruning job.
//
// Reservations for dates well in the past no longer constrain any
// allocation. The job deletes them in batches so the reservations table
// stays small. Failures are logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// Pruner deletes reservations dated before a cutoff, at most batchSize
// rows per call, and returns the number deleted.
type Pruner interface {
	PruneReservations(ctx context.Context, before string, batchSize int) (int64, error)
}

// PruneConfig configures the pruning job.
type PruneConfig struct {
	RetentionDays int           // keep reservations dated within this many days
	BatchSize     int           // rows per delete
	CheckInterval time.Duration // time between runs
}

// StartPruneScheduler prunes once immediately, then every CheckInterval,
// until ctx is cancelled.
func StartPruneScheduler(ctx context.Context, p Pruner, cfg PruneConfig) {
	slog.Info("prune scheduler started",
		"retention_days", cfg.RetentionDays,
		"batch_size", cfg.BatchSize,
		"interval", cfg.CheckInterval,
	)

	runPruneJob(ctx, p, cfg, time.Now())

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("prune scheduler stopped")
			return
		case now := <-ticker.C:
			runPruneJob(ctx, p, cfg, now)
		}
	}
}

// runPruneJob deletes batches until a short batch signals the backlog is
// gone. It returns the total deleted.
func runPruneJob(ctx context.Context, p Pruner, cfg PruneConfig, now time.Time) int64 {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	start := time.Now()
	cutoff := now.AddDate(0, 0, -cfg.RetentionDays).Format(isoDate)

	var total int64
	for ctx.Err() == nil {
		n, err := p.PruneReservations(ctx, cutoff, cfg.BatchSize)
		if err != nil {
			slog.Error("prune failed", "cutoff", cutoff, "error", err)
			break
		}
		total += n
		if n < int64(cfg.BatchSize) {
			break
		}
	}

	slog.Info("prune job completed",
		"cutoff", cutoff,
		"reservations_pruned", total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return total
}
