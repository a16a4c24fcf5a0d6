package cards

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/odyssey-erp/vcards/internal/jobs"
	"github.com/odyssey-erp/vcards/internal/platform/clock"
)

// CleanupJob is the job name reported to metrics and the task queue.
const CleanupJob = "cards:cleanup"

// TransactionPurger deletes transactions created before cutoff.
type TransactionPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cleaner freezes expired cards and purges old transactions.
type Cleaner struct {
	repo      RepositoryPort
	purger    TransactionPurger
	retention time.Duration
	clock     clock.Clock
	metrics   *jobmetrics.Metrics
	logger    *slog.Logger
}

// NewCleaner builds a Cleaner. metrics may be nil.
func NewCleaner(repo RepositoryPort, purger TransactionPurger, retention time.Duration, clk clock.Clock, metrics *jobmetrics.Metrics, logger *slog.Logger) *Cleaner {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{repo: repo, purger: purger, retention: retention, clock: clk, metrics: metrics, logger: logger}
}

// Run performs one cleanup pass. Both steps run concurrently; the first
// failure cancels the other.
func (c *Cleaner) Run(ctx context.Context) (result CleanupResult, err error) {
	tracker := c.metrics.Track(CleanupJob)
	defer func() { err = tracker.End(err) }()

	now := c.clock.Now()
	today := Day(now)
	cutoff := now.Add(-c.retention)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := c.repo.FreezeExpired(gctx, today)
		result.FrozenCards = n
		return err
	})
	if c.purger != nil && c.retention > 0 {
		g.Go(func() error {
			n, err := c.purger.PurgeBefore(gctx, cutoff)
			result.PurgedTransactions = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Error("card cleanup failed", slog.Any("error", err))
		return CleanupResult{}, err
	}

	c.metrics.AddAffected(CleanupJob, "frozen_cards", result.FrozenCards)
	c.metrics.AddAffected(CleanupJob, "purged_transactions", result.PurgedTransactions)
	c.logger.Info("card cleanup finished",
		slog.Int64("frozen_cards", result.FrozenCards),
		slog.Int64("purged_transactions", result.PurgedTransactions))
	return result, nil
}
