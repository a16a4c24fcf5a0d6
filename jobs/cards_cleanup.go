package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/vcards/internal/cards"
)

// CleanupRunner performs one cleanup pass.
type CleanupRunner interface {
	Run(ctx context.Context) (cards.CleanupResult, error)
}

// CardsCleanupJob handles TaskCardsCleanup tasks.
type CardsCleanupJob struct {
	Runner CleanupRunner
	Logger *slog.Logger
}

// NewCardsCleanupJob initialises the cleanup handler.
func NewCardsCleanupJob(runner CleanupRunner, logger *slog.Logger) *CardsCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardsCleanupJob{Runner: runner, Logger: logger}
}

// Handle executes a cleanup run.
func (j *CardsCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Runner == nil {
		return errors.New("cards cleanup: handler not configured")
	}
	var payload CleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("cards cleanup: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	logger := j.Logger.With(slog.String("trigger", payload.Trigger))
	result, err := j.Runner.Run(ctx)
	if err != nil {
		logger.Error("cards cleanup failed", slog.Any("error", err))
		return err
	}
	logger.Info("cards cleanup completed",
		slog.Int64("frozen_cards", result.FrozenCards),
		slog.Int64("purged_transactions", result.PurgedTransactions))
	return nil
}
