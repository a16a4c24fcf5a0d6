package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/vcards/internal/cards"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCardsCleanup freezes expired cards and purges old transactions.
	TaskCardsCleanup = cards.CleanupJob
)

// Triggers recorded in cleanup payloads.
const (
	TriggerCron    = "cron"
	TriggerStartup = "startup"
)

// CleanupPayload describes why a cleanup run was requested.
type CleanupPayload struct {
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewCleanupTask constructs an Asynq task for a cleanup run.
func NewCleanupTask(trigger string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(CleanupPayload{Trigger: trigger, RequestedAt: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCardsCleanup, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
