package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTotalsIntegrity recomputes cached order totals and repairs drift.
	TaskTotalsIntegrity = "orders:totals_integrity"
)

// Sweep scopes accepted by the totals integrity job.
const (
	ScopeOpen  = "open"
	ScopeToday = "today"
)

// TotalsIntegrityPayload scopes a sweep run.
type TotalsIntegrityPayload struct {
	// Scope is "open" (default) or "today".
	Scope string `json:"scope"`
}

// NewTotalsIntegrityTask constructs an Asynq task.
func NewTotalsIntegrityTask(scope string) (*asynq.Task, error) {
	data, err := json.Marshal(TotalsIntegrityPayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTotalsIntegrity, data), nil
}
