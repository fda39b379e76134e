package jobs

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLedgerIntegrity re-sums every journal entry and reports imbalances.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskLedgerPendingReport counts documents still waiting for auto-posting.
	TaskLedgerPendingReport = "ledger:pending-report"
	// TaskStockIntegrity compares stock balances with their open batches.
	TaskStockIntegrity = "stock:integrity"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// RunPayload carries scheduling metadata shared by the periodic jobs.
type RunPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	RequestedBy  string    `json:"requested_by,omitempty"`
}

var knownTasks = map[string]bool{
	TaskLedgerIntegrity:     true,
	TaskLedgerPendingReport: true,
	TaskStockIntegrity:      true,
	TaskIdempotencyCleanup:  true,
}

// TaskNames lists the task types accepted by NewTask.
func TaskNames() []string {
	names := make([]string, 0, len(knownTasks))
	for name := range knownTasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewTask builds one of the known periodic tasks.
func NewTask(name string, payload RunPayload) (*asynq.Task, error) {
	if !knownTasks[name] {
		return nil, fmt.Errorf("jobs: unknown task %q", name)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(name, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

func decodePayload(t *asynq.Task) (RunPayload, error) {
	var payload RunPayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return RunPayload{}, fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}
