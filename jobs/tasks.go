package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/eventdesk/eventdesk/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRecord persists a confirmed dashboard action.
	TaskAuditRecord = "audit:record"
	// TaskSessionPrune deletes expired login session rows.
	TaskSessionPrune = "session:prune"
	// SessionPruneSpec runs the prune daily at 03:00 UTC.
	SessionPruneSpec = "0 3 * * *"
)

// AuditRecordPayload carries one confirmed action.
type AuditRecordPayload struct {
	Entry audit.Entry `json:"entry"`
}

// NewAuditRecordTask constructs an Asynq task.
func NewAuditRecordTask(entry audit.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(AuditRecordPayload{Entry: entry})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRecord, data, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// SessionPrunePayload configures how far back expired rows are kept.
type SessionPrunePayload struct {
	Grace time.Duration `json:"grace"`
}

// NewSessionPruneTask constructs an Asynq task.
func NewSessionPruneTask(grace time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(SessionPrunePayload{Grace: grace})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionPrune, data), nil
}
