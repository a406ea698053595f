package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/eventdesk/eventdesk/internal/audit"
	jobmetrics "github.com/eventdesk/eventdesk/internal/jobs"
)

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// AuditRecordJob writes confirmed actions into the audit trail.
type AuditRecordJob struct {
	Recorder AuditRecorder
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewAuditRecordJob wires dependencies for the audit handler.
func NewAuditRecordJob(recorder AuditRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditRecordJob {
	return &AuditRecordJob{Recorder: recorder, Logger: logger, Metrics: metrics}
}

// Handle processes audit:record tasks.
func (j *AuditRecordJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Recorder == nil {
		return errors.New("audit record: handler not configured")
	}
	var payload AuditRecordPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("audit record: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := payload.Entry.Validate(); err != nil {
		j.logger().Warn("dropping incomplete audit entry", slog.String("action", payload.Entry.Action))
		return fmt.Errorf("audit record: %v: %w", err, asynq.SkipRetry)
	}

	if err := j.Recorder.Record(ctx, payload.Entry); err != nil {
		j.logger().Error("record audit entry", slog.String("action", payload.Entry.Action), slog.Any("error", err))
		return err
	}
	j.Metrics.AddAffected(TaskAuditRecord, 1)
	return nil
}

func (j *AuditRecordJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
