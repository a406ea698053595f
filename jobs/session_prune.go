package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/eventdesk/eventdesk/internal/jobs"
)

// SessionPruner deletes login session rows that expired before cutoff.
type SessionPruner interface {
	PruneSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionPruneJob trims the user_sessions table.
type SessionPruneJob struct {
	Pruner  SessionPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSessionPruneJob wires dependencies for the prune handler.
func NewSessionPruneJob(pruner SessionPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionPruneJob {
	return &SessionPruneJob{
		Pruner:  pruner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes session:prune tasks.
func (j *SessionPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pruner == nil {
		return errors.New("session prune: handler not configured")
	}
	var payload SessionPrunePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Grace < 0 {
		payload.Grace = 0
	}

	cutoff := j.clock().Add(-payload.Grace)
	logger := j.logger().With(slog.Time("cutoff", cutoff))
	removed, err := j.Pruner.PruneSessions(ctx, cutoff)
	if err != nil {
		logger.Error("prune sessions", slog.Any("error", err))
		return err
	}
	j.Metrics.AddAffected(TaskSessionPrune, removed)
	logger.Info("pruned expired sessions", slog.Int64("removed", removed))
	return nil
}

func (j *SessionPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
