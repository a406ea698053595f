package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventdesk/eventdesk/internal/audit"
	"github.com/eventdesk/eventdesk/internal/confirm"
	jobmetrics "github.com/eventdesk/eventdesk/internal/jobs"
	"github.com/eventdesk/eventdesk/internal/shared"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type recorder struct {
	entries []audit.Entry
	err     error
}

func (r *recorder) Record(ctx context.Context, entry audit.Entry) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

type pruner struct {
	cutoff time.Time
	n      int64
}

func (p *pruner) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.n, nil
}

func signedInContext(t *testing.T) context.Context {
	t.Helper()
	sess := &shared.Session{ID: "sess-1"}
	require.NoError(t, sess.SignIn(shared.Identity{ID: "7", Role: "admin"}))
	return shared.ContextWithSession(context.Background(), sess)
}

func TestAuditorEnqueuesConfirmedAction(t *testing.T) {
	fake := &fakeEnqueuer{}
	auditor := NewClientWith(fake).Auditor("sess-1")

	err := auditor.ActionConfirmed(signedInContext(t), confirm.Action{Tag: "notifications.clear", Payload: map[string]string{"scope": "all"}})
	require.NoError(t, err)
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskAuditRecord, fake.tasks[0].Type())

	var payload AuditRecordPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, "7", payload.Entry.ActorID)
	assert.Equal(t, "admin", payload.Entry.Role)
	assert.Equal(t, "sess-1", payload.Entry.SessionID)
	assert.Equal(t, "all", payload.Entry.Payload["scope"])
}

func TestAuditorRejectsAnonymousContext(t *testing.T) {
	fake := &fakeEnqueuer{}
	err := NewClientWith(fake).Auditor("sess-1").ActionConfirmed(context.Background(), confirm.Action{Tag: "x"})
	assert.ErrorIs(t, err, audit.ErrIncomplete)
	assert.Empty(t, fake.tasks)
}

func TestAuditRecordJobPersists(t *testing.T) {
	rec := &recorder{}
	job := NewAuditRecordJob(rec, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewAuditRecordTask(audit.Entry{ActorID: "7", SessionID: "s", Action: "session.logout"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, rec.entries, 1)
	assert.Equal(t, "session.logout", rec.entries[0].Action)
}

func TestAuditRecordJobSkipsBadPayload(t *testing.T) {
	job := NewAuditRecordJob(&recorder{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskAuditRecord, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewAuditRecordTask(audit.Entry{Action: "x"})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestAuditRecordJobReturnsStoreErrors(t *testing.T) {
	job := NewAuditRecordJob(&recorder{err: errors.New("db down")}, nil, nil)
	task, err := NewAuditRecordTask(audit.Entry{ActorID: "7", SessionID: "s", Action: "a"})
	require.NoError(t, err)
	assert.EqualError(t, job.Handle(context.Background(), task), "db down")
}

func TestSessionPruneUsesGrace(t *testing.T) {
	p := &pruner{n: 3}
	job := NewSessionPruneJob(p, nil, nil)
	now := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return now }

	task, err := NewSessionPruneTask(time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, now.Add(-time.Hour), p.cutoff)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskSessionPrune, nil)))
	assert.Equal(t, now, p.cutoff)
}

func TestHealthWithoutInspector(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}
