package workspace

import (
	"log/slog"
	"sync"
	"time"

	"github.com/eventdesk/eventdesk/internal/confirm"
	"github.com/eventdesk/eventdesk/internal/loading"
	"github.com/eventdesk/eventdesk/internal/notify"
	"github.com/eventdesk/eventdesk/internal/shared"
)

// Workspace is the per-session action state composed by every screen.
type Workspace struct {
	SessionID     string
	Loading       *loading.Tracker
	Notifications *notify.Queue
	Confirmations *confirm.Workflow

	mu       sync.Mutex
	lastSeen time.Time
}

// DrainFlashes moves one-time session flashes into the notification queue.
func (w *Workspace) DrainFlashes(sess *shared.Session) {
	if w == nil || sess == nil {
		return
	}
	for _, flash := range sess.PopFlashes() {
		severity := flash.Kind
		if !notify.ValidSeverity(severity) {
			severity = notify.SeverityInfo
		}
		w.Notifications.Add(notify.Notice{Severity: severity, Title: flash.Message})
	}
}

// LastSeen reports when the workspace was last attached.
func (w *Workspace) LastSeen() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) close() {
	w.Notifications.Close()
	w.Confirmations.HandleCancel()
}

// Factory assembles a fresh Workspace for a session.
type Factory struct {
	Logger         *slog.Logger
	Observer       loading.Observer
	Auditor        func(sessionID string) confirm.Auditor
	RegisterAction func(sessionID string, registry *confirm.Registry) error
	QueueOptions   []notify.Option
	// LiveCount receives the workspace count after every change.
	LiveCount func(n int)
}

func (f Factory) build(sessionID string) (*Workspace, error) {
	var trackerOpts []loading.Option
	if f.Observer != nil {
		trackerOpts = append(trackerOpts, loading.WithObserver(f.Observer))
	}
	tracker := loading.NewTracker(trackerOpts...)
	registry := confirm.NewRegistry()
	if f.RegisterAction != nil {
		if err := f.RegisterAction(sessionID, registry); err != nil {
			return nil, err
		}
	}
	var auditor confirm.Auditor
	if f.Auditor != nil {
		auditor = f.Auditor(sessionID)
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		SessionID:     sessionID,
		Loading:       tracker,
		Notifications: notify.NewQueue(f.QueueOptions...),
		Confirmations: confirm.NewWorkflow(confirm.Config{
			Registry: registry,
			Tracker:  tracker,
			Logger:   logger.With(slog.String("session_id", sessionID)),
			Auditor:  auditor,
		}),
	}, nil
}
