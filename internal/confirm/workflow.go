package confirm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/eventdesk/eventdesk/internal/loading"
)

// LoadingKey is the tracker key raised while an accepted action runs.
const LoadingKey = "confirmation"

var (
	// ErrNotOpen indicates HandleConfirm was called without an open request.
	ErrNotOpen = errors.New("confirm: no open request")
	// ErrUnknownAction indicates the action tag has no registered handler.
	ErrUnknownAction = errors.New("confirm: unknown action")
)

// State is the lifecycle stage of the pending request.
type State string

// Request states. Idle means no request is stored.
const (
	StateIdle       State = "idle"
	StateOpen       State = "open"
	StateConfirming State = "confirming"
)

// Options carries the dialog content.
type Options struct {
	Title        string `json:"title"`
	Message      string `json:"message"`
	ConfirmLabel string `json:"confirmLabel"`
	CancelLabel  string `json:"cancelLabel"`
	Severity     string `json:"severity"`
}

// Request is the single pending confirmation.
type Request struct {
	ID      string
	Options Options
	Action  Action
	State   State
}

// View is the render-ready projection of the pending request.
type View struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	ConfirmLabel string `json:"confirmLabel"`
	CancelLabel  string `json:"cancelLabel"`
	Severity     string `json:"severity"`
	Action       string `json:"action"`
	IsOpen       bool   `json:"isOpen"`
	IsLoading    bool   `json:"isLoading"`
}

// Result is how a confirmed action ended.
type Result string

// Action results reported by HandleConfirm.
const (
	ResultConfirmed Result = "confirmed"
	ResultFailed    Result = "failed"
)

// Outcome describes the request HandleConfirm ran. Err holds the handler
// failure, including recovered panics; the workflow itself only logs it.
type Outcome struct {
	RequestID string
	Action    Action
	Result    Result
	Err       error
}

// Failed reports whether the handler did not complete.
func (o Outcome) Failed() bool {
	return o.Result == ResultFailed
}

// Auditor observes actions that completed after confirmation.
type Auditor interface {
	ActionConfirmed(ctx context.Context, action Action) error
}

// Workflow gates destructive actions behind one pending confirmation.
type Workflow struct {
	mu       sync.Mutex
	current  *Request
	registry *Registry
	tracker  *loading.Tracker
	logger   *slog.Logger
	auditor  Auditor
}

// Config groups Workflow dependencies.
type Config struct {
	Registry *Registry
	Tracker  *loading.Tracker
	Logger   *slog.Logger
	Auditor  Auditor
}

// NewWorkflow constructs an idle Workflow.
func NewWorkflow(cfg Config) *Workflow {
	w := &Workflow{
		registry: cfg.Registry,
		tracker:  cfg.Tracker,
		logger:   cfg.Logger,
		auditor:  cfg.Auditor,
	}
	if w.registry == nil {
		w.registry = NewRegistry()
	}
	if w.tracker == nil {
		w.tracker = loading.NewTracker()
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Registry exposes the action registry the workflow resolves against.
func (w *Workflow) Registry() *Registry {
	return w.registry
}

// Confirm opens a request for action, replacing whatever request is pending.
func (w *Workflow) Confirm(opts Options, action Action) (Request, error) {
	if _, ok := w.registry.Lookup(action.Tag); !ok {
		return Request{}, ErrUnknownAction
	}
	if opts.ConfirmLabel == "" {
		opts.ConfirmLabel = "common.confirm"
	}
	if opts.CancelLabel == "" {
		opts.CancelLabel = "common.cancel"
	}
	if opts.Severity == "" {
		opts.Severity = "warning"
	}
	req := &Request{
		ID:      uuid.NewString(),
		Options: opts,
		Action:  copyAction(action),
		State:   StateOpen,
	}
	w.mu.Lock()
	w.current = req
	w.mu.Unlock()
	return *req, nil
}

// HandleConfirm runs the pending action. A failing or panicking handler
// returns the request to the open state. The returned Outcome always
// describes the request that ran, even if a newer one replaced it meanwhile.
func (w *Workflow) HandleConfirm(ctx context.Context) (Outcome, error) {
	w.mu.Lock()
	if w.current == nil || w.current.State != StateOpen {
		w.mu.Unlock()
		return Outcome{}, ErrNotOpen
	}
	w.current.State = StateConfirming
	req := *w.current
	w.mu.Unlock()

	outcome := Outcome{RequestID: req.ID, Action: req.Action, Result: ResultConfirmed}
	handler, ok := w.registry.Lookup(req.Action.Tag)
	if !ok {
		outcome.Result, outcome.Err = ResultFailed, ErrUnknownAction
		w.settle(req.ID, ErrUnknownAction)
		return outcome, nil
	}
	err := w.tracker.WithExclusiveLoading(ctx, LoadingKey, func(ctx context.Context) error {
		return runHandler(ctx, handler, req.Action)
	})
	w.settle(req.ID, err)
	if err != nil {
		outcome.Result, outcome.Err = ResultFailed, err
		return outcome, nil
	}
	if w.auditor != nil {
		if auditErr := w.auditor.ActionConfirmed(ctx, req.Action); auditErr != nil {
			w.logger.Warn("audit confirmed action", slog.String("action", req.Action.Tag), slog.Any("error", auditErr))
		}
	}
	return outcome, nil
}

func runHandler(ctx context.Context, handler Handler, action Action) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("confirm: handler %s panicked: %v", action.Tag, p)
		}
	}()
	return handler(ctx, action)
}

// HandleCancel discards the pending request. A handler already running keeps
// running; its completion no longer affects the workflow.
func (w *Workflow) HandleCancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = nil
}

// Current returns the pending request view, if any.
func (w *Workflow) Current() (View, bool) {
	w.mu.Lock()
	req := w.current
	var snapshot Request
	if req != nil {
		snapshot = *req
	}
	w.mu.Unlock()
	if req == nil {
		return View{}, false
	}
	return View{
		ID:           snapshot.ID,
		Title:        snapshot.Options.Title,
		Message:      snapshot.Options.Message,
		ConfirmLabel: snapshot.Options.ConfirmLabel,
		CancelLabel:  snapshot.Options.CancelLabel,
		Severity:     snapshot.Options.Severity,
		Action:       snapshot.Action.Tag,
		IsOpen:       true,
		IsLoading:    snapshot.State == StateConfirming && w.tracker.IsLoading(LoadingKey),
	}, true
}

// State reports the lifecycle stage of the pending request.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return StateIdle
	}
	return w.current.State
}

// settle applies the outcome of request id, unless it was replaced or cancelled.
func (w *Workflow) settle(id string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.logger.Warn("confirmed action failed", slog.String("request_id", id), slog.Any("error", err))
	}
	if w.current == nil || w.current.ID != id {
		return
	}
	if err != nil {
		w.current.State = StateOpen
		return
	}
	w.current = nil
}

func copyAction(a Action) Action {
	if a.Payload == nil {
		return a
	}
	payload := make(map[string]string, len(a.Payload))
	for k, v := range a.Payload {
		payload[k] = v
	}
	return Action{Tag: a.Tag, Payload: payload}
}
