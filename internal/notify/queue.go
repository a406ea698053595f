package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity tags drive toast styling.
const (
	SeveritySuccess = "success"
	SeverityError   = "error"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// DefaultDuration applies when a notification does not specify one.
const DefaultDuration = 5 * time.Second

// Notification is one queued toast.
type Notification struct {
	ID        string        `json:"id"`
	Severity  string        `json:"severity"`
	Title     string        `json:"title"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"-"`
	AutoClose bool          `json:"autoClose"`
	CreatedAt time.Time     `json:"createdAt"`
}

type notificationJSON struct {
	notificationFields
	DurationMS int64 `json:"durationMs"`
}

type notificationFields Notification

// MarshalJSON writes Duration as whole milliseconds under durationMs, the
// unit clients send it in.
func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(notificationJSON{notificationFields(n), n.Duration.Milliseconds()})
}

// UnmarshalJSON reads the shape MarshalJSON writes.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var wire notificationJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*n = Notification(wire.notificationFields)
	n.Duration = time.Duration(wire.DurationMS) * time.Millisecond
	return nil
}

// Notice describes a notification to enqueue. A nil AutoClose means true.
type Notice struct {
	Severity  string
	Title     string
	Message   string
	Duration  time.Duration
	AutoClose *bool
}

// Timer is the handle returned by a Scheduler.
type Timer interface {
	Stop() bool
}

// Scheduler arms a one-shot callback.
type Scheduler func(d time.Duration, fn func()) Timer

func realScheduler(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Queue keeps the ordered list of live notifications. Each auto-closing entry
// owns exactly one timer armed at insertion and stopped at removal.
type Queue struct {
	mu       sync.Mutex
	items    []Notification
	timers   map[string]Timer
	schedule Scheduler
	now      func() time.Time
	closed   bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithScheduler overrides how expiry timers are armed.
func WithScheduler(s Scheduler) Option {
	return func(q *Queue) {
		q.schedule = s
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// NewQueue constructs an empty Queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		timers:   map[string]Timer{},
		schedule: realScheduler,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Add appends a notification and returns its id.
func (q *Queue) Add(n Notice) string {
	entry := Notification{
		ID:        uuid.NewString(),
		Severity:  n.Severity,
		Title:     n.Title,
		Message:   n.Message,
		Duration:  n.Duration,
		AutoClose: n.AutoClose == nil || *n.AutoClose,
		CreatedAt: q.now(),
	}
	if entry.Severity == "" {
		entry.Severity = SeverityInfo
	}
	if entry.Duration <= 0 {
		entry.Duration = DefaultDuration
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	next := make([]Notification, len(q.items), len(q.items)+1)
	copy(next, q.items)
	q.items = append(next, entry)
	if entry.AutoClose && !q.closed {
		id := entry.ID
		q.timers[id] = q.schedule(entry.Duration, func() { q.Remove(id) })
	}
	return entry.ID
}

// Remove drops the notification with id. Unknown ids are ignored.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	idx := -1
	for i, item := range q.items {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	next := make([]Notification, 0, len(q.items)-1)
	next = append(next, q.items[:idx]...)
	q.items = append(next, q.items[idx+1:]...)
}

// ClearAll empties the queue and cancels every pending timer.
func (q *Queue) ClearAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopTimersLocked()
	q.items = nil
}

// Close clears the queue and stops arming timers for later additions.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopTimersLocked()
	q.items = nil
	q.closed = true
}

// List returns the notifications in display order.
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Len reports how many notifications are queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// ShowSuccess enqueues a success notification.
func (q *Queue) ShowSuccess(title, message string) string {
	return q.Add(Notice{Severity: SeveritySuccess, Title: title, Message: message})
}

// ShowError enqueues an error notification.
func (q *Queue) ShowError(title, message string) string {
	return q.Add(Notice{Severity: SeverityError, Title: title, Message: message})
}

// ShowInfo enqueues an info notification.
func (q *Queue) ShowInfo(title, message string) string {
	return q.Add(Notice{Severity: SeverityInfo, Title: title, Message: message})
}

// ShowWarning enqueues a warning notification.
func (q *Queue) ShowWarning(title, message string) string {
	return q.Add(Notice{Severity: SeverityWarning, Title: title, Message: message})
}

func (q *Queue) stopTimersLocked() {
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
}

// ValidSeverity reports whether s is one of the known severity tags.
func ValidSeverity(s string) bool {
	switch s {
	case SeveritySuccess, SeverityError, SeverityInfo, SeverityWarning:
		return true
	}
	return false
}
