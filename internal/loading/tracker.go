package loading

import (
	"context"
	"sync"
)

// Observer receives operation lifecycle callbacks from a Tracker.
type Observer interface {
	OperationStarted(key string)
	OperationFinished(key string, err error)
}

// Tracker records a busy flag per operation key.
//
// Overlapping WithLoading calls sharing a key are last-writer-wins: the first
// call to finish clears the flag while the other may still be running. Call
// sites that need the flag to stay raised until the newest call finishes use
// WithExclusiveLoading.
type Tracker struct {
	mu          sync.Mutex
	flags       map[string]bool
	generations map[string]uint64
	observer    Observer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithObserver attaches an Observer notified around every tracked operation.
func WithObserver(o Observer) Option {
	return func(t *Tracker) {
		t.observer = o
	}
}

// NewTracker constructs an empty Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		flags:       map[string]bool{},
		generations: map[string]uint64{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetLoading stores the flag for key without touching any other key.
func (t *Tracker) SetLoading(key string, busy bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setLocked(key, busy)
}

// IsLoading reports the flag for key; unseen keys are idle.
func (t *Tracker) IsLoading(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags[key]
}

// Snapshot returns the current map. The returned map is never mutated by the Tracker.
func (t *Tracker) Snapshot() map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags
}

// WithLoading raises the flag for key, runs op and lowers the flag once op
// returns, fails or panics. The error from op is returned unchanged.
func (t *Tracker) WithLoading(ctx context.Context, key string, op func(context.Context) error) (err error) {
	t.SetLoading(key, true)
	t.started(key)
	defer func() {
		t.SetLoading(key, false)
		t.finished(key, err)
	}()
	return op(ctx)
}

// WithExclusiveLoading behaves like WithLoading but only clears the flag when
// no newer call for the same key started in the meantime.
func (t *Tracker) WithExclusiveLoading(ctx context.Context, key string, op func(context.Context) error) (err error) {
	t.mu.Lock()
	t.generations[key]++
	gen := t.generations[key]
	t.setLocked(key, true)
	t.mu.Unlock()

	t.started(key)
	defer func() {
		t.mu.Lock()
		if t.generations[key] == gen {
			t.setLocked(key, false)
		}
		t.mu.Unlock()
		t.finished(key, err)
	}()
	return op(ctx)
}

// setLocked replaces the map with a copy holding the new value so snapshots
// handed out earlier stay intact.
func (t *Tracker) setLocked(key string, busy bool) {
	if current, ok := t.flags[key]; ok && current == busy {
		return
	}
	next := make(map[string]bool, len(t.flags)+1)
	for k, v := range t.flags {
		next[k] = v
	}
	next[key] = busy
	t.flags = next
}

func (t *Tracker) started(key string) {
	if t.observer != nil {
		t.observer.OperationStarted(key)
	}
}

func (t *Tracker) finished(key string, err error) {
	if t.observer != nil {
		t.observer.OperationFinished(key, err)
	}
}
