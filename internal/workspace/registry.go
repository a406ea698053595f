package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSessionRequired indicates Attach was called without a session id.
var ErrSessionRequired = errors.New("workspace: session id required")

// Registry owns the live workspaces keyed by session id.
type Registry struct {
	mu      sync.Mutex
	spaces  map[string]*Workspace
	factory Factory
	now     func() time.Time
	logger  *slog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(factory Factory) *Registry {
	logger := factory.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		spaces:  map[string]*Workspace{},
		factory: factory,
		now:     time.Now,
		logger:  logger,
	}
}

// Attach returns the workspace for sessionID, creating it on first use.
func (r *Registry) Attach(sessionID string) (*Workspace, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	r.mu.Lock()
	ws, ok := r.spaces[sessionID]
	if !ok {
		var err error
		ws, err = r.factory.build(sessionID)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		r.spaces[sessionID] = ws
		r.reportLocked()
	}
	ws.touch(r.now())
	r.mu.Unlock()
	return ws, nil
}

// Lookup returns an existing workspace without creating one.
func (r *Registry) Lookup(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.spaces[sessionID]
	return ws, ok
}

// Detach tears down the workspace of sessionID. Unknown ids are ignored.
func (r *Registry) Detach(sessionID string) {
	r.mu.Lock()
	ws, ok := r.spaces[sessionID]
	if ok {
		delete(r.spaces, sessionID)
		r.reportLocked()
	}
	r.mu.Unlock()
	if ok {
		ws.close()
	}
}

// Len reports the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spaces)
}

// Sweep tears down workspaces idle for longer than idle and returns how many.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	var stale []*Workspace
	for id, ws := range r.spaces {
		if ws.LastSeen().Before(cutoff) {
			stale = append(stale, ws)
			delete(r.spaces, id)
		}
	}
	if len(stale) > 0 {
		r.reportLocked()
	}
	r.mu.Unlock()
	for _, ws := range stale {
		ws.close()
	}
	return len(stale)
}

// Run sweeps idle workspaces every interval until ctx is cancelled, then
// tears down every remaining workspace.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.logger.Info("evicted idle workspaces", slog.Int("count", n))
			}
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	spaces := r.spaces
	r.spaces = map[string]*Workspace{}
	r.reportLocked()
	r.mu.Unlock()
	for _, ws := range spaces {
		ws.close()
	}
}

// reportLocked publishes the live count. Callers hold r.mu so published
// counts follow the order of the changes; LiveCount must not call back into
// the Registry.
func (r *Registry) reportLocked() {
	if r.factory.LiveCount != nil {
		r.factory.LiveCount(len(r.spaces))
	}
}
