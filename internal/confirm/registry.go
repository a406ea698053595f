package confirm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Action is the command executed once a confirmation is accepted.
type Action struct {
	Tag     string            `json:"tag"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Handler executes an accepted Action.
type Handler func(ctx context.Context, action Action) error

// Registry resolves action tags to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register binds tag to handler, replacing any previous binding.
func (r *Registry) Register(tag string, handler Handler) error {
	if tag == "" {
		return fmt.Errorf("confirm: action tag required")
	}
	if handler == nil {
		return fmt.Errorf("confirm: handler for %q is nil", tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[tag] = handler
	return nil
}

// Lookup returns the handler bound to tag.
func (r *Registry) Lookup(tag string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[tag]
	return h, ok
}

// Tags lists registered tags in lexical order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.handlers))
	for tag := range r.handlers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
