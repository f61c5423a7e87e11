package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/flowstack/pkg/domain"
)

// Actions manages the named units of work available to Action and Decision states.
type Actions struct {
	mu      sync.RWMutex
	actions map[string]domain.ActionFunc
}

// NewActions creates a new empty action registry.
func NewActions() *Actions {
	return &Actions{
		actions: make(map[string]domain.ActionFunc),
	}
}

// Register adds an action to the registry.
// If an action with the same name exists, it is overwritten.
func (r *Actions) Register(name string, fn domain.ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// Lookup returns the action registered under name.
func (r *Actions) Lookup(name string) (domain.ActionFunc, error) {
	r.mu.RLock()
	fn, ok := r.actions[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoSuchAction, name)
	}
	return fn, nil
}

// Dispatch looks up an action by name and executes it.
// Returns an error wrapping domain.ErrNoSuchAction if the action is not found.
func (r *Actions) Dispatch(rc *domain.RequestContext, name string) (string, error) {
	fn, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return fn(rc)
}

// Names returns the registered action names in sorted order.
func (r *Actions) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for n := range r.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
