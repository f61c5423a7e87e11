package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/flowstack/pkg/domain"
)

// Flows holds resolved flow definitions addressed by id.
type Flows struct {
	mu    sync.RWMutex
	flows map[string]*domain.FlowDefinition
}

// NewFlows creates a registry and registers flows, failing fast on the first invalid one.
func NewFlows(flows ...*domain.FlowDefinition) (*Flows, error) {
	r := &Flows{flows: make(map[string]*domain.FlowDefinition)}
	if err := r.Register(flows...); err != nil {
		return nil, err
	}
	return r, nil
}

// Register resolves and adds definitions. Duplicate ids are rejected and
// nothing is registered when any definition fails.
func (r *Flows) Register(flows ...*domain.FlowDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := make(map[string]bool, len(flows))
	for _, f := range flows {
		if f == nil {
			return fmt.Errorf("%w: nil flow", domain.ErrInvalidDefinition)
		}
		if err := f.Resolve(); err != nil {
			return err
		}
		if _, exists := r.flows[f.ID]; exists || batch[f.ID] {
			return fmt.Errorf("%w: flow '%s' already registered", domain.ErrInvalidDefinition, f.ID)
		}
		batch[f.ID] = true
	}
	for _, f := range flows {
		r.flows[f.ID] = f
	}
	return nil
}

// GetFlow returns the definition of id.
func (r *Flows) GetFlow(id string) (*domain.FlowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flows[id]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", domain.ErrNoSuchFlow, id)
	}
	return f, nil
}

// IDs returns the registered flow ids in sorted order.
func (r *Flows) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedIDs()
}

// Validate checks that every subflow reference points at a registered flow.
func (r *Flows) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, id := range r.sortedIDs() {
		for _, child := range r.flows[id].SubflowIDs() {
			if _, ok := r.flows[child]; !ok {
				errs = append(errs, fmt.Errorf("flow '%s' spawns unknown flow '%s'", id, child))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrNoSuchFlow, errors.Join(errs...))
	}
	return nil
}

func (r *Flows) sortedIDs() []string {
	ids := make([]string, 0, len(r.flows))
	for id := range r.flows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
