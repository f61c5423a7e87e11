package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/flowstack/pkg/domain"
)

// Loader implements ports.FlowLoader over definitions built in Go (e.g. with pkg/dsl).
type Loader struct {
	flows []*domain.FlowDefinition
}

// NewLoader creates a loader serving flows.
func NewLoader(flows ...*domain.FlowDefinition) *Loader {
	return &Loader{flows: flows}
}

// Add appends more definitions.
func (l *Loader) Add(flows ...*domain.FlowDefinition) {
	l.flows = append(l.flows, flows...)
}

// Load returns the definitions in insertion order.
func (l *Loader) Load(ctx context.Context) ([]*domain.FlowDefinition, error) {
	out := make([]*domain.FlowDefinition, 0, len(l.flows))
	for _, f := range l.flows {
		if f == nil || f.ID == "" {
			return nil, fmt.Errorf("%w: flow missing ID", domain.ErrInvalidDefinition)
		}
		out = append(out, f)
	}
	return out, nil
}
