package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/flowstack/pkg/domain"
)

// Builder manages the construction of one flow definition.
type Builder struct {
	flow   *domain.FlowDefinition
	states map[string]*StateBuilder
}

// New creates a builder for flow id.
func New(id string) *Builder {
	return &Builder{
		flow:   &domain.FlowDefinition{ID: id},
		states: make(map[string]*StateBuilder),
	}
}

// Flow is an alias of New that reads well at call sites: dsl.Flow("booking").
func Flow(id string) *Builder { return New(id) }

// Start designates the start state. By default the first added state starts the flow.
func (b *Builder) Start(stateID string) *Builder {
	b.flow.StartStateID = stateID
	return b
}

// OnFault routes faults wrapping sentinel to target.
func (b *Builder) OnFault(sentinel error, target string) *Builder {
	b.flow.FaultHandlers = append(b.flow.FaultHandlers, domain.OnFault(sentinel, target))
	return b
}

// OnFaultCode routes coded faults (see domain.Coded) to target.
func (b *Builder) OnFaultCode(code, target string) *Builder {
	b.flow.FaultHandlers = append(b.flow.FaultHandlers, domain.OnFaultCode(code, target))
	return b
}

// OnAnyFault routes every fault not matched by an earlier handler to target.
func (b *Builder) OnAnyFault(target string) *Builder {
	b.flow.FaultHandlers = append(b.flow.FaultHandlers, domain.AnyFault(target))
	return b
}

// Handle appends a custom fault handler.
func (b *Builder) Handle(h domain.FaultHandler) *Builder {
	b.flow.FaultHandlers = append(b.flow.FaultHandlers, h)
	return b
}

// View adds a View state rendering viewName. An empty viewName makes it a marker.
func (b *Builder) View(id, viewName string) *StateBuilder {
	return b.add(id, domain.KindView, func(s *domain.State) {
		s.View = &domain.ViewSpec{ViewName: viewName}
	})
}

// Action adds an Action state running the named actions in order.
func (b *Builder) Action(id string, actions ...string) *StateBuilder {
	return b.add(id, domain.KindAction, func(s *domain.State) {
		s.Action = &domain.ActionSpec{Actions: actions}
	})
}

// Decision adds a Decision state. Without actions it routes on its transition criteria alone.
func (b *Builder) Decision(id string, actions ...string) *StateBuilder {
	return b.add(id, domain.KindDecision, func(s *domain.State) {
		s.Action = &domain.ActionSpec{Actions: actions}
	})
}

// Subflow adds a Subflow state spawning flowID.
func (b *Builder) Subflow(id, flowID string) *StateBuilder {
	return b.add(id, domain.KindSubflow, func(s *domain.State) {
		s.Subflow = &domain.SubflowSpec{FlowID: flowID}
	})
}

// End adds a marker End state. Use View on the returned builder to render a terminal view.
func (b *Builder) End(id string) *StateBuilder {
	return b.add(id, domain.KindEnd, func(s *domain.State) {
		s.End = &domain.EndSpec{}
	})
}

// State returns the builder of an already added state, or nil.
func (b *Builder) State(id string) *StateBuilder {
	return b.states[id]
}

func (b *Builder) add(id string, kind domain.StateKind, init func(*domain.State)) *StateBuilder {
	if sb, ok := b.states[id]; ok {
		sb.err = errors.Join(sb.err, fmt.Errorf("state '%s' added twice", id))
		return sb
	}
	s := &domain.State{ID: id, Kind: kind}
	init(s)
	sb := &StateBuilder{state: s, builder: b}
	b.states[id] = sb
	b.flow.States = append(b.flow.States, s)
	return sb
}

// Build resolves the definition. Every builder misuse and every dangling
// reference is reported in the returned error.
func (b *Builder) Build() (*domain.FlowDefinition, error) {
	var errs []error
	for _, s := range b.flow.States {
		if sb := b.states[s.ID]; sb.err != nil {
			errs = append(errs, sb.err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w '%s': %w", domain.ErrInvalidDefinition, b.flow.ID, errors.Join(errs...))
	}
	if err := b.flow.Resolve(); err != nil {
		return nil, err
	}
	return b.flow, nil
}

// MustBuild is like Build but panics on error. Intended for tests and static flows.
func (b *Builder) MustBuild() *domain.FlowDefinition {
	f, err := b.Build()
	if err != nil {
		panic(err)
	}
	return f
}
