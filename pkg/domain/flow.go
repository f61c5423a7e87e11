package domain

import (
	"errors"
	"fmt"
)

// FaultHandler converts a matching state fault into a transition to Target.
type FaultHandler struct {
	Description string
	Match       func(err error) bool
	Target      string

	target *State
}

// OnFault matches faults wrapping sentinel (errors.Is).
func OnFault(sentinel error, target string) FaultHandler {
	return FaultHandler{
		Description: sentinel.Error(),
		Match:       func(err error) bool { return errors.Is(err, sentinel) },
		Target:      target,
	}
}

// OnFaultCode matches faults whose chain contains a Coded error with code.
func OnFaultCode(code, target string) FaultHandler {
	return FaultHandler{
		Description: "code:" + code,
		Match: func(err error) bool {
			var coded Coded
			return errors.As(err, &coded) && coded.FaultCode() == code
		},
		Target: target,
	}
}

// OnFaultType matches faults whose chain contains an error of type T.
func OnFaultType[T error](target string) FaultHandler {
	var zero T
	return FaultHandler{
		Description: fmt.Sprintf("type:%T", zero),
		Match: func(err error) bool {
			var t T
			return errors.As(err, &t)
		},
		Target: target,
	}
}

// AnyFault matches every fault.
func AnyFault(target string) FaultHandler {
	return FaultHandler{
		Description: "*",
		Match:       func(error) bool { return true },
		Target:      target,
	}
}

// FlowDefinition is a named graph of states. Once resolved (which registries
// do on registration) it must be treated as immutable.
type FlowDefinition struct {
	ID            string
	StartStateID  string
	States        []*State
	FaultHandlers []FaultHandler

	index    map[string]*State
	resolved bool
}

// State looks up a state by id.
func (f *FlowDefinition) State(id string) (*State, error) {
	if f.index != nil {
		if s, ok := f.index[id]; ok {
			return s, nil
		}
	} else {
		for _, s := range f.States {
			if s.ID == id {
				return s, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: '%s' in flow '%s'", ErrNoSuchState, id, f.ID)
}

// Start returns the start state. Only valid after Resolve.
func (f *FlowDefinition) Start() *State {
	return f.index[f.StartStateID]
}

// Resolved reports whether Resolve succeeded.
func (f *FlowDefinition) Resolved() bool { return f.resolved }

// StateIDs returns the state ids in declaration order.
func (f *FlowDefinition) StateIDs() []string {
	ids := make([]string, len(f.States))
	for i, s := range f.States {
		ids[i] = s.ID
	}
	return ids
}

// SubflowIDs returns the distinct flow ids referenced by Subflow states.
func (f *FlowDefinition) SubflowIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range f.States {
		if s.Kind == KindSubflow && s.Subflow != nil && !seen[s.Subflow.FlowID] {
			seen[s.Subflow.FlowID] = true
			ids = append(ids, s.Subflow.FlowID)
		}
	}
	return ids
}

// MatchFault returns the handler state for err. The first registered handler wins.
func (f *FlowDefinition) MatchFault(err error) (*State, bool) {
	for _, h := range f.FaultHandlers {
		if h.Match != nil && h.Match(err) {
			return h.target, true
		}
	}
	return nil, false
}

// Resolve indexes the states, sets back references and resolves every static
// target. All problems are reported together, wrapped in ErrInvalidDefinition.
func (f *FlowDefinition) Resolve() error {
	if f.resolved {
		return nil
	}

	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if f.ID == "" {
		fail("flow id is required")
	}
	if len(f.States) == 0 {
		fail("flow has no states")
	}

	index := make(map[string]*State, len(f.States))
	for _, s := range f.States {
		if s == nil {
			fail("nil state")
			continue
		}
		if s.ID == "" {
			fail("state without id")
			continue
		}
		if _, dup := index[s.ID]; dup {
			fail("duplicate state id '%s'", s.ID)
			continue
		}
		index[s.ID] = s
	}

	if f.StartStateID == "" && len(f.States) > 0 && f.States[0] != nil {
		f.StartStateID = f.States[0].ID
	}
	if _, ok := index[f.StartStateID]; !ok && f.StartStateID != "" {
		fail("start state '%s' does not exist", f.StartStateID)
	}

	lookup := func(from, id string) *State {
		target, ok := index[id]
		if !ok {
			fail("state '%s' references unknown state '%s'", from, id)
		}
		return target
	}

	for _, s := range f.States {
		if s == nil || s.ID == "" {
			continue
		}
		s.flow = f
		if err := validatePayload(s); err != nil {
			errs = append(errs, err)
		}
		if s.Kind == KindView && s.View != nil && s.View.SetupErrorTarget != "" {
			s.View.setupErrorState = lookup(s.ID, s.View.SetupErrorTarget)
		}
		for i, t := range s.Transitions {
			if t == nil {
				fail("state '%s' has nil transition at %d", s.ID, i)
				continue
			}
			t.source = s
			switch {
			case t.To != "" && t.ToExpr != "":
				fail("transition %d of state '%s' has both a static and a dynamic target", i, s.ID)
			case t.To != "":
				t.target = lookup(s.ID, t.To)
			case t.ToExpr == "":
				fail("transition %d of state '%s' has no target", i, s.ID)
			}
		}
	}

	for i := range f.FaultHandlers {
		h := &f.FaultHandlers[i]
		if h.Match == nil {
			fail("fault handler %d has no matcher", i)
		}
		h.target = lookup("fault handler "+h.Description, h.Target)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w '%s': %w", ErrInvalidDefinition, f.ID, errors.Join(errs...))
	}

	f.index = index
	f.resolved = true
	return nil
}

func validatePayload(s *State) error {
	switch s.Kind {
	case KindView, KindDecision:
		return nil
	case KindAction:
		if s.Action == nil || (len(s.Action.Actions) == 0 && s.Action.Expression == "") {
			return fmt.Errorf("action state '%s' has no action or expression", s.ID)
		}
	case KindSubflow:
		if s.Subflow == nil || s.Subflow.FlowID == "" {
			return fmt.Errorf("subflow state '%s' has no flow id", s.ID)
		}
	case KindEnd:
		if len(s.Transitions) > 0 {
			return fmt.Errorf("end state '%s' cannot have transitions", s.ID)
		}
	default:
		return fmt.Errorf("state '%s' has unknown kind '%s'", s.ID, s.Kind)
	}
	return nil
}
