package domain

import "fmt"

// Transition moves the execution from its source state to a target state.
type Transition struct {
	// On decides whether the transition matches the current event. Nil matches everything.
	On Criteria
	// When is the execution precondition. When it fails the source state is re-entered.
	When Criteria

	// To is the static target state id, resolved once at registration.
	To string
	// ToExpr is evaluated per dispatch and must yield a state id of the same flow.
	ToExpr string

	source *State
	target *State
}

// Source returns the owning state.
func (t *Transition) Source() *State { return t.source }

// Target returns the statically resolved target, or nil for dynamic transitions.
func (t *Transition) Target() *State { return t.target }

// Matches tests the matching criteria.
func (t *Transition) Matches(rc *RequestContext) (bool, error) {
	if t.On == nil {
		return true, nil
	}
	return t.On.Test(rc)
}

// CanExecute tests the execution precondition.
func (t *Transition) CanExecute(rc *RequestContext) (bool, error) {
	if t.When == nil {
		return true, nil
	}
	return t.When.Test(rc)
}

// ResolveTarget returns the state to enter.
func (t *Transition) ResolveTarget(rc *RequestContext) (*State, error) {
	if t.target != nil {
		return t.target, nil
	}
	if t.ToExpr == "" {
		return nil, fmt.Errorf("%w: transition from '%s' has no target", ErrNoSuchState, t.source)
	}
	id, err := EvalString(rc, t.ToExpr)
	if err != nil {
		return nil, err
	}
	return t.source.flow.State(id)
}

// TargetLabel describes the target for diagnostics and diagrams.
func (t *Transition) TargetLabel() string {
	if t.To != "" {
		return t.To
	}
	return "${" + t.ToExpr + "}"
}

func (t *Transition) String() string {
	on := WildcardID
	if t.On != nil {
		on = t.On.String()
	}
	return fmt.Sprintf("on %s -> %s", on, t.TargetLabel())
}
