package dsl

import (
	"fmt"

	"github.com/aretw0/flowstack/pkg/domain"
)

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	state   *domain.State
	builder *Builder
	err     error
}

func (n *StateBuilder) fail(format string, args ...any) *StateBuilder {
	err := fmt.Errorf("state '%s': "+format, append([]any{n.state.ID}, args...)...)
	if n.err == nil {
		n.err = err
	} else {
		n.err = fmt.Errorf("%w; %w", n.err, err)
	}
	return n
}

func (n *StateBuilder) transition(t *domain.Transition) *StateBuilder {
	n.state.Transitions = append(n.state.Transitions, t)
	return n
}

// On adds a transition to target matching eventID ("*" matches any event).
func (n *StateBuilder) On(eventID, target string) *StateBuilder {
	return n.transition(&domain.Transition{On: domain.EventIs(eventID), To: target})
}

// OnAny adds a wildcard transition to target.
func (n *StateBuilder) OnAny(target string) *StateBuilder {
	return n.transition(&domain.Transition{On: domain.Wildcard(), To: target})
}

// If adds a transition to target matching when the expression is truthy.
func (n *StateBuilder) If(expr, target string) *StateBuilder {
	return n.transition(&domain.Transition{On: domain.Expr(expr), To: target})
}

// Match adds a transition to target with arbitrary matching criteria.
func (n *StateBuilder) Match(c domain.Criteria, target string) *StateBuilder {
	return n.transition(&domain.Transition{On: c, To: target})
}

// OnDynamic adds a transition matching eventID whose target state id is
// evaluated from targetExpr on every dispatch.
func (n *StateBuilder) OnDynamic(eventID, targetExpr string) *StateBuilder {
	return n.transition(&domain.Transition{On: domain.EventIs(eventID), ToExpr: targetExpr})
}

// MatchDynamic adds a transition with arbitrary matching criteria whose target
// state id is evaluated from targetExpr on every dispatch.
func (n *StateBuilder) MatchDynamic(c domain.Criteria, targetExpr string) *StateBuilder {
	return n.transition(&domain.Transition{On: c, ToExpr: targetExpr})
}

// When sets the execution precondition of the most recently added transition.
// When the expression is falsy the source state is re-entered.
func (n *StateBuilder) When(expr string) *StateBuilder {
	return n.Guard(domain.Expr(expr))
}

// Guard is like When with arbitrary criteria.
func (n *StateBuilder) Guard(c domain.Criteria) *StateBuilder {
	if len(n.state.Transitions) == 0 {
		return n.fail("precondition without a transition")
	}
	last := n.state.Transitions[len(n.state.Transitions)-1]
	last.When = domain.Chain(last.When, c)
	return n
}

// View sets the view name of a View or End state.
func (n *StateBuilder) View(viewName string) *StateBuilder {
	switch n.state.Kind {
	case domain.KindView:
		n.state.View.ViewName = viewName
	case domain.KindEnd:
		n.state.End.ViewName = viewName
	default:
		return n.fail("view name on a %s state", n.state.Kind)
	}
	return n
}

// Redirect asks transports to redirect before rendering the view of a View or End state.
func (n *StateBuilder) Redirect() *StateBuilder {
	switch n.state.Kind {
	case domain.KindView:
		n.state.View.Redirect = true
	case domain.KindEnd:
		n.state.End.Redirect = true
	default:
		return n.fail("redirect on a %s state", n.state.Kind)
	}
	return n
}

// Setup sets the setup criteria of a View state. When the expression is falsy
// and errorTarget is not empty, entry transitions to errorTarget instead of rendering.
func (n *StateBuilder) Setup(expr, errorTarget string) *StateBuilder {
	if n.state.Kind != domain.KindView {
		return n.fail("setup on a %s state", n.state.Kind)
	}
	n.state.View.Setup = domain.Expr(expr)
	n.state.View.SetupErrorTarget = errorTarget
	return n
}

// Expression sets the expression of an Action or Decision state; its string
// result is dispatched as an event id after the named actions.
func (n *StateBuilder) Expression(expr string) *StateBuilder {
	if n.state.Action == nil {
		return n.fail("expression on a %s state", n.state.Kind)
	}
	n.state.Action.Expression = expr
	return n
}

// Input appends input mappings to a Subflow state. Each pair is "source" or "source:target".
func (n *StateBuilder) Input(pairs ...string) *StateBuilder {
	if n.state.Kind != domain.KindSubflow {
		return n.fail("input mapping on a %s state", n.state.Kind)
	}
	n.state.Subflow.Input = appendMappings(n.state.Subflow.Input, pairs)
	return n
}

// Output appends output mappings to a Subflow state. Sources are read from the ended child's flow scope.
func (n *StateBuilder) Output(pairs ...string) *StateBuilder {
	if n.state.Kind != domain.KindSubflow {
		return n.fail("output mapping on a %s state", n.state.Kind)
	}
	n.state.Subflow.Output = appendMappings(n.state.Subflow.Output, pairs)
	return n
}

// NullFill switches the mappers of a Subflow state to domain.MissingNullFill.
func (n *StateBuilder) NullFill() *StateBuilder {
	if n.state.Kind != domain.KindSubflow {
		return n.fail("null-fill on a %s state", n.state.Kind)
	}
	for _, m := range []**domain.AttributeMapper{&n.state.Subflow.Input, &n.state.Subflow.Output} {
		if *m == nil {
			*m = &domain.AttributeMapper{}
		}
		(*m).Policy = domain.MissingNullFill
	}
	return n
}

// Build returns the underlying domain.State.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *StateBuilder) Build() *domain.State {
	return n.state
}

func appendMappings(m *domain.AttributeMapper, pairs []string) *domain.AttributeMapper {
	extra := domain.NewMapper(pairs...)
	if m == nil {
		return extra
	}
	m.Mappings = append(m.Mappings, extra.Mappings...)
	return m
}
