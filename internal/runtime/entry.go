package runtime

import (
	"errors"
	"fmt"

	"github.com/aretw0/flowstack/pkg/domain"
)

// enter makes s the current state of the active session and runs its entry
// behavior. A nil step means processing of the event is complete.
func (e *Engine) enter(rc *domain.RequestContext, s *domain.State) (*step, domain.ViewSelection, error) {
	st := rc.Stack()
	if err := st.SetCurrentState(rc, s); err != nil {
		return nil, domain.NullSelection, err
	}
	e.logger.DebugContext(rc.Context(), "entering state", "state", s.String(), "kind", s.Kind)

	var (
		next *step
		err  error
	)
	switch s.Kind {
	case domain.KindView:
		return e.enterView(rc, s)
	case domain.KindEnd:
		return e.enterEnd(rc, s)
	case domain.KindSubflow:
		next, err = e.enterSubflow(rc, s)
	case domain.KindAction, domain.KindDecision:
		next, err = e.enterAction(rc, s)
	default:
		err = fmt.Errorf("%w: state '%s' has unknown kind '%s'", domain.ErrIllegalState, s, s.Kind)
	}
	return next, domain.NullSelection, err
}

func (e *Engine) enterView(rc *domain.RequestContext, s *domain.State) (*step, domain.ViewSelection, error) {
	if s.View != nil && s.View.Setup != nil {
		ok, err := s.View.Setup.Test(rc)
		if err != nil {
			next, err := e.fault(rc, s, err)
			return next, domain.NullSelection, err
		}
		if !ok {
			if target := s.SetupErrorState(); target != nil {
				e.logger.DebugContext(rc.Context(), "view setup failed", "state", s.String(), "target", target.ID)
				return enterStep(target), domain.NullSelection, nil
			}
		}
	}

	sel := domain.NullSelection
	if !s.IsMarker() {
		sel = domain.NewViewSelection(s.View.ViewName, rc.Model(), s.View.Redirect)
	}
	if err := rc.Stack().Pause(rc, sel); err != nil {
		return nil, domain.NullSelection, err
	}
	return nil, sel, nil
}

func (e *Engine) enterEnd(rc *domain.RequestContext, s *domain.State) (*step, domain.ViewSelection, error) {
	st := rc.Stack()
	ended, err := st.EndActiveSession(rc)
	if err != nil {
		return nil, domain.NullSelection, err
	}

	if st.IsActive() {
		parent, err := st.ActiveSession()
		if err != nil {
			return nil, domain.NullSelection, err
		}
		if spawner := parent.State; spawner != nil && spawner.Subflow != nil {
			if err := spawner.Subflow.Output.Map(rc, ended.Scope, parent.Scope); err != nil {
				next, err := e.fault(rc, spawner, err)
				return next, domain.NullSelection, err
			}
		}
		rc.SetEvent(domain.Event{ID: s.ID, Params: ended.Scope.Map()})
		return signalStep(), domain.NullSelection, nil
	}

	if s.IsMarker() {
		return nil, domain.NullSelection, nil
	}
	model := domain.MergedModel(rc.RequestScope(), ended.Scope, rc.ConversationScope())
	return nil, domain.NewViewSelection(s.End.ViewName, model, s.End.Redirect), nil
}

func (e *Engine) enterSubflow(rc *domain.RequestContext, s *domain.State) (*step, error) {
	st := rc.Stack()
	if st.Depth() >= e.maxDepth {
		return nil, fmt.Errorf("%w: spawning '%s' from %s would exceed %d", domain.ErrMaxDepthExceeded, s.Subflow.FlowID, s, e.maxDepth)
	}
	child, err := e.flows.GetFlow(s.Subflow.FlowID)
	if err != nil {
		return nil, err
	}

	parent, err := st.ActiveSession()
	if err != nil {
		return nil, err
	}
	session := domain.NewFlowSession(child, parent)
	if err := s.Subflow.Input.Map(rc, parent.Scope, session.Scope); err != nil {
		return e.fault(rc, s, err)
	}

	st.Activate(rc, session)
	return enterStep(child.Start()), nil
}

// enterAction runs the unit of work of an Action or Decision state and
// dispatches its result within the same state. Named actions run in order and
// the first result matching a transition wins; the expression, if any, runs last.
func (e *Engine) enterAction(rc *domain.RequestContext, s *domain.State) (*step, error) {
	params := rc.Event().Params
	spec := s.Action
	if spec == nil {
		spec = &domain.ActionSpec{}
	}

	try := func(result string) (*domain.Transition, error) {
		rc.SetEvent(domain.Event{ID: result, Params: params})
		return s.MatchTransition(rc)
	}

	var lastErr error
	for _, name := range spec.Actions {
		if e.actions == nil {
			return nil, fmt.Errorf("%w: '%s' (no action dispatcher configured)", domain.ErrNoSuchAction, name)
		}
		result, err := e.actions.Dispatch(rc, name)
		if err != nil {
			if errors.Is(err, domain.ErrNoSuchAction) {
				return nil, err
			}
			return e.fault(rc, s, err)
		}
		tr, err := try(result)
		if err == nil {
			return e.matched(rc, tr)
		}
		if !errors.Is(err, domain.ErrNoMatchingTransition) {
			return e.fault(rc, s, err)
		}
		lastErr = err
	}

	if spec.Expression != "" {
		result, err := domain.EvalString(rc, spec.Expression)
		if err != nil {
			return e.fault(rc, s, err)
		}
		tr, err := try(result)
		if err == nil {
			return e.matched(rc, tr)
		}
		if !errors.Is(err, domain.ErrNoMatchingTransition) {
			return e.fault(rc, s, err)
		}
		lastErr = err
	}

	if len(spec.Actions) == 0 && spec.Expression == "" {
		// A bare decision routes on its criteria alone.
		tr, err := try("")
		if err != nil {
			if errors.Is(err, domain.ErrNoMatchingTransition) {
				return nil, err
			}
			return e.fault(rc, s, err)
		}
		return e.matched(rc, tr)
	}
	return nil, lastErr
}

func (e *Engine) matched(rc *domain.RequestContext, tr *domain.Transition) (*step, error) {
	if err := rc.Stack().RecordEvent(rc, rc.Event()); err != nil {
		return nil, err
	}
	return transitionStep(tr), nil
}
