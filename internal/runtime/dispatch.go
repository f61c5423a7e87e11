package runtime

import (
	"errors"
	"fmt"

	"github.com/aretw0/flowstack/pkg/domain"
)

type stepKind int

const (
	// stepEnter enters a state of the active session.
	stepEnter stepKind = iota
	// stepSignal dispatches the request's current event into the active session's current state.
	stepSignal
	// stepTransition executes an already matched transition.
	stepTransition
)

// step is one unit of pending work. Each step produces at most one successor,
// so the cascade of a single event runs as a flat loop instead of recursion.
type step struct {
	kind       stepKind
	state      *domain.State
	transition *domain.Transition
}

func enterStep(s *domain.State) *step { return &step{kind: stepEnter, state: s} }

func signalStep() *step { return &step{kind: stepSignal} }

func transitionStep(t *domain.Transition) *step { return &step{kind: stepTransition, transition: t} }

// run executes steps until one yields a selection (the stack paused or
// emptied) or fails. Every no-match raised here is cascaded: the caller's own
// event was already accepted.
func (e *Engine) run(rc *domain.RequestContext, next *step) (domain.ViewSelection, error) {
	for steps := 0; next != nil; steps++ {
		if steps >= e.maxSteps {
			return domain.NullSelection, fmt.Errorf("%w: more than %d steps for event '%s'", domain.ErrStepLimitExceeded, e.maxSteps, rc.Event().ID)
		}

		var (
			sel domain.ViewSelection
			err error
		)
		switch next.kind {
		case stepEnter:
			next, sel, err = e.enter(rc, next.state)
		case stepSignal:
			next, err = e.signal(rc)
		case stepTransition:
			next, err = e.execute(rc, next.transition)
		}
		if err != nil {
			var nm *domain.NoMatchingTransitionError
			if errors.As(err, &nm) {
				nm.Cascaded = true
			}
			return domain.NullSelection, err
		}
		if next == nil {
			return sel, nil
		}
	}
	return domain.NullSelection, nil
}

// signal records the current event and matches it against the current state
// of the active session. Criteria errors fault the current state; a plain
// no-match is returned as is.
func (e *Engine) signal(rc *domain.RequestContext) (*step, error) {
	st := rc.Stack()
	active, err := st.ActiveSession()
	if err != nil {
		return nil, err
	}
	if err := st.RecordEvent(rc, rc.Event()); err != nil {
		return nil, err
	}
	tr, err := active.State.MatchTransition(rc)
	if err != nil {
		if errors.Is(err, domain.ErrNoMatchingTransition) {
			return nil, err
		}
		return e.fault(rc, active.State, err)
	}
	return transitionStep(tr), nil
}

// execute tests the precondition of t and moves to its target. A failed
// precondition re-enters the source state.
func (e *Engine) execute(rc *domain.RequestContext, t *domain.Transition) (*step, error) {
	source := t.Source()
	ok, err := t.CanExecute(rc)
	if err != nil {
		return e.fault(rc, source, err)
	}
	if !ok {
		e.logger.DebugContext(rc.Context(), "transition precondition failed, re-entering source",
			"state", source.String(),
			"transition", t.String())
		return enterStep(source), nil
	}

	target, err := t.ResolveTarget(rc)
	if err != nil {
		if errors.Is(err, domain.ErrNoSuchState) {
			return nil, err
		}
		return e.fault(rc, source, err)
	}
	return enterStep(target), nil
}
