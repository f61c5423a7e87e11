package runtime

import (
	"errors"

	"github.com/aretw0/flowstack/pkg/domain"
)

// fault converts err raised by state s into a transition to the first
// matching fault handler of the active flow. Unhandled faults pause the active
// session at s and are returned as a *domain.StateFaultError.
func (e *Engine) fault(rc *domain.RequestContext, s *domain.State, err error) (*step, error) {
	var ferr *domain.StateFaultError
	if !errors.As(err, &ferr) {
		flowID := ""
		if s.Flow() != nil {
			flowID = s.Flow().ID
		}
		ferr = &domain.StateFaultError{FlowID: flowID, StateID: s.ID, Err: err}
	}

	st := rc.Stack()
	active, aerr := st.ActiveSession()
	if aerr != nil {
		return nil, ferr
	}

	if target, ok := active.Flow.MatchFault(ferr); ok {
		e.logger.InfoContext(rc.Context(), "fault handled",
			"state", s.String(),
			"handler", target.ID,
			"err", ferr.Err)
		if err := rc.RequestScope().Put(FaultAttribute, ferr); err != nil {
			return nil, err
		}
		return enterStep(target), nil
	}

	e.logger.WarnContext(rc.Context(), "unhandled fault",
		"execution", st.ID,
		"state", s.String(),
		"err", ferr.Err)
	if err := st.Pause(rc, domain.NullSelection); err != nil {
		return nil, err
	}
	return nil, ferr
}
