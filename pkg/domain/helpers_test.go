package domain

import (
	"context"
	"fmt"
)

// mapEvaluator resolves expressions from a fixed table, or from model
// attributes when the expression is a plain attribute name.
type mapEvaluator map[string]any

func (m mapEvaluator) Eval(rc *RequestContext, expr string) (any, error) {
	if v, ok := m[expr]; ok {
		if err, isErr := v.(error); isErr {
			return nil, err
		}
		return v, nil
	}
	if v, ok := rc.Model().Get(expr); ok {
		return v, nil
	}
	return nil, fmt.Errorf("unknown expression %q", expr)
}

func newRC(eventID string, ev Evaluator) *RequestContext {
	rc := NewRequestContext(context.Background(), NewStack(), ev)
	rc.SetEvent(Event{ID: eventID})
	return rc
}

// recorder collects listener notifications as readable strings.
type recorder struct {
	calls []string
}

func (r *recorder) hooks() LifecycleHooks {
	return LifecycleHooks{
		OnStarted: func(_ *RequestContext, s *FlowSession) {
			r.calls = append(r.calls, "started:"+s.FlowID())
		},
		OnEventSignaled: func(_ *RequestContext, ev Event) {
			r.calls = append(r.calls, "event:"+ev.ID)
		},
		OnStateTransitioned: func(_ *RequestContext, _, next *State) {
			r.calls = append(r.calls, "state:"+next.ID)
		},
		OnSubflowSpawned: func(_ *RequestContext, s *FlowSession) {
			r.calls = append(r.calls, "spawned:"+s.FlowID())
		},
		OnSubflowEnded: func(_ *RequestContext, s *FlowSession) {
			r.calls = append(r.calls, "subflowEnded:"+s.FlowID())
		},
		OnPaused: func(_ *RequestContext, sel ViewSelection) {
			r.calls = append(r.calls, "paused:"+sel.ViewName)
		},
		OnResumed: func(_ *RequestContext, s *FlowSession) {
			r.calls = append(r.calls, "resumed:"+s.FlowID())
		},
		OnEnded: func(_ *RequestContext, s *FlowSession) {
			r.calls = append(r.calls, "ended:"+s.FlowID())
		},
	}
}
