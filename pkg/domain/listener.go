package domain

// Listener observes the lifecycle of an execution stack. Notifications are
// delivered synchronously, in registration order, after the stack invariant
// has been restored.
type Listener interface {
	Started(rc *RequestContext, session *FlowSession)
	EventSignaled(rc *RequestContext, event Event)
	StateTransitioned(rc *RequestContext, previous, next *State)
	SubflowSpawned(rc *RequestContext, session *FlowSession)
	SubflowEnded(rc *RequestContext, ended *FlowSession)
	Paused(rc *RequestContext, selection ViewSelection)
	Resumed(rc *RequestContext, session *FlowSession)
	Ended(rc *RequestContext, ended *FlowSession)
}

// LifecycleHooks adapts plain callbacks to the Listener interface.
// Nil fields are skipped.
type LifecycleHooks struct {
	OnStarted           func(*RequestContext, *FlowSession)
	OnEventSignaled     func(*RequestContext, Event)
	OnStateTransitioned func(rc *RequestContext, previous, next *State)
	OnSubflowSpawned    func(*RequestContext, *FlowSession)
	OnSubflowEnded      func(*RequestContext, *FlowSession)
	OnPaused            func(*RequestContext, ViewSelection)
	OnResumed           func(*RequestContext, *FlowSession)
	OnEnded             func(*RequestContext, *FlowSession)
}

var _ Listener = LifecycleHooks{}

func (h LifecycleHooks) Started(rc *RequestContext, s *FlowSession) {
	if h.OnStarted != nil {
		h.OnStarted(rc, s)
	}
}

func (h LifecycleHooks) EventSignaled(rc *RequestContext, ev Event) {
	if h.OnEventSignaled != nil {
		h.OnEventSignaled(rc, ev)
	}
}

func (h LifecycleHooks) StateTransitioned(rc *RequestContext, previous, next *State) {
	if h.OnStateTransitioned != nil {
		h.OnStateTransitioned(rc, previous, next)
	}
}

func (h LifecycleHooks) SubflowSpawned(rc *RequestContext, s *FlowSession) {
	if h.OnSubflowSpawned != nil {
		h.OnSubflowSpawned(rc, s)
	}
}

func (h LifecycleHooks) SubflowEnded(rc *RequestContext, s *FlowSession) {
	if h.OnSubflowEnded != nil {
		h.OnSubflowEnded(rc, s)
	}
}

func (h LifecycleHooks) Paused(rc *RequestContext, sel ViewSelection) {
	if h.OnPaused != nil {
		h.OnPaused(rc, sel)
	}
}

func (h LifecycleHooks) Resumed(rc *RequestContext, s *FlowSession) {
	if h.OnResumed != nil {
		h.OnResumed(rc, s)
	}
}

func (h LifecycleHooks) Ended(rc *RequestContext, s *FlowSession) {
	if h.OnEnded != nil {
		h.OnEnded(rc, s)
	}
}
