package domain

import (
	"fmt"
	"strings"
	"time"
)

// Stack is the ordered set of nested flow sessions of one execution.
// The last element is the top. At most one session is ACTIVE and it is the
// top; the top may instead be PAUSED; every other session is SUSPENDED.
//
// A Stack is not safe for concurrent use. Callers serialize access per
// execution (see pkg/session).
type Stack struct {
	ID            string
	Conversation  *Scope
	LastEventID   string
	LastEventTime time.Time

	sessions  []*FlowSession
	listeners []Listener
}

// NewStack creates an empty stack with its own conversation scope.
func NewStack(listeners ...Listener) *Stack {
	return &Stack{
		Conversation: NewScope(),
		listeners:    append([]Listener(nil), listeners...),
	}
}

// AddListener registers l after the already registered listeners.
func (st *Stack) AddListener(l Listener) {
	if l != nil {
		st.listeners = append(st.listeners, l)
	}
}

// Activate suspends the current top and pushes session as ACTIVE.
func (st *Stack) Activate(rc *RequestContext, session *FlowSession) {
	parent := st.top()
	if parent != nil {
		parent.Status = StatusSuspended
	}
	session.Parent = parent
	session.Status = StatusActive
	st.sessions = append(st.sessions, session)

	if parent == nil {
		st.notify(func(l Listener) { l.Started(rc, session) })
		return
	}
	st.notify(func(l Listener) { l.SubflowSpawned(rc, session) })
}

// EndActiveSession pops the top session and marks it ENDED. The new top, if
// any, becomes ACTIVE again. The ended session is returned so the caller can
// map its final flow scope.
func (st *Stack) EndActiveSession(rc *RequestContext) (*FlowSession, error) {
	ended := st.top()
	if ended == nil {
		return nil, fmt.Errorf("%w: no active session to end", ErrIllegalState)
	}
	st.sessions = st.sessions[:len(st.sessions)-1]
	ended.Status = StatusEnded

	if resumed := st.top(); resumed != nil {
		resumed.Status = StatusActive
		st.notify(func(l Listener) { l.SubflowEnded(rc, ended) })
		return ended, nil
	}
	st.notify(func(l Listener) { l.Ended(rc, ended) })
	return ended, nil
}

// SetCurrentState moves the active session to state.
func (st *Stack) SetCurrentState(rc *RequestContext, state *State) error {
	s, err := st.ActiveSession()
	if err != nil {
		return err
	}
	previous := s.State
	s.State = state
	st.notify(func(l Listener) { l.StateTransitioned(rc, previous, state) })
	return nil
}

// RecordEvent stores the last event id and time and notifies listeners.
func (st *Stack) RecordEvent(rc *RequestContext, ev Event) error {
	if !st.IsActive() {
		return fmt.Errorf("%w: cannot signal '%s' on an inactive stack", ErrIllegalState, ev.ID)
	}
	st.LastEventID = ev.ID
	st.LastEventTime = ev.Timestamp
	st.notify(func(l Listener) { l.EventSignaled(rc, ev) })
	return nil
}

// Pause marks the active session PAUSED, waiting for the next external event.
func (st *Stack) Pause(rc *RequestContext, selection ViewSelection) error {
	s, err := st.ActiveSession()
	if err != nil {
		return err
	}
	s.Status = StatusPaused
	st.notify(func(l Listener) { l.Paused(rc, selection) })
	return nil
}

// Resume reactivates a PAUSED top session. It is a no-op when the top is already ACTIVE.
func (st *Stack) Resume(rc *RequestContext) error {
	s, err := st.ActiveSession()
	if err != nil {
		return err
	}
	if s.Status != StatusPaused {
		return nil
	}
	s.Status = StatusActive
	st.notify(func(l Listener) { l.Resumed(rc, s) })
	return nil
}

// IsActive reports whether the stack holds at least one session.
func (st *Stack) IsActive() bool { return len(st.sessions) > 0 }

// Depth returns the number of sessions.
func (st *Stack) Depth() int { return len(st.sessions) }

// ActiveSession returns the top session.
func (st *Stack) ActiveSession() (*FlowSession, error) {
	if s := st.top(); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: no active flow session", ErrIllegalState)
}

// Sessions returns the sessions from root to top.
func (st *Stack) Sessions() []*FlowSession {
	return append([]*FlowSession(nil), st.sessions...)
}

// ActiveFlowID returns the flow id of the top session, or "" when inactive.
func (st *Stack) ActiveFlowID() string {
	if s := st.top(); s != nil {
		return s.FlowID()
	}
	return ""
}

// QualifiedActiveFlowID joins the flow ids from root to top with dots.
func (st *Stack) QualifiedActiveFlowID() string {
	return strings.Join(st.FlowIDStack(), ".")
}

// FlowIDStack returns the flow ids from root to top.
func (st *Stack) FlowIDStack() []string {
	ids := make([]string, len(st.sessions))
	for i, s := range st.sessions {
		ids[i] = s.FlowID()
	}
	return ids
}

// CurrentStateID returns the current state of the top session, or "" when inactive.
func (st *Stack) CurrentStateID() string {
	if s := st.top(); s != nil {
		return s.StateID()
	}
	return ""
}

// Exists reports whether a session of flowID is on the stack.
func (st *Stack) Exists(flowID string) bool {
	return st.find(flowID) != nil
}

// Status returns the status of the topmost session of flowID.
func (st *Stack) Status(flowID string) (Status, error) {
	if s := st.find(flowID); s != nil {
		return s.Status, nil
	}
	return "", fmt.Errorf("%w: flow '%s' is not on the stack", ErrIllegalState, flowID)
}

func (st *Stack) find(flowID string) *FlowSession {
	for i := len(st.sessions) - 1; i >= 0; i-- {
		if st.sessions[i].FlowID() == flowID {
			return st.sessions[i]
		}
	}
	return nil
}

func (st *Stack) top() *FlowSession {
	if len(st.sessions) == 0 {
		return nil
	}
	return st.sessions[len(st.sessions)-1]
}

func (st *Stack) notify(fn func(Listener)) {
	for _, l := range st.listeners {
		fn(l)
	}
}
