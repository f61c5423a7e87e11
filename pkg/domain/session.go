package domain

// Status is the lifecycle status of a FlowSession.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"    // waiting for the next external event
	StatusSuspended Status = "SUSPENDED" // a subflow is running on top of it
	StatusEnded     Status = "ENDED"
)

// FlowSession is one activation of a FlowDefinition.
type FlowSession struct {
	Flow   *FlowDefinition
	State  *State
	Status Status
	Scope  *Scope
	Parent *FlowSession
}

// NewFlowSession creates a session in status CREATED with an empty flow scope.
func NewFlowSession(flow *FlowDefinition, parent *FlowSession) *FlowSession {
	return &FlowSession{
		Flow:   flow,
		Status: StatusCreated,
		Scope:  NewScope(),
		Parent: parent,
	}
}

// FlowID returns the id of the session's flow.
func (s *FlowSession) FlowID() string {
	if s.Flow == nil {
		return ""
	}
	return s.Flow.ID
}

// StateID returns the current state id, or "" before the first state is entered.
func (s *FlowSession) StateID() string {
	if s.State == nil {
		return ""
	}
	return s.State.ID
}

// IsRoot reports whether the session has no parent.
func (s *FlowSession) IsRoot() bool { return s.Parent == nil }
