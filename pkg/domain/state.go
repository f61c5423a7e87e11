package domain

// StateKind discriminates the payload of a State.
type StateKind string

const (
	// KindView renders a view and pauses the execution until the next external event.
	KindView StateKind = "view"
	// KindAction runs a unit of work and re-transitions on its result without pausing.
	KindAction StateKind = "action"
	// KindDecision routes on criteria, optionally after running a unit of work.
	KindDecision StateKind = "decision"
	// KindSubflow spawns a nested flow session.
	KindSubflow StateKind = "subflow"
	// KindEnd terminates the active flow session.
	KindEnd StateKind = "end"
)

// ViewSpec configures a View state. An empty ViewName makes the state a marker:
// entering it pauses the execution but returns the null selection.
type ViewSpec struct {
	ViewName string
	Redirect bool

	// Setup is tested on entry. When it fails and SetupErrorTarget is set,
	// the state transitions there instead of rendering.
	Setup            Criteria
	SetupErrorTarget string

	setupErrorState *State
}

// ActionSpec configures the unit of work of an Action or Decision state.
// Named actions run in order; the first result that matches a transition wins.
// Expression, when set, is evaluated after the named actions and its string
// result is used as an event id.
type ActionSpec struct {
	Actions    []string
	Expression string
}

// SubflowSpec configures a Subflow state.
type SubflowSpec struct {
	FlowID string
	Input  *AttributeMapper
	Output *AttributeMapper
}

// EndSpec configures an End state. An empty ViewName makes it a marker that
// returns control without a view.
type EndSpec struct {
	ViewName string
	Redirect bool
}

// State is a node of a flow. Exactly one payload matching Kind is consulted.
type State struct {
	ID          string
	Kind        StateKind
	Transitions []*Transition

	View    *ViewSpec
	Action  *ActionSpec
	Subflow *SubflowSpec
	End     *EndSpec

	flow *FlowDefinition
}

// Flow returns the owning definition (set by FlowDefinition.Resolve).
func (s *State) Flow() *FlowDefinition { return s.flow }

// IsTerminal reports whether the state ends its session.
func (s *State) IsTerminal() bool { return s.Kind == KindEnd }

// IsMarker reports whether a View or End state has no view to render.
func (s *State) IsMarker() bool {
	switch s.Kind {
	case KindView:
		return s.View == nil || s.View.ViewName == ""
	case KindEnd:
		return s.End == nil || s.End.ViewName == ""
	}
	return false
}

// SetupErrorState returns the resolved setup-error target of a View state.
func (s *State) SetupErrorState() *State {
	if s.View == nil {
		return nil
	}
	return s.View.setupErrorState
}

// MatchTransition returns the first transition, in registration order, whose
// matching criteria accept the request.
func (s *State) MatchTransition(rc *RequestContext) (*Transition, error) {
	for _, t := range s.Transitions {
		ok, err := t.Matches(rc)
		if err != nil {
			return nil, err
		}
		if ok {
			return t, nil
		}
	}
	flowID := ""
	if s.flow != nil {
		flowID = s.flow.ID
	}
	return nil, &NoMatchingTransitionError{FlowID: flowID, StateID: s.ID, EventID: rc.Event().ID}
}

func (s *State) String() string {
	if s.flow != nil {
		return s.flow.ID + "." + s.ID
	}
	return s.ID
}
