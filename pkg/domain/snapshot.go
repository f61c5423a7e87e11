package domain

import (
	"fmt"
	"time"
)

// SnapshotVersion is written into every snapshot.
const SnapshotVersion = 1

// SessionRecord is the serialized form of one FlowSession.
type SessionRecord struct {
	FlowID     string      `json:"flow_id"`
	StateID    string      `json:"state_id"`
	Status     Status      `json:"status"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Snapshot is the flat, serializable form of a Stack. Sessions are ordered
// from root to top.
type Snapshot struct {
	Version       int             `json:"version"`
	ID            string          `json:"id"`
	Sessions      []SessionRecord `json:"sessions"`
	Conversation  []Attribute     `json:"conversation,omitempty"`
	LastEventID   string          `json:"last_event_id,omitempty"`
	LastEventTime time.Time       `json:"last_event_time,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ActiveFlowID returns the flow id of the top record.
func (s *Snapshot) ActiveFlowID() string {
	if len(s.Sessions) == 0 {
		return ""
	}
	return s.Sessions[len(s.Sessions)-1].FlowID
}

// CurrentStateID returns the state id of the top record.
func (s *Snapshot) CurrentStateID() string {
	if len(s.Sessions) == 0 {
		return ""
	}
	return s.Sessions[len(s.Sessions)-1].StateID
}

// Snapshot captures the stack. Attribute values are shared, not copied.
func (st *Stack) Snapshot() *Snapshot {
	snap := &Snapshot{
		Version:       SnapshotVersion,
		ID:            st.ID,
		Sessions:      make([]SessionRecord, 0, len(st.sessions)),
		Conversation:  st.Conversation.Attributes(),
		LastEventID:   st.LastEventID,
		LastEventTime: st.LastEventTime,
		UpdatedAt:     time.Now(),
	}
	for _, s := range st.sessions {
		snap.Sessions = append(snap.Sessions, SessionRecord{
			FlowID:     s.FlowID(),
			StateID:    s.StateID(),
			Status:     s.Status,
			Attributes: s.Scope.Attributes(),
		})
	}
	return snap
}

// FlowLookup resolves a flow id to its definition.
type FlowLookup func(flowID string) (*FlowDefinition, error)

// Restore rebuilds a stack from snap. Flow and state ids are resolved through
// lookup; parent links follow the record order.
func Restore(snap *Snapshot, lookup FlowLookup, listeners ...Listener) (*Stack, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrIllegalState)
	}
	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", ErrIllegalState, snap.Version)
	}

	st := NewStack(listeners...)
	st.ID = snap.ID
	st.Conversation = ScopeFromAttributes(snap.Conversation)
	st.LastEventID = snap.LastEventID
	st.LastEventTime = snap.LastEventTime

	var parent *FlowSession
	for i, rec := range snap.Sessions {
		flow, err := lookup(rec.FlowID)
		if err != nil {
			return nil, fmt.Errorf("restore session %d: %w", i, err)
		}
		state, err := flow.State(rec.StateID)
		if err != nil {
			return nil, fmt.Errorf("restore session %d: %w", i, err)
		}
		s := &FlowSession{
			Flow:   flow,
			State:  state,
			Status: rec.Status,
			Scope:  ScopeFromAttributes(rec.Attributes),
			Parent: parent,
		}
		st.sessions = append(st.sessions, s)
		parent = s
	}
	return st, nil
}
