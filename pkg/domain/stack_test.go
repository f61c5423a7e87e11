package domain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentFlow() *FlowDefinition {
	return &FlowDefinition{
		ID: "payment",
		States: []*State{
			{ID: "card", Kind: KindView, View: &ViewSpec{ViewName: "cardView"},
				Transitions: []*Transition{{On: EventIs("pay"), To: "paid"}}},
			{ID: "paid", Kind: KindEnd},
		},
	}
}

func resolved(t *testing.T, flows ...*FlowDefinition) map[string]*FlowDefinition {
	t.Helper()
	out := make(map[string]*FlowDefinition)
	for _, f := range flows {
		require.NoError(t, f.Resolve())
		out[f.ID] = f
	}
	return out
}

func TestStack_ActivateAndEnd(t *testing.T) {
	flows := resolved(t, bookingFlow(), paymentFlow())
	rec := &recorder{}
	st := NewStack(rec.hooks())
	rc := NewRequestContext(context.Background(), st, nil)

	root := NewFlowSession(flows["booking"], nil)
	st.Activate(rc, root)
	require.NoError(t, st.SetCurrentState(rc, flows["booking"].Start()))

	assert.True(t, st.IsActive())
	assert.Equal(t, StatusActive, root.Status)
	assert.Equal(t, []string{"booking"}, st.FlowIDStack())
	assert.Equal(t, "enterDetails", st.CurrentStateID())

	child := NewFlowSession(flows["payment"], nil)
	st.Activate(rc, child)
	assert.Equal(t, 2, st.Depth())
	assert.Same(t, root, child.Parent)
	assert.Equal(t, StatusSuspended, root.Status)
	assert.Equal(t, StatusActive, child.Status)
	assert.Equal(t, "booking.payment", st.QualifiedActiveFlowID())
	assert.Equal(t, "payment", st.ActiveFlowID())
	assert.True(t, st.Exists("booking"))
	assert.False(t, st.Exists("other"))

	status, err := st.Status("booking")
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, status)
	_, err = st.Status("other")
	assert.ErrorIs(t, err, ErrIllegalState)

	ended, err := st.EndActiveSession(rc)
	require.NoError(t, err)
	assert.Same(t, child, ended)
	assert.Equal(t, StatusEnded, child.Status)
	assert.Equal(t, StatusActive, root.Status)

	_, err = st.EndActiveSession(rc)
	require.NoError(t, err)
	assert.False(t, st.IsActive())
	assert.Equal(t, "", st.ActiveFlowID())

	_, err = st.EndActiveSession(rc)
	assert.ErrorIs(t, err, ErrIllegalState)

	assert.Equal(t, []string{
		"started:booking",
		"state:enterDetails",
		"spawned:payment",
		"subflowEnded:payment",
		"ended:booking",
	}, rec.calls)
}

func TestStack_PauseResumeAndRecordEvent(t *testing.T) {
	flows := resolved(t, bookingFlow())
	rec := &recorder{}
	st := NewStack()
	st.AddListener(rec.hooks())
	rc := NewRequestContext(context.Background(), st, nil)

	assert.ErrorIs(t, st.RecordEvent(rc, Event{ID: "x"}), ErrIllegalState)
	assert.ErrorIs(t, st.Pause(rc, NullSelection), ErrIllegalState)

	s := NewFlowSession(flows["booking"], nil)
	st.Activate(rc, s)
	require.NoError(t, st.Pause(rc, ViewSelection{ViewName: "v"}))
	assert.Equal(t, StatusPaused, s.Status)

	rc.SetEvent(Event{ID: "submit"})
	require.NoError(t, st.RecordEvent(rc, rc.Event()))
	assert.Equal(t, "submit", st.LastEventID)
	assert.False(t, st.LastEventTime.IsZero())

	require.NoError(t, st.Resume(rc))
	require.NoError(t, st.Resume(rc), "resuming an active session is a no-op")
	assert.Equal(t, StatusActive, s.Status)

	assert.Equal(t, []string{"started:booking", "paused:v", "event:submit", "resumed:booking"}, rec.calls)
}

func TestStack_ListenersInRegistrationOrder(t *testing.T) {
	flows := resolved(t, bookingFlow())
	var order []string
	first := LifecycleHooks{OnStarted: func(*RequestContext, *FlowSession) { order = append(order, "first") }}
	second := LifecycleHooks{OnStarted: func(*RequestContext, *FlowSession) { order = append(order, "second") }}
	st := NewStack(first, second)

	st.Activate(NewRequestContext(context.Background(), st, nil), NewFlowSession(flows["booking"], nil))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestStack_SnapshotRestore(t *testing.T) {
	flows := resolved(t, bookingFlow(), paymentFlow())
	st := NewStack()
	st.ID = "exec-1"
	rc := NewRequestContext(context.Background(), st, nil)
	require.NoError(t, st.Conversation.Put("user", "ana"))

	root := NewFlowSession(flows["booking"], nil)
	st.Activate(rc, root)
	confirm, _ := flows["booking"].State("confirm")
	require.NoError(t, st.SetCurrentState(rc, confirm))
	require.NoError(t, root.Scope.Put("nights", 3))

	child := NewFlowSession(flows["payment"], nil)
	st.Activate(rc, child)
	require.NoError(t, st.SetCurrentState(rc, flows["payment"].Start()))
	require.NoError(t, st.Pause(rc, NullSelection))

	raw, err := json.Marshal(st.Snapshot())
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, "payment", snap.ActiveFlowID())
	assert.Equal(t, "card", snap.CurrentStateID())

	lookup := func(id string) (*FlowDefinition, error) {
		if f, ok := flows[id]; ok {
			return f, nil
		}
		return nil, ErrNoSuchFlow
	}
	restored, err := Restore(&snap, lookup)
	require.NoError(t, err)

	assert.Equal(t, "exec-1", restored.ID)
	assert.Equal(t, []string{"booking", "payment"}, restored.FlowIDStack())
	assert.Equal(t, "card", restored.CurrentStateID())
	top, _ := restored.ActiveSession()
	assert.Equal(t, StatusPaused, top.Status)
	require.NotNil(t, top.Parent)
	assert.Equal(t, "confirm", top.Parent.StateID())
	nights, _ := top.Parent.Scope.Get("nights")
	assert.EqualValues(t, 3, nights)
	user, _ := restored.Conversation.Get("user")
	assert.Equal(t, "ana", user)

	snap.Sessions[0].FlowID = "gone"
	_, err = Restore(&snap, lookup)
	assert.ErrorIs(t, err, ErrNoSuchFlow)
}
