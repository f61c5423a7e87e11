package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func rec(flowID, stateID string, status Status, attrs ...Attribute) SessionRecord {
	return SessionRecord{FlowID: flowID, StateID: stateID, Status: status, Attributes: attrs}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name      string
		old       *Snapshot
		new       *Snapshot
		wantNil   bool
		wantState *string
		wantIDs   []string
		wantScope map[string]any
		wantEnded bool
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &Snapshot{ID: "exec-1", Sessions: []SessionRecord{
				rec("booking", "enterDetails", StatusPaused, Attribute{Name: "a", Value: 1}),
			}},
			wantState: &[]string{"enterDetails"}[0],
			wantIDs:   []string{"booking"},
			wantScope: map[string]any{"a": 1},
		},
		{
			name: "No Changes",
			old: &Snapshot{ID: "exec-1", Sessions: []SessionRecord{
				rec("booking", "enterDetails", StatusPaused, Attribute{Name: "a", Value: 1}),
			}},
			new: &Snapshot{ID: "exec-1", Sessions: []SessionRecord{
				rec("booking", "enterDetails", StatusPaused, Attribute{Name: "a", Value: 1}),
			}},
			wantNil: true,
		},
		{
			name: "Subflow Pushed",
			old: &Snapshot{ID: "exec-1", Sessions: []SessionRecord{
				rec("booking", "enterDetails", StatusPaused),
			}},
			new: &Snapshot{ID: "exec-1", Sessions: []SessionRecord{
				rec("booking", "confirm", StatusSuspended),
				rec("payment", "card", StatusPaused),
			}},
			wantState: &[]string{"card"}[0],
			wantIDs:   []string{"booking", "payment"},
		},
		{
			name: "Scope Deletion",
			old: &Snapshot{Sessions: []SessionRecord{
				rec("f", "s", StatusPaused, Attribute{Name: "a", Value: 1}, Attribute{Name: "b", Value: 2}),
			}},
			new: &Snapshot{Sessions: []SessionRecord{
				rec("f", "s", StatusPaused, Attribute{Name: "a", Value: 1}),
			}},
			wantScope: map[string]any{"b": nil},
		},
		{
			name: "Root Ended",
			old: &Snapshot{ID: "exec-1", Sessions: []SessionRecord{
				rec("booking", "confirm", StatusPaused),
			}},
			new:       &Snapshot{ID: "exec-1"},
			wantState: &[]string{""}[0],
			wantIDs:   []string{},
			wantEnded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Diff() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Diff() = nil, want a diff")
			}
			if got.ID != tt.new.ID {
				t.Errorf("Diff().ID = %v, want %v", got.ID, tt.new.ID)
			}
			if !equalPtr(got.StateID, tt.wantState) {
				t.Errorf("Diff().StateID = %v, want %v", got.StateID, tt.wantState)
			}
			if tt.wantIDs != nil && !reflect.DeepEqual(got.FlowIDStack, tt.wantIDs) {
				t.Errorf("Diff().FlowIDStack = %v, want %v", got.FlowIDStack, tt.wantIDs)
			}
			if !reflect.DeepEqual(got.Scope, tt.wantScope) {
				t.Errorf("Diff().Scope = %v, want %v", got.Scope, tt.wantScope)
			}
			if (got.Ended != nil && *got.Ended) != tt.wantEnded {
				t.Errorf("Diff().Ended = %v, want %v", got.Ended, tt.wantEnded)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Empty Scope Omitted", func(t *testing.T) {
		s1 := &Snapshot{Sessions: []SessionRecord{rec("f", "a", StatusPaused, Attribute{Name: "x", Value: 1})}}
		s2 := &Snapshot{Sessions: []SessionRecord{rec("f", "b", StatusPaused, Attribute{Name: "x", Value: 1})}}
		diff := Diff(s1, s2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if strings.Contains(string(bytes), `"scope"`) {
			t.Errorf("JSON should not contain 'scope' when unchanged, got: %s", string(bytes))
		}
	})

	t.Run("Deletions as Null", func(t *testing.T) {
		s1 := &Snapshot{Conversation: []Attribute{{Name: "a", Value: 1}, {Name: "b", Value: 2}}}
		s2 := &Snapshot{Conversation: []Attribute{{Name: "a", Value: 1}}}
		diff := Diff(s1, s2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"b":null`) {
			t.Errorf("JSON should contain 'b':null for deletion, got: %s", string(bytes))
		}
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
