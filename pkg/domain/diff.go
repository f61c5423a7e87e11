package domain

import (
	"reflect"
	"slices"
)

// SnapshotDiff describes what changed between two snapshots of the same
// execution. It is serialized to clients as a partial update.
type SnapshotDiff struct {
	// ID is always present to identify the execution.
	ID string `json:"id"`

	FlowIDStack []string `json:"flow_id_stack,omitempty"`
	StateID     *string  `json:"state_id,omitempty"`
	Status      *Status  `json:"status,omitempty"`

	// Scope holds added, modified and deleted attributes of the top flow scope.
	// Deleted attributes carry a nil value.
	Scope        map[string]any `json:"scope,omitempty"`
	Conversation map[string]any `json:"conversation,omitempty"`

	Ended *bool `json:"ended,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap. A nil oldSnap
// yields a diff describing the entire newSnap. Nil is returned when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}
	if oldSnap == nil {
		oldSnap = &Snapshot{}
	}

	diff := &SnapshotDiff{ID: newSnap.ID}

	oldIDs, newIDs := flowIDs(oldSnap), flowIDs(newSnap)
	if !slices.Equal(oldIDs, newIDs) {
		diff.FlowIDStack = newIDs
		if len(newIDs) == 0 {
			ended := true
			diff.Ended = &ended
		}
	}

	oldTop, newTop := topRecord(oldSnap), topRecord(newSnap)
	if oldTop.StateID != newTop.StateID {
		id := newTop.StateID
		diff.StateID = &id
	}
	if oldTop.Status != newTop.Status {
		status := newTop.Status
		diff.Status = &status
	}

	diff.Scope = diffAttributes(oldTop.Attributes, newTop.Attributes)
	diff.Conversation = diffAttributes(oldSnap.Conversation, newSnap.Conversation)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.FlowIDStack == nil &&
		d.StateID == nil &&
		d.Status == nil &&
		d.Ended == nil &&
		len(d.Scope) == 0 &&
		len(d.Conversation) == 0
}

func flowIDs(s *Snapshot) []string {
	ids := make([]string, len(s.Sessions))
	for i, r := range s.Sessions {
		ids[i] = r.FlowID
	}
	return ids
}

func topRecord(s *Snapshot) SessionRecord {
	if len(s.Sessions) == 0 {
		return SessionRecord{}
	}
	return s.Sessions[len(s.Sessions)-1]
}

func diffAttributes(oldAttrs, newAttrs []Attribute) map[string]any {
	oldMap := make(map[string]any, len(oldAttrs))
	for _, a := range oldAttrs {
		oldMap[a.Name] = a.Value
	}

	delta := make(map[string]any)
	seen := make(map[string]bool, len(newAttrs))
	for _, a := range newAttrs {
		seen[a.Name] = true
		oldVal, exists := oldMap[a.Name]
		if !exists || !reflect.DeepEqual(oldVal, a.Value) {
			delta[a.Name] = a.Value
		}
	}
	for name := range oldMap {
		if !seen[name] {
			delta[name] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}
