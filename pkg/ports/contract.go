package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractSnapshot(id string) *domain.Snapshot {
	return &domain.Snapshot{
		Version: domain.SnapshotVersion,
		ID:      id,
		Sessions: []domain.SessionRecord{
			{FlowID: "booking", StateID: "confirm", Status: domain.StatusSuspended,
				Attributes: []domain.Attribute{{Name: "nights", Value: 3}}},
			{FlowID: "payment", StateID: "card", Status: domain.StatusPaused,
				Attributes: []domain.Attribute{{Name: "foo", Value: "bar"}, {Name: "count", Value: 42}}},
		},
		Conversation: []domain.Attribute{{Name: "user", Value: "ana"}},
		LastEventID:  "submit",
		UpdatedAt:    time.Now(),
	}
}

// RunExecutionStoreContract runs a suite of tests to verify that an ExecutionStore
// implementation adheres to the defined interface contract.
func RunExecutionStoreContract(t *testing.T, store ExecutionStore) {
	ctx := context.Background()
	executionID := "contract-test-execution-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot(executionID)

		err := store.Save(ctx, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, executionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, executionID, loaded.ID)
		assert.Equal(t, "payment", loaded.ActiveFlowID())
		assert.Equal(t, "card", loaded.CurrentStateID())
		require.Len(t, loaded.Sessions, 2)
		assert.Equal(t, domain.StatusSuspended, loaded.Sessions[0].Status)
		assert.Equal(t, "submit", loaded.LastEventID)

		// Serializing stores turn numbers into float64; only order and presence are part of the contract.
		attrs := loaded.Sessions[1].Attributes
		require.Len(t, attrs, 2)
		assert.Equal(t, "foo", attrs[0].Name)
		assert.Equal(t, "bar", attrs[0].Value)
		assert.Equal(t, "count", attrs[1].Name)
		assert.EqualValues(t, 42, attrs[1].Value)
	})

	t.Run("Load Returns Independent Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, executionID)
		require.NoError(t, err)
		loaded.Sessions[0].StateID = "mutated"

		again, err := store.Load(ctx, executionID)
		require.NoError(t, err)
		assert.Equal(t, "confirm", again.Sessions[0].StateID)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+executionID)
		assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, contractSnapshot(executionID))
		require.NoError(t, err)

		err = store.Delete(ctx, executionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, executionID)
		assert.ErrorIs(t, err, domain.ErrExecutionNotFound, "Load after Delete should return ErrExecutionNotFound")

		assert.NoError(t, store.Delete(ctx, executionID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := executionID + "-1"
		id2 := executionID + "-2"
		require.NoError(t, store.Save(ctx, contractSnapshot(id1)))
		require.NoError(t, store.Save(ctx, contractSnapshot(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
