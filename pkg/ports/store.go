package ports

import (
	"context"

	"github.com/aretw0/flowstack/pkg/domain"
)

// ExecutionStore defines the interface for persisting paused executions.
// This allows an execution to survive between external events and process restarts.
type ExecutionStore interface {
	// Save persists the snapshot under snap.ID.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Load retrieves the snapshot of an execution.
	// Returns domain.ErrExecutionNotFound if the execution does not exist.
	Load(ctx context.Context, executionID string) (*domain.Snapshot, error)

	// Delete removes the snapshot of an execution. Deleting a missing execution is not an error.
	Delete(ctx context.Context, executionID string) error

	// List returns the ids of every stored execution.
	List(ctx context.Context) ([]string, error)
}
