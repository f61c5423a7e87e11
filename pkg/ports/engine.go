package ports

import (
	"context"

	"github.com/aretw0/flowstack/pkg/domain"
)

// Result is the outcome of one external call into an execution.
type Result struct {
	ExecutionID string               `json:"execution_id"`
	Selection   domain.ViewSelection `json:"selection"`
	// Snapshot is the state after the call, or nil when the execution ended.
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
	// Diff describes what the call changed.
	Diff  *domain.SnapshotDiff `json:"diff,omitempty"`
	Ended bool                 `json:"ended"`
}

// Executor is the entry point used by transports (HTTP, CLI). Implementations
// persist executions between calls and serialize access per execution id.
type Executor interface {
	// Start creates a new execution of flowID.
	Start(ctx context.Context, flowID string, input map[string]any) (*Result, error)

	// Signal dispatches an external event into a stored execution.
	Signal(ctx context.Context, executionID, eventID string, params map[string]any) (*Result, error)

	// Inspect returns the stored snapshot of an execution.
	Inspect(ctx context.Context, executionID string) (*domain.Snapshot, error)

	// Abort discards a stored execution.
	Abort(ctx context.Context, executionID string) error

	// List returns the ids of the stored executions.
	List(ctx context.Context) ([]string, error)
}
