package flowstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/flowstack/internal/logging"
	"github.com/aretw0/flowstack/internal/runtime"
	"github.com/aretw0/flowstack/pkg/adapters/memory"
	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/aretw0/flowstack/pkg/ports"
	"github.com/aretw0/flowstack/pkg/registry"
	"github.com/aretw0/flowstack/pkg/session"
	"github.com/google/uuid"
)

// Executor is the high-level entry point of the library. It owns the flow
// registry, the engine and the session manager, and persists every
// execution that is still active after a call.
type Executor struct {
	engine  *runtime.Engine
	flows   *registry.Flows
	actions *registry.Actions
	manager *session.Manager
	logger  *slog.Logger

	loaders     []ports.FlowLoader
	definitions []*domain.FlowDefinition
	store       ports.ExecutionStore
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	listeners   []domain.Listener
	evaluator   domain.Evaluator
	maxDepth    int
	maxSteps    int
	newID       func() string
}

var _ ports.Executor = (*Executor)(nil)

// Option configures the Executor.
type Option func(*Executor)

// WithLoader adds a source of flow definitions. Loaders run in order.
func WithLoader(l ports.FlowLoader) Option {
	return func(e *Executor) {
		e.loaders = append(e.loaders, l)
	}
}

// WithFlows registers definitions directly.
func WithFlows(flows ...*domain.FlowDefinition) Option {
	return func(e *Executor) {
		e.definitions = append(e.definitions, flows...)
	}
}

// WithStore sets the execution store. Defaults to an in-memory store.
func WithStore(s ports.ExecutionStore) Option {
	return func(e *Executor) {
		e.store = s
	}
}

// WithLocker enables distributed locking of executions.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Executor) {
		e.locker = l
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Executor) {
		e.lockTTL = ttl
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithListeners registers lifecycle listeners on every execution.
func WithListeners(ls ...domain.Listener) Option {
	return func(e *Executor) {
		e.listeners = append(e.listeners, ls...)
	}
}

// WithLifecycleHooks registers plain callbacks as a listener.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return WithListeners(hooks)
}

// WithEvaluator sets the expression evaluator.
func WithEvaluator(ev domain.Evaluator) Option {
	return func(e *Executor) {
		e.evaluator = ev
	}
}

// WithAction registers a named unit of work.
func WithAction(name string, fn domain.ActionFunc) Option {
	return func(e *Executor) {
		e.actions.Register(name, fn)
	}
}

// WithActions registers several named units of work.
func WithActions(actions map[string]domain.ActionFunc) Option {
	return func(e *Executor) {
		for name, fn := range actions {
			e.actions.Register(name, fn)
		}
	}
}

// WithMaxDepth bounds subflow nesting.
func WithMaxDepth(n int) Option {
	return func(e *Executor) {
		e.maxDepth = n
	}
}

// WithMaxSteps bounds the internal steps of one event.
func WithMaxSteps(n int) Option {
	return func(e *Executor) {
		e.maxSteps = n
	}
}

// WithIDGenerator replaces the uuid execution id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Executor) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// New loads every configured flow, validates subflow references and builds
// the engine.
func New(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		actions: registry.NewActions(),
		logger:  logging.NewNop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	flows, err := registry.NewFlows(e.definitions...)
	if err != nil {
		return nil, err
	}
	for _, l := range e.loaders {
		loaded, err := l.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load flows: %w", err)
		}
		if err := flows.Register(loaded...); err != nil {
			return nil, err
		}
	}
	if err := flows.Validate(); err != nil {
		return nil, err
	}
	e.flows = flows

	if e.store == nil {
		e.store = memory.NewStore()
	}
	managerOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(e.locker))
	}
	if e.lockTTL > 0 {
		managerOpts = append(managerOpts, session.WithLockTTL(e.lockTTL))
	}
	e.manager = session.NewManager(e.store, managerOpts...)

	e.engine = runtime.NewEngine(flows,
		runtime.WithActions(e.actions),
		runtime.WithExpressionEvaluator(e.evaluator),
		runtime.WithListeners(e.listeners...),
		runtime.WithLogger(e.logger),
		runtime.WithMaxDepth(e.maxDepth),
		runtime.WithMaxSteps(e.maxSteps),
	)

	e.logger.Debug("executor ready", "flows", flows.IDs())
	return e, nil
}

// Flows returns the registry of loaded definitions.
func (e *Executor) Flows() *registry.Flows { return e.flows }

// Engine returns the underlying engine.
func (e *Executor) Engine() *runtime.Engine { return e.engine }

// Sessions returns the session manager.
func (e *Executor) Sessions() *session.Manager { return e.manager }

// Start creates a new execution of flowID and runs it until it pauses or
// ends. Executions still active afterwards are persisted. An unhandled
// state fault is returned together with the persisted result.
func (e *Executor) Start(ctx context.Context, flowID string, input map[string]any) (*Result, error) {
	stack := domain.NewStack()
	stack.ID = e.newID()

	sel, runErr := e.engine.StartOn(ctx, stack, flowID, input)
	if runErr != nil && !isFault(runErr) {
		return nil, runErr
	}

	res := &Result{ExecutionID: stack.ID, Selection: sel}
	snap := stack.Snapshot()
	if !stack.IsActive() {
		res.Ended = true
		res.Diff = domain.Diff(nil, snap)
		e.logger.InfoContext(ctx, "execution completed on start", "execution", stack.ID, "flow", flowID)
		return res, runErr
	}

	if err := e.manager.Create(ctx, snap); err != nil {
		return nil, err
	}
	res.Snapshot = snap
	res.Diff = domain.Diff(nil, snap)
	e.logger.InfoContext(ctx, "execution started",
		"execution", stack.ID, "flow", flowID, "state", snap.CurrentStateID())
	return res, runErr
}

// Signal dispatches eventID into a stored execution. The execution is
// saved when it stays active, deleted when it ends and left untouched when
// the event is rejected.
func (e *Executor) Signal(ctx context.Context, executionID, eventID string, params map[string]any) (*Result, error) {
	var res *Result
	err := e.manager.WithLock(ctx, executionID, func(ctx context.Context) error {
		store := e.manager.Store()
		before, err := store.Load(ctx, executionID)
		if err != nil {
			return err
		}
		stack, err := e.engine.Restore(before)
		if err != nil {
			return fmt.Errorf("failed to restore execution '%s': %w", executionID, err)
		}

		sel, runErr := e.engine.Signal(ctx, stack, eventID, params)
		if runErr != nil && !isFault(runErr) {
			return runErr
		}

		after := stack.Snapshot()
		res = &Result{ExecutionID: executionID, Selection: sel, Diff: domain.Diff(before, after)}
		if !stack.IsActive() {
			res.Ended = true
			if err := store.Delete(ctx, executionID); err != nil {
				return fmt.Errorf("failed to remove ended execution: %w", err)
			}
			e.logger.InfoContext(ctx, "execution ended", "execution", executionID, "event", eventID)
			return runErr
		}
		if err := store.Save(ctx, after); err != nil {
			return fmt.Errorf("failed to save execution: %w", err)
		}
		res.Snapshot = after
		return runErr
	})
	if err != nil && !isFault(err) {
		return nil, err
	}
	return res, err
}

// Inspect returns the stored snapshot of an execution.
func (e *Executor) Inspect(ctx context.Context, executionID string) (*domain.Snapshot, error) {
	return e.manager.Load(ctx, executionID)
}

// Abort discards a stored execution.
func (e *Executor) Abort(ctx context.Context, executionID string) error {
	if _, err := e.manager.Load(ctx, executionID); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "execution aborted", "execution", executionID)
	return e.manager.Delete(ctx, executionID)
}

// List returns the ids of the stored executions.
func (e *Executor) List(ctx context.Context) ([]string, error) {
	return e.manager.List(ctx)
}

// Result is the outcome of Start and Signal.
type Result = ports.Result

func isFault(err error) bool {
	var fault *domain.StateFaultError
	return errors.As(err, &fault)
}
