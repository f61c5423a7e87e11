package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/aretw0/flowstack/pkg/ports"
)

const (
	// DefaultMaxDepth bounds the number of nested flow sessions.
	DefaultMaxDepth = 32
	// DefaultMaxSteps bounds the internal steps one external event may cascade into.
	DefaultMaxSteps = 1000
)

// FaultAttribute is the request attribute holding the fault a handler state was entered for.
const FaultAttribute = "flowFault"

// Engine drives flow execution stacks. It holds no per-execution state and
// may be shared by concurrent executions.
type Engine struct {
	flows     ports.FlowRegistry
	actions   ports.ActionDispatcher
	evaluator domain.Evaluator
	listeners []domain.Listener
	logger    *slog.Logger
	maxDepth  int
	maxSteps  int
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithActions sets the dispatcher used by Action and Decision states.
func WithActions(d ports.ActionDispatcher) EngineOption {
	return func(e *Engine) {
		e.actions = d
	}
}

// WithExpressionEvaluator sets the evaluator used by expression criteria,
// dynamic targets and action expressions.
func WithExpressionEvaluator(ev domain.Evaluator) EngineOption {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

// WithListeners registers lifecycle listeners attached to every stack the engine starts or restores.
func WithListeners(ls ...domain.Listener) EngineOption {
	return func(e *Engine) {
		e.listeners = append(e.listeners, ls...)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxDepth bounds subflow nesting. Values below 1 keep the default.
func WithMaxDepth(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithMaxSteps bounds the internal steps of one event. Values below 1 keep the default.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// NewEngine creates an engine that resolves flows through flows.
func NewEngine(flows ports.FlowRegistry, opts ...EngineOption) *Engine {
	e := &Engine{
		flows:    flows,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxDepth: DefaultMaxDepth,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxDepth returns the configured nesting limit.
func (e *Engine) MaxDepth() int { return e.maxDepth }

// Start creates a new stack and runs flowID until it pauses or ends.
func (e *Engine) Start(ctx context.Context, flowID string, input map[string]any) (*domain.Stack, domain.ViewSelection, error) {
	stack := domain.NewStack()
	sel, err := e.StartOn(ctx, stack, flowID, input)
	return stack, sel, err
}

// StartOn activates a root session of flowID on an empty stack the caller
// prepared (e.g. with an execution id), then runs it until it pauses or ends.
// input is copied into the root flow scope.
func (e *Engine) StartOn(ctx context.Context, stack *domain.Stack, flowID string, input map[string]any) (domain.ViewSelection, error) {
	if stack.IsActive() {
		return domain.NullSelection, fmt.Errorf("%w: stack already holds an execution", domain.ErrIllegalState)
	}
	flow, err := e.flows.GetFlow(flowID)
	if err != nil {
		return domain.NullSelection, err
	}
	if !flow.Resolved() {
		if err := flow.Resolve(); err != nil {
			return domain.NullSelection, err
		}
	}

	root := domain.NewFlowSession(flow, nil)
	seed, err := domain.ScopeFromMap(input)
	if err != nil {
		return domain.NullSelection, fmt.Errorf("invalid input for flow '%s': %w", flowID, err)
	}
	root.Scope.Merge(seed)

	for _, l := range e.listeners {
		stack.AddListener(l)
	}
	rc := domain.NewRequestContext(ctx, stack, e.evaluator)
	rc.SetEvent(domain.Event{})

	e.logger.DebugContext(ctx, "starting flow", "flow", flowID, "execution", stack.ID)
	stack.Activate(rc, root)
	return e.run(rc, enterStep(flow.Start()))
}

// Signal dispatches an external event into the current state of the active
// session. When no transition matches, a *domain.NoMatchingTransitionError is
// returned and the stack is left untouched.
func (e *Engine) Signal(ctx context.Context, stack *domain.Stack, eventID string, params map[string]any) (domain.ViewSelection, error) {
	if stack == nil || !stack.IsActive() {
		return domain.NullSelection, fmt.Errorf("%w: cannot signal '%s' on an inactive execution", domain.ErrIllegalState, eventID)
	}
	active, err := stack.ActiveSession()
	if err != nil {
		return domain.NullSelection, err
	}
	if active.State == nil {
		return domain.NullSelection, fmt.Errorf("%w: active session of flow '%s' has no current state", domain.ErrIllegalState, active.FlowID())
	}

	rc := domain.NewRequestContext(ctx, stack, e.evaluator)
	rc.SetEvent(domain.Event{ID: eventID, Params: params})

	// Matched before any mutation so that a rejected event leaves no trace.
	tr, err := active.State.MatchTransition(rc)
	if err != nil {
		return domain.NullSelection, err
	}

	if err := stack.Resume(rc); err != nil {
		return domain.NullSelection, err
	}
	if err := stack.RecordEvent(rc, rc.Event()); err != nil {
		return domain.NullSelection, err
	}
	e.logger.DebugContext(ctx, "event signaled",
		"execution", stack.ID,
		"flow", stack.QualifiedActiveFlowID(),
		"state", active.StateID(),
		"event", eventID)
	return e.run(rc, transitionStep(tr))
}

// Restore rebuilds a stack from a snapshot, attaching the engine listeners.
func (e *Engine) Restore(snap *domain.Snapshot) (*domain.Stack, error) {
	return domain.Restore(snap, e.flows.GetFlow, e.listeners...)
}
