package domain

import (
	"context"
	"time"
)

// Event is an external or internally cascaded trigger.
type Event struct {
	ID        string         `json:"id"`
	Params    map[string]any `json:"params,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Evaluator evaluates expressions against a request context.
// The expression syntax is defined by the implementation.
type Evaluator interface {
	Eval(rc *RequestContext, expr string) (any, error)
}

// ActionFunc is an externally supplied unit of work executed by Action and
// Decision states. The returned string is dispatched as an event id.
type ActionFunc func(rc *RequestContext) (string, error)

// RequestContext carries everything one external event needs while it is
// processed, including every internally cascaded dispatch. It is created per
// event and discarded afterwards; nothing in it is shared between executions.
type RequestContext struct {
	ctx          context.Context
	stack        *Stack
	event        Event
	requestScope *Scope
	evaluator    Evaluator
}

// NewRequestContext creates the context for one external event.
func NewRequestContext(ctx context.Context, stack *Stack, evaluator Evaluator) *RequestContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RequestContext{
		ctx:          ctx,
		stack:        stack,
		requestScope: NewScope(),
		evaluator:    evaluator,
	}
}

// Context returns the caller's context.
func (rc *RequestContext) Context() context.Context { return rc.ctx }

// Stack returns the execution stack being driven.
func (rc *RequestContext) Stack() *Stack { return rc.stack }

// Event returns the event currently being dispatched.
func (rc *RequestContext) Event() Event { return rc.event }

// SetEvent replaces the event being dispatched.
func (rc *RequestContext) SetEvent(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	rc.event = ev
}

// RequestScope returns the per-event scope.
func (rc *RequestContext) RequestScope() *Scope { return rc.requestScope }

// FlowScope returns the active session's scope, or nil when the stack is empty.
func (rc *RequestContext) FlowScope() *Scope {
	if rc.stack == nil {
		return nil
	}
	s, err := rc.stack.ActiveSession()
	if err != nil {
		return nil
	}
	return s.Scope
}

// ConversationScope returns the scope shared by every session of the execution.
func (rc *RequestContext) ConversationScope() *Scope {
	if rc.stack == nil {
		return nil
	}
	return rc.stack.Conversation
}

// Model returns the merged read-only view (request > flow > conversation).
func (rc *RequestContext) Model() *Scope {
	return MergedModel(rc.requestScope, rc.FlowScope(), rc.ConversationScope())
}

// Evaluator returns the configured expression evaluator, possibly nil.
func (rc *RequestContext) Evaluator() Evaluator { return rc.evaluator }
