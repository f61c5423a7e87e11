// Package goja implements domain.Evaluator with the goja ECMAScript engine.
//
// Every evaluation runs in a fresh runtime, so expressions cannot leak state
// into each other. Compiled programs are cached per source text. The runtime
// exposes:
//
//	flowScope, requestScope, conversationScope  the scopes as plain objects
//	model                                       the merged model
//	event                                       {id, params, timestamp}
//
// and every model attribute as a global, so `nights > 0` and
// `model.nights > 0` are equivalent.
package goja

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/dop251/goja"
)

var (
	// InterruptedMessage is the value passed to Runtime.Interrupt.
	InterruptedMessage = "RuntimeError: timeout"

	// ErrInterrupted is returned when an evaluation is interrupted by its
	// context or the configured timeout.
	ErrInterrupted = errors.New(InterruptedMessage)
)

// Evaluator implements domain.Evaluator.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*goja.Program

	globals map[string]any
	timeout time.Duration
}

type Option func(*Evaluator)

// WithGlobal exposes value under name in every runtime. Model attributes
// shadow globals with the same name.
func WithGlobal(name string, value any) Option {
	return func(e *Evaluator) {
		e.globals[name] = value
	}
}

// WithTimeout bounds a single evaluation. Zero means no bound beyond the request context.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		e.timeout = d
	}
}

// New creates an evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		programs: make(map[string]*goja.Program),
		globals:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile checks that expr compiles and caches the program.
func (e *Evaluator) Compile(expr string) (*goja.Program, error) {
	e.mu.RLock()
	p, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := goja.Compile("", expr, true)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression '%s': %w", expr, err)
	}

	e.mu.Lock()
	e.programs[expr] = p
	e.mu.Unlock()
	return p, nil
}

// Eval implements domain.Evaluator. The result is the exported completion
// value of the program; undefined and null become nil.
func (e *Evaluator) Eval(rc *domain.RequestContext, expr string) (any, error) {
	p, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	if err := e.bind(vm, rc); err != nil {
		return nil, err
	}

	ctx := rc.Context()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// Stop the watcher as soon as RunProgram returns so that a late cancel
	// never interrupts a finished evaluation.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		if ctx.Err() != nil {
			vm.Interrupt(InterruptedMessage)
		}
	}()

	v, err := vm.RunProgram(p)
	cancel()

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("expression '%s': %w", expr, ErrInterrupted)
		}
		return nil, fmt.Errorf("expression '%s': %w", expr, err)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return v.Export(), nil
}

func (e *Evaluator) bind(vm *goja.Runtime, rc *domain.RequestContext) error {
	for name, value := range e.globals {
		if err := vm.Set(name, value); err != nil {
			return err
		}
	}

	model := rc.Model().Map()
	for name, value := range model {
		if err := vm.Set(name, value); err != nil {
			return err
		}
	}

	ev := rc.Event()
	params := ev.Params
	if params == nil {
		params = map[string]any{}
	}
	bindings := map[string]any{
		"flowScope":         rc.FlowScope().Map(),
		"requestScope":      rc.RequestScope().Map(),
		"conversationScope": rc.ConversationScope().Map(),
		"model":             model,
		"event": map[string]any{
			"id":        ev.ID,
			"params":    params,
			"timestamp": ev.Timestamp.UnixMilli(),
		},
	}
	for name, value := range bindings {
		if err := vm.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}
