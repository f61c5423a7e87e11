package flowstack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/flowstack/internal/sanitize"
	"github.com/aretw0/flowstack/pkg/domain"
)

// Runner drives one execution from a line-oriented input until it ends, the
// input is exhausted or the user leaves. The conversation itself goes through
// an IOHandler; by default a TextHandler over Input and Output.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer

	// Handler overrides the text handler built from the fields above.
	Handler IOHandler
}

// NewRunner creates a Runner reading from in and writing to out.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

// Run starts flowID and feeds it events. It returns the id of the execution.
func (r *Runner) Run(ctx context.Context, exec *Executor, flowID string, input map[string]any) (string, error) {
	res, err := exec.Start(ctx, flowID, input)
	if err != nil && res == nil {
		return "", err
	}
	return res.ExecutionID, r.loop(ctx, exec, res, err)
}

// Resume continues a stored execution, presenting its current state first.
func (r *Runner) Resume(ctx context.Context, exec *Executor, executionID string) error {
	snap, err := exec.Inspect(ctx, executionID)
	if err != nil {
		return err
	}
	res := &Result{ExecutionID: executionID, Snapshot: snap}
	return r.loop(ctx, exec, res, nil)
}

func (r *Runner) handler() (IOHandler, error) {
	if r.Handler != nil {
		return r.Handler, nil
	}
	if r.Input == nil || r.Output == nil {
		return nil, fmt.Errorf("%w: runner input and output must be set", domain.ErrIllegalState)
	}
	h := NewTextHandler(r.Input, r.Output)
	h.Headless = r.Headless
	h.Renderer = r.Renderer
	return h, nil
}

func (r *Runner) loop(ctx context.Context, exec *Executor, res *Result, lastErr error) error {
	h, err := r.handler()
	if err != nil {
		return err
	}

	for {
		step := Step{Result: res}
		if lastErr != nil {
			if !isFault(lastErr) {
				return lastErr
			}
			step.Fault = lastErr
		}
		if res.Snapshot != nil {
			step.Events = exec.ExpectedEvents(res.Snapshot)
		}
		if err := h.Output(ctx, step); err != nil {
			return err
		}
		if res.Ended {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		eventID, params, err := h.Input(ctx)
		var inputErr *InputError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, ErrLeave):
			return h.SystemOutput(ctx, fmt.Sprintf("execution '%s' left at '%s'", res.ExecutionID, res.Snapshot.CurrentStateID()))
		case errors.As(err, &inputErr):
			if err := h.SystemOutput(ctx, "error: "+inputErr.Err.Error()); err != nil {
				return err
			}
			lastErr = nil
			continue
		case err != nil:
			return fmt.Errorf("input error: %w", err)
		}

		next, err := exec.Signal(ctx, res.ExecutionID, eventID, params)
		var noMatch *domain.NoMatchingTransitionError
		if errors.As(err, &noMatch) && !noMatch.Cascaded {
			msg := fmt.Sprintf("'%s' is not accepted here; try one of %v", eventID, step.Events)
			if err := h.SystemOutput(ctx, msg); err != nil {
				return err
			}
			lastErr = nil
			continue
		}
		if next == nil {
			return err
		}
		res, lastErr = next, err
	}
}

// ParseEventLine splits "event key=value ..." into an event id and its
// parameters. Every token is sanitized.
func ParseEventLine(line string) (string, map[string]any, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, errors.New("empty event")
	}
	eventID, err := sanitize.Input(fields[0])
	if err != nil {
		return "", nil, err
	}

	var params map[string]any
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return "", nil, fmt.Errorf("parameter '%s' is not key=value", f)
		}
		if params == nil {
			params = make(map[string]any)
		}
		params[key] = value
	}
	params, err = sanitize.Params(params)
	if err != nil {
		return "", nil, err
	}
	return eventID, params, nil
}

// ExpectedEvents lists the event ids the current state of snap matches
// explicitly, in transition order. Wildcard and expression criteria are
// shown in their string form.
func (e *Executor) ExpectedEvents(snap *domain.Snapshot) []string {
	if snap == nil {
		return nil
	}
	flow, err := e.flows.GetFlow(snap.ActiveFlowID())
	if err != nil {
		return nil
	}
	state, err := flow.State(snap.CurrentStateID())
	if err != nil {
		return nil
	}

	var events []string
	seen := make(map[string]bool)
	for _, t := range state.Transitions {
		label := domain.WildcardID
		if t.On != nil {
			label = t.On.String()
		}
		if !seen[label] {
			seen[label] = true
			events = append(events, label)
		}
	}
	return events
}
