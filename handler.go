package flowstack

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/flowstack/internal/presentation/tui"
	"github.com/aretw0/flowstack/internal/sanitize"
	"github.com/aretw0/flowstack/pkg/domain"
)

// ErrLeave is returned by IOHandler.Input when the user asks to stop. The
// execution stays stored.
var ErrLeave = errors.New("leave requested")

// InputError reports a line that could not be parsed into an event. The
// Runner shows it and reads the next line.
type InputError struct {
	Line string
	Err  error
}

func (e *InputError) Error() string { return fmt.Sprintf("invalid input '%s': %v", e.Line, e.Err) }
func (e *InputError) Unwrap() error { return e.Err }

// Step is what the Runner presents after every start or signal.
type Step struct {
	Result *Result
	// Events are the event ids the current state accepts.
	Events []string
	// Fault is set when the call raised a fault no handler caught.
	Fault error
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between text (CLI/TUI) and JSON (structured) modes.
type IOHandler interface {
	// Output presents a step.
	Output(ctx context.Context, step Step) error

	// Input reads the next event. It returns io.EOF when the input is
	// exhausted, ErrLeave on request and *InputError for malformed lines.
	Input(ctx context.Context) (string, map[string]any, error)

	// SystemOutput presents a meta-message (e.g. status updates), distinct
	// from view content.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms view markdown before it is written (e.g. to ANSI).
type ContentRenderer func(string) (string, error)

// TextHandler renders views as markdown and reads "event key=value" lines.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// NewTextHandler creates a handler for text IO.
func NewTextHandler(r io.Reader, w io.Writer) *TextHandler {
	return &TextHandler{Reader: bufio.NewReader(r), Writer: w}
}

func (h *TextHandler) Output(_ context.Context, step Step) error {
	if step.Fault != nil {
		fmt.Fprintf(h.Writer, "fault: %v\n", step.Fault)
	}
	res := step.Result
	if res.Selection.IsNull() && res.Snapshot != nil && !h.Headless {
		fmt.Fprintf(h.Writer, "[%s @ %s]\n", res.Snapshot.ActiveFlowID(), res.Snapshot.CurrentStateID())
	}

	out := tui.Markdown(res.Selection, step.Events)
	if h.Renderer != nil {
		if rendered, err := h.Renderer(out); err == nil {
			out = rendered
		}
	}
	_, err := fmt.Fprintf(h.Writer, "%s\n", strings.TrimSpace(out))
	return err
}

func (h *TextHandler) Input(_ context.Context) (string, map[string]any, error) {
	for {
		if !h.Headless {
			fmt.Fprint(h.Writer, tui.Prompt(h.Writer))
		}
		line, err := h.Reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return "", nil, err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return "", nil, ErrLeave
		}

		eventID, params, perr := ParseEventLine(line)
		if perr != nil {
			return "", nil, &InputError{Line: line, Err: perr}
		}
		return eventID, params, nil
	}
}

func (h *TextHandler) SystemOutput(_ context.Context, msg string) error {
	_, err := fmt.Fprintln(h.Writer, msg)
	return err
}

// JSONMessage is one line written by the JSONHandler.
type JSONMessage struct {
	ExecutionID string                `json:"execution_id,omitempty"`
	FlowID      string                `json:"flow,omitempty"`
	StateID     string                `json:"state,omitempty"`
	View        *domain.ViewSelection `json:"view,omitempty"`
	Events      []string              `json:"events,omitempty"`
	Ended       bool                  `json:"ended,omitempty"`
	Fault       string                `json:"fault,omitempty"`
	System      string                `json:"system,omitempty"`
}

// JSONInput is one line read by the JSONHandler. Plain "event key=value"
// lines are accepted as well.
type JSONInput struct {
	Event  string         `json:"event"`
	Params map[string]any `json:"params,omitempty"`
}

// JSONHandler implements IOHandler for JSON-Lines communication.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	return &JSONHandler{Reader: bufio.NewReader(r), Encoder: json.NewEncoder(w)}
}

func (h *JSONHandler) Output(_ context.Context, step Step) error {
	res := step.Result
	msg := JSONMessage{ExecutionID: res.ExecutionID, Events: step.Events, Ended: res.Ended}
	if res.Snapshot != nil {
		msg.FlowID = res.Snapshot.ActiveFlowID()
		msg.StateID = res.Snapshot.CurrentStateID()
	}
	if !res.Selection.IsNull() {
		sel := res.Selection
		msg.View = &sel
	}
	if step.Fault != nil {
		msg.Fault = step.Fault.Error()
	}
	return h.Encoder.Encode(msg)
}

func (h *JSONHandler) Input(_ context.Context) (string, map[string]any, error) {
	for {
		line, err := h.Reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return "", nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "{") {
			if line == "exit" || line == "quit" {
				return "", nil, ErrLeave
			}
			eventID, params, perr := ParseEventLine(line)
			if perr != nil {
				return "", nil, &InputError{Line: line, Err: perr}
			}
			return eventID, params, nil
		}

		var in JSONInput
		if err := json.Unmarshal([]byte(line), &in); err != nil {
			return "", nil, &InputError{Line: line, Err: err}
		}
		eventID, err := sanitize.Input(in.Event)
		if err == nil && eventID == "" {
			err = errors.New("empty event")
		}
		if err != nil {
			return "", nil, &InputError{Line: line, Err: err}
		}
		params, err := sanitize.Params(in.Params)
		if err != nil {
			return "", nil, &InputError{Line: line, Err: err}
		}
		return eventID, params, nil
	}
}

func (h *JSONHandler) SystemOutput(_ context.Context, msg string) error {
	return h.Encoder.Encode(JSONMessage{System: msg})
}
