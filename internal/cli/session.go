package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aretw0/flowstack"
	"github.com/aretw0/flowstack/internal/presentation/tui"
	"github.com/aretw0/flowstack/pkg/adapters/process"
)

// RunOptions contains the configuration of the run command.
type RunOptions struct {
	Config
	FlowID      string
	Context     string // raw JSON seed for the root flow scope
	ExecutionID string // resume this stored execution instead of starting one
	Headless    bool
	JSON        bool // JSON-Lines in and out
	ActionsPath string

	In  io.Reader
	Out io.Writer
}

// ParseContext decodes the --context JSON object.
func ParseContext(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("error parsing --context JSON: %w", err)
	}
	return input, nil
}

// LoadProcessActions loads the process actions of path, defaulting to
// actions.yaml in dir. Relative commands run from dir.
func LoadProcessActions(dir, path string) (*process.Runner, error) {
	if path == "" {
		path = filepath.Join(dir, process.DefaultConfigFile)
	}
	actions, err := process.LoadActions(path)
	if err != nil {
		return nil, err
	}
	return process.NewRunner(process.WithRegistry(actions), process.WithBaseDir(dir)), nil
}

// RunSession runs one execution interactively until it ends or the input is exhausted.
func RunSession(ctx context.Context, opts RunOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	logger, err := opts.Logger(os.Stderr)
	if err != nil {
		return err
	}
	input, err := ParseContext(opts.Context)
	if err != nil {
		return err
	}

	persistence, err := OpenStore(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer persistence.Close()

	procs, err := LoadProcessActions(opts.Dir, opts.ActionsPath)
	if err != nil {
		return err
	}
	exec, err := NewExecutor(ctx, opts.Config, persistence, logger, flowstack.WithActions(procs.Actions()))
	if err != nil {
		return err
	}

	sigCtx, stop := withInterrupt(ctx)
	defer stop()

	r := flowstack.NewRunner(opts.In, opts.Out)
	r.Headless = opts.Headless || opts.JSON
	if opts.JSON {
		r.Handler = flowstack.NewJSONHandler(opts.In, opts.Out)
	}
	if !r.Headless {
		tui.PrintBanner(opts.Out, flowstack.Version)
		r.Renderer = tui.NewRenderer()
	}

	if opts.ExecutionID != "" {
		if !opts.JSON {
			notify(opts.Out, "Resuming execution '%s'...", opts.ExecutionID)
		}
		return quietExit(r.Resume(sigCtx, exec, opts.ExecutionID))
	}

	flowID := opts.FlowID
	if flowID == "" {
		ids := exec.Flows().IDs()
		if len(ids) != 1 {
			return fmt.Errorf("choose a flow with --flow (found %v)", ids)
		}
		flowID = ids[0]
	}

	id, runErr := r.Run(sigCtx, exec, flowID, input)
	if id != "" && !r.Headless {
		notify(opts.Out, "Execution '%s'.", id)
	}
	if errors.Is(context.Cause(sigCtx), ErrInterrupted) && !opts.JSON {
		notify(opts.Out, "Interrupted.")
	}
	return quietExit(runErr)
}
