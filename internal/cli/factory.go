package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/flowstack"
	"github.com/aretw0/flowstack/pkg/adapters/flowfile"
	"github.com/aretw0/flowstack/pkg/adapters/goja"
	"github.com/aretw0/flowstack/pkg/observability"
	"github.com/aretw0/flowstack/pkg/ports"
)

// NewExecutor loads the flow files of cfg.Dir and builds an executor on top
// of p with the goja evaluator. Lifecycle events are logged at debug level.
func NewExecutor(ctx context.Context, cfg Config, p *Persistence, logger *slog.Logger, extra ...flowstack.Option) (*flowstack.Executor, error) {
	opts := []flowstack.Option{
		flowstack.WithLoader(flowfile.New(cfg.Dir, flowfile.WithLogger(logger))),
		flowstack.WithEvaluator(goja.New()),
		flowstack.WithLogger(logger),
		flowstack.WithMaxDepth(cfg.MaxDepth),
		flowstack.WithListeners(observability.NewLogListener(logger)),
	}
	if p != nil {
		opts = append(opts, flowstack.WithStore(p.Store))
		if p.Locker != nil {
			opts = append(opts, flowstack.WithLocker(p.Locker))
		}
	}
	opts = append(opts, extra...)

	exec, err := flowstack.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing executor: %w", err)
	}
	return exec, nil
}

// LoadFlows loads and validates the flow files of dir without building an executor.
func LoadFlows(ctx context.Context, dir string) (ports.FlowRegistry, error) {
	exec, err := flowstack.New(ctx, flowstack.WithLoader(flowfile.New(dir)))
	if err != nil {
		return nil, err
	}
	return exec.Flows(), nil
}
