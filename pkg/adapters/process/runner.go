package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/flowstack/pkg/domain"
)

// EnvPrefix prefixes the environment variables carrying model attributes.
const EnvPrefix = "FLOWSTACK_ATTR_"

// ParamEnvPrefix prefixes the parameters of the event that led to the action.
const ParamEnvPrefix = "FLOWSTACK_PARAM_"

// FaultCode is reported by failed processes, for declarative fault handlers.
const FaultCode = "process_failed"

// Runner executes allow-listed local processes as named actions.
//
// Model attributes are passed as FLOWSTACK_ATTR_<NAME> and event parameters
// as FLOWSTACK_PARAM_<NAME> environment variables,
// never as arguments, so attribute values cannot inject flags. The trimmed
// stdout is the action result. A JSON object {"event": ..., "attributes": {...}}
// additionally stores the attributes in the active flow scope.
type Runner struct {
	registry map[string]ProcessConfig
	baseDir  string
	timeout  time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(actions map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, a := range actions {
			a.Name = name
			r.registry[name] = a
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout bounds every process run. Zero means no limit beyond the request context.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ProcessConfig),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = ProcessConfig{Name: name, Command: command, Args: args}
}

// Names returns the registered action names in sorted order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Actions returns one ActionFunc per registered process.
func (r *Runner) Actions() map[string]domain.ActionFunc {
	actions := make(map[string]domain.ActionFunc, len(r.registry))
	for name := range r.registry {
		actions[name] = r.Action(name)
	}
	return actions
}

// Action returns the ActionFunc running the process registered as name.
func (r *Runner) Action(name string) domain.ActionFunc {
	return func(rc *domain.RequestContext) (string, error) {
		return r.Execute(rc, name)
	}
}

// ProcessError describes a process that could not be started or exited non-zero.
type ProcessError struct {
	Action   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("action '%s' failed: %v", e.Action, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// FaultCode implements domain.Coded.
func (e *ProcessError) FaultCode() string { return FaultCode }

// Execute runs the process registered as name within rc.
func (r *Runner) Execute(rc *domain.RequestContext, name string) (string, error) {
	proc, ok := r.registry[name]
	if !ok {
		return "", fmt.Errorf("%w: '%s' is not a registered process", domain.ErrNoSuchAction, name)
	}

	ctx := rc.Context()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir

	env := cmd.Environ()
	for k, v := range proc.Environment {
		env = append(env, k+"="+v)
	}
	for k, v := range rc.Model().Map() {
		env = append(env, EnvPrefix+strings.ToUpper(k)+"="+envValue(v))
	}
	for k, v := range rc.Event().Params {
		env = append(env, ParamEnvPrefix+strings.ToUpper(k)+"="+envValue(v))
	}
	env = append(env,
		"FLOWSTACK_EXECUTION="+rc.Stack().ID,
		"FLOWSTACK_FLOW="+rc.Stack().ActiveFlowID(),
		"FLOWSTACK_STATE="+rc.Stack().CurrentStateID(),
	)
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		perr := &ProcessError{Action: name, ExitCode: -1, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			perr.ExitCode = exitErr.ExitCode()
		}
		return "", perr
	}

	return r.result(rc, name, strings.TrimSpace(stdout.String()))
}

type structuredResult struct {
	Event      string         `json:"event"`
	Attributes map[string]any `json:"attributes"`
}

func (r *Runner) result(rc *domain.RequestContext, name, out string) (string, error) {
	if !strings.HasPrefix(out, "{") || !strings.HasSuffix(out, "}") {
		return out, nil
	}
	var res structuredResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return out, nil
	}
	scope := rc.FlowScope()
	for k, v := range res.Attributes {
		if err := scope.Put(k, v); err != nil {
			return "", fmt.Errorf("action '%s': %w", name, err)
		}
	}
	return res.Event, nil
}

func envValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", t)
	default:
		if raw, err := json.Marshal(v); err == nil {
			return string(raw)
		}
		return fmt.Sprintf("%v", v)
	}
}
