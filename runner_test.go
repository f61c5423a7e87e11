package flowstack_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/flowstack"
	"github.com/aretw0/flowstack/internal/sanitize"
	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/aretw0/flowstack/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunnerExecutor(t *testing.T) *flowstack.Executor {
	t.Helper()
	exec, err := flowstack.New(ctx, flowstack.WithFlows(bookingFlows()...))
	require.NoError(t, err)
	return exec
}

func TestRunner_RunsToTheEnd(t *testing.T) {
	exec := newRunnerExecutor(t)
	var out bytes.Buffer
	r := flowstack.NewRunner(strings.NewReader("submit\nbogus\npay method=card\n"), &out)
	r.Headless = true

	id, err := r.Run(ctx, exec, "booking", map[string]any{"total": 120})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	text := out.String()
	assert.Contains(t, text, "## enterDetailsView")
	assert.Contains(t, text, "## cardView")
	assert.Contains(t, text, "'bogus' is not accepted here; try one of [pay cancel]")
	assert.Contains(t, text, "## confirmationView")

	ids, err := exec.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRunner_ExitLeavesExecutionStored(t *testing.T) {
	exec := newRunnerExecutor(t)
	var out bytes.Buffer
	r := flowstack.NewRunner(strings.NewReader("submit\nexit\npay\n"), &out)
	r.Headless = true

	id, err := r.Run(ctx, exec, "booking", nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "left at 'card'")

	snap, err := exec.Inspect(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "card", snap.CurrentStateID())

	out.Reset()
	r = flowstack.NewRunner(strings.NewReader("pay\n"), &out)
	r.Headless = true
	require.NoError(t, r.Resume(ctx, exec, id))
	assert.Contains(t, out.String(), "**events:** `pay`, `cancel`")
	assert.Contains(t, out.String(), "## confirmationView")
}

func TestRunner_EOFStopsQuietly(t *testing.T) {
	exec := newRunnerExecutor(t)
	var out bytes.Buffer
	r := flowstack.NewRunner(strings.NewReader(""), &out)
	r.Headless = true

	id, err := r.Run(ctx, exec, "booking", nil)
	require.NoError(t, err)
	_, err = exec.Inspect(ctx, id)
	assert.NoError(t, err)
}

func TestRunner_RendererIsApplied(t *testing.T) {
	exec := newRunnerExecutor(t)
	var out bytes.Buffer
	r := flowstack.NewRunner(strings.NewReader(""), &out)
	r.Headless = true
	r.Renderer = func(s string) (string, error) { return strings.ToUpper(s), nil }

	_, err := r.Run(ctx, exec, "booking", nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "## ENTERDETAILSVIEW")
}

func TestRunner_UnknownFlow(t *testing.T) {
	exec := newRunnerExecutor(t)
	r := flowstack.NewRunner(strings.NewReader(""), &bytes.Buffer{})
	_, err := r.Run(ctx, exec, "ghost", nil)
	assert.ErrorIs(t, err, domain.ErrNoSuchFlow)
}

func TestRunner_MalformedLineIsReported(t *testing.T) {
	exec := newRunnerExecutor(t)
	var out bytes.Buffer
	r := flowstack.NewRunner(strings.NewReader("submit loose\nsubmit\n"), &out)
	r.Headless = true

	id, err := r.Run(ctx, exec, "booking", nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "error: parameter 'loose' is not key=value")

	snap, err := exec.Inspect(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "card", snap.CurrentStateID())
}

func TestRunner_UnroutedSubflowEndIsNotBlamedOnInput(t *testing.T) {
	parent := dsl.New("parent")
	parent.Subflow("call", "child").On("other", "finished")
	parent.End("finished")
	child := dsl.New("child")
	child.View("ask", "askView").On("go", "done")
	child.End("done")

	exec, err := flowstack.New(ctx, flowstack.WithFlows(parent.MustBuild(), child.MustBuild()),
		flowstack.WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)

	var out bytes.Buffer
	r := flowstack.NewRunner(strings.NewReader("go\n"), &out)
	r.Headless = true
	_, err = r.Run(ctx, exec, "parent", nil)

	var nm *domain.NoMatchingTransitionError
	require.ErrorAs(t, err, &nm)
	assert.True(t, nm.Cascaded)
	assert.Equal(t, "done", nm.EventID)
	assert.NotContains(t, out.String(), "is not accepted here")

	snap, err := exec.Inspect(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "ask", snap.CurrentStateID(), "the stored execution is untouched")
}

func TestRunner_JSONHandler(t *testing.T) {
	exec := newRunnerExecutor(t)
	in := strings.Join([]string{
		`{"event":"submit"}`,
		`{"event":"bogus"}`,
		`{"event":`,
		`pay method=card`,
	}, "\n") + "\n"
	var out bytes.Buffer
	r := &flowstack.Runner{Handler: flowstack.NewJSONHandler(strings.NewReader(in), &out)}

	_, err := r.Run(ctx, exec, "booking", map[string]any{"total": 120})
	require.NoError(t, err)

	var msgs []flowstack.JSONMessage
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var m flowstack.JSONMessage
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		msgs = append(msgs, m)
	}
	require.Len(t, msgs, 5)

	assert.Equal(t, "enterDetails", msgs[0].StateID)
	require.NotNil(t, msgs[0].View)
	assert.Equal(t, "enterDetailsView", msgs[0].View.ViewName)
	assert.Equal(t, []string{"submit"}, msgs[0].Events)

	assert.Equal(t, "payment", msgs[1].FlowID)
	assert.Equal(t, "card", msgs[1].StateID)

	assert.Contains(t, msgs[2].System, "'bogus' is not accepted here")
	assert.Contains(t, msgs[3].System, "error:")

	assert.True(t, msgs[4].Ended)
	require.NotNil(t, msgs[4].View)
	assert.Equal(t, "confirmationView", msgs[4].View.ViewName)
}

func TestParseEventLine(t *testing.T) {
	tests := []struct {
		line    string
		event   string
		params  map[string]any
		wantErr error
	}{
		{line: "submit", event: "submit"},
		{line: "pay method=card  amount=10", event: "pay", params: map[string]any{"method": "card", "amount": "10"}},
		{line: "pay note=a=b", event: "pay", params: map[string]any{"note": "a=b"}},
		{line: "pay =x", wantErr: assert.AnError},
		{line: "pay loose", wantErr: assert.AnError},
		{line: strings.Repeat("e", 5000), wantErr: sanitize.ErrInputTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.line[:min(len(tt.line), 20)], func(t *testing.T) {
			event, params, err := flowstack.ParseEventLine(tt.line)
			switch {
			case tt.wantErr == assert.AnError:
				assert.Error(t, err)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.event, event)
				assert.Equal(t, tt.params, params)
			}
		})
	}
}
