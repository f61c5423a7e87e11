package runtime_test

import (
	"errors"
	"testing"

	"github.com/aretw0/flowstack/internal/runtime"
	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/aretw0/flowstack/pkg/dsl"
	"github.com/aretw0/flowstack/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ActionStateRunsWithoutPausing(t *testing.T) {
	actions := registry.NewActions()
	var calls []string
	actions.Register("validate", func(rc *domain.RequestContext) (string, error) {
		calls = append(calls, "validate")
		return "unknown", nil
	})
	actions.Register("charge", func(rc *domain.RequestContext) (string, error) {
		calls = append(calls, "charge")
		return "success", rc.FlowScope().Put("charged", true)
	})
	actions.Register("never", func(rc *domain.RequestContext) (string, error) {
		calls = append(calls, "never")
		return "success", nil
	})

	b := dsl.New("checkout")
	b.Action("pay", "validate", "charge", "never").On("success", "thanks")
	b.End("thanks").View("thanksView")

	eng := newEngine(t, []*domain.FlowDefinition{b.MustBuild()}, runtime.WithActions(actions))
	stack, sel, err := eng.Start(ctx, "checkout", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"validate", "charge"}, calls, "the first result that matches wins")
	assert.Equal(t, "thanksView", sel.ViewName)
	assert.Equal(t, true, sel.Model["charged"])
	assert.False(t, stack.IsActive())
}

func TestEngine_ActionExpressionAndNoMatch(t *testing.T) {
	b := dsl.New("routing")
	b.Action("route").Expression("next").On("left", "l").On("right", "r")
	b.View("l", "leftView")
	b.View("r", "rightView")
	flows := []*domain.FlowDefinition{b.MustBuild()}

	eng := newEngine(t, flows, runtime.WithExpressionEvaluator(modelEvaluator))

	_, sel, err := eng.Start(ctx, "routing", map[string]any{"next": "right"})
	require.NoError(t, err)
	assert.Equal(t, "rightView", sel.ViewName)

	_, _, err = eng.Start(ctx, "routing", map[string]any{"next": "up"})
	assert.ErrorIs(t, err, domain.ErrNoMatchingTransition, "a cascaded no-match is fatal")
	var nm *domain.NoMatchingTransitionError
	require.ErrorAs(t, err, &nm)
	assert.True(t, nm.Cascaded)
	assert.Equal(t, "up", nm.EventID)
}

func TestEngine_DecisionRoutesOnCriteria(t *testing.T) {
	b := dsl.New("triage")
	b.Decision("check").
		If("vip", "fast").
		OnAny("slow")
	b.View("fast", "fastView")
	b.View("slow", "slowView")

	eng := newEngine(t, []*domain.FlowDefinition{b.MustBuild()}, runtime.WithExpressionEvaluator(modelEvaluator))

	_, sel, err := eng.Start(ctx, "triage", map[string]any{"vip": true})
	require.NoError(t, err)
	assert.Equal(t, "fastView", sel.ViewName)

	_, sel, err = eng.Start(ctx, "triage", map[string]any{"vip": false})
	require.NoError(t, err)
	assert.Equal(t, "slowView", sel.ViewName)
}

func TestEngine_FailedPreconditionReentersSource(t *testing.T) {
	b := dsl.New("form")
	b.View("edit", "editView").On("save", "saved").When("valid")
	b.End("saved").View("savedView")

	eng := newEngine(t, []*domain.FlowDefinition{b.MustBuild()}, runtime.WithExpressionEvaluator(modelEvaluator))
	stack, _, err := eng.Start(ctx, "form", map[string]any{"valid": false})
	require.NoError(t, err)

	sel, err := eng.Signal(ctx, stack, "save", nil)
	require.NoError(t, err)
	assert.Equal(t, "editView", sel.ViewName)
	assert.Equal(t, "edit", stack.CurrentStateID())
	assert.Equal(t, "save", stack.LastEventID)

	top, _ := stack.ActiveSession()
	require.NoError(t, top.Scope.Put("valid", true))
	sel, err = eng.Signal(ctx, stack, "save", nil)
	require.NoError(t, err)
	assert.Equal(t, "savedView", sel.ViewName)
}

func TestEngine_ViewSetupErrorTarget(t *testing.T) {
	b := dsl.New("profile")
	b.View("show", "profileView").Setup("loaded", "missing")
	b.View("missing", "notFoundView")

	eng := newEngine(t, []*domain.FlowDefinition{b.MustBuild()}, runtime.WithExpressionEvaluator(modelEvaluator))

	stack, sel, err := eng.Start(ctx, "profile", map[string]any{"loaded": false})
	require.NoError(t, err)
	assert.Equal(t, "notFoundView", sel.ViewName)
	assert.Equal(t, "missing", stack.CurrentStateID())

	_, sel, err = eng.Start(ctx, "profile", map[string]any{"loaded": true})
	require.NoError(t, err)
	assert.Equal(t, "profileView", sel.ViewName)
}

func TestEngine_MarkerStates(t *testing.T) {
	b := dsl.New("quiet")
	b.View("wait", "").On("go", "done")
	b.End("done")

	eng := newEngine(t, []*domain.FlowDefinition{b.MustBuild()})
	stack, sel, err := eng.Start(ctx, "quiet", nil)
	require.NoError(t, err)
	assert.True(t, sel.IsNull())
	assert.True(t, stack.IsActive())

	sel, err = eng.Signal(ctx, stack, "go", nil)
	require.NoError(t, err)
	assert.True(t, sel.IsNull())
	assert.False(t, stack.IsActive())
}

func TestEngine_RedirectAndDynamicTarget(t *testing.T) {
	b := dsl.New("wizard")
	b.View("step1", "step1View").Redirect().OnDynamic("jump", "target")
	b.View("step2", "step2View")
	b.View("step3", "step3View")

	eng := newEngine(t, []*domain.FlowDefinition{b.MustBuild()}, runtime.WithExpressionEvaluator(modelEvaluator))
	stack, sel, err := eng.Start(ctx, "wizard", nil)
	require.NoError(t, err)
	assert.True(t, sel.Redirect)

	_, err = eng.Signal(ctx, stack, "jump", nil)
	assert.Error(t, err, "target attribute is missing")

	assert.Equal(t, "step1", stack.CurrentStateID())

	top, _ := stack.ActiveSession()
	require.NoError(t, top.Scope.Put("target", "step3"))
	sel, err = eng.Signal(ctx, stack, "jump", nil)
	require.NoError(t, err)
	assert.Equal(t, "step3View", sel.ViewName)
}

var errDeclined = errors.New("card declined")

func faultFlows(handled bool) []*domain.FlowDefinition {
	b := dsl.New("payment")
	b.View("card", "cardView").On("pay", "charge")
	b.Action("charge", "charge").On("success", "paid")
	b.View("declined", "declinedView")
	b.View("oops", "oopsView")
	b.End("paid")
	if handled {
		b.OnFaultCode("E_LIMIT", "oops").
			OnFault(errDeclined, "declined").
			OnAnyFault("oops")
	}
	return []*domain.FlowDefinition{b.MustBuild()}
}

func TestEngine_FaultHandlerFirstMatchWins(t *testing.T) {
	actions := registry.NewActions()
	actions.Register("charge", func(*domain.RequestContext) (string, error) {
		return "", errDeclined
	})

	var fault any
	hooks := domain.LifecycleHooks{OnPaused: func(rc *domain.RequestContext, _ domain.ViewSelection) {
		fault, _ = rc.RequestScope().Get(runtime.FaultAttribute)
	}}
	eng := newEngine(t, faultFlows(true), runtime.WithActions(actions), runtime.WithListeners(hooks))
	stack, _, err := eng.Start(ctx, "payment", nil)
	require.NoError(t, err)

	sel, err := eng.Signal(ctx, stack, "pay", nil)
	require.NoError(t, err)
	assert.Equal(t, "declinedView", sel.ViewName)
	assert.Equal(t, "declined", stack.CurrentStateID())

	var ferr *domain.StateFaultError
	require.ErrorAs(t, fault.(error), &ferr)
	assert.Equal(t, "charge", ferr.StateID)
	assert.ErrorIs(t, ferr, errDeclined)
	assert.Contains(t, sel.Model, runtime.FaultAttribute, "the fault is visible to the handler view")
}

func TestEngine_FaultHandlerMatchesCode(t *testing.T) {
	actions := registry.NewActions()
	actions.Register("charge", func(*domain.RequestContext) (string, error) {
		return "", domain.NewFault("E_LIMIT", "over limit")
	})
	eng := newEngine(t, faultFlows(true), runtime.WithActions(actions))
	stack, _, err := eng.Start(ctx, "payment", nil)
	require.NoError(t, err)

	sel, err := eng.Signal(ctx, stack, "pay", nil)
	require.NoError(t, err)
	assert.Equal(t, "oopsView", sel.ViewName)
}

func TestEngine_UnhandledFaultPausesAtFaultingState(t *testing.T) {
	actions := registry.NewActions()
	actions.Register("charge", func(*domain.RequestContext) (string, error) {
		return "", errDeclined
	})
	eng := newEngine(t, faultFlows(false), runtime.WithActions(actions))
	stack, _, err := eng.Start(ctx, "payment", nil)
	require.NoError(t, err)

	_, err = eng.Signal(ctx, stack, "pay", nil)
	var ferr *domain.StateFaultError
	require.ErrorAs(t, err, &ferr)
	assert.ErrorIs(t, err, errDeclined)

	assert.Equal(t, "charge", stack.CurrentStateID())
	top, _ := stack.ActiveSession()
	assert.Equal(t, domain.StatusPaused, top.Status)
}

func TestEngine_UnknownActionIsFatal(t *testing.T) {
	eng := newEngine(t, faultFlows(true), runtime.WithActions(registry.NewActions()))
	stack, _, err := eng.Start(ctx, "payment", nil)
	require.NoError(t, err)

	_, err = eng.Signal(ctx, stack, "pay", nil)
	assert.ErrorIs(t, err, domain.ErrNoSuchAction, "lookup errors bypass fault handlers")
}

func TestEngine_StrictOutputMappingFault(t *testing.T) {
	parent := dsl.New("parent")
	parent.Subflow("call", "child").Output("result").On("done", "finished")
	parent.View("mapFailed", "mapFailedView")
	parent.End("finished")
	parent.OnFault(domain.ErrMissingAttribute, "mapFailed")

	child := dsl.New("child")
	child.End("done")

	eng := newEngine(t, []*domain.FlowDefinition{parent.MustBuild(), child.MustBuild()})
	stack, sel, err := eng.Start(ctx, "parent", nil)
	require.NoError(t, err)
	assert.Equal(t, "mapFailedView", sel.ViewName)
	assert.Equal(t, []string{"parent"}, stack.FlowIDStack())
}

func TestEngine_SubflowEndCriteriaErrorFaults(t *testing.T) {
	build := func(handled bool) []*domain.FlowDefinition {
		parent := dsl.New("parent")
		parent.Subflow("call", "child").
			If("broken", "finished").
			On("done", "finished")
		parent.View("oops", "oopsView")
		parent.End("finished")
		if handled {
			parent.OnAnyFault("oops")
		}

		child := dsl.New("child")
		child.View("ask", "askView").On("go", "done")
		child.End("done")
		return []*domain.FlowDefinition{parent.MustBuild(), child.MustBuild()}
	}

	eng := newEngine(t, build(true), runtime.WithExpressionEvaluator(modelEvaluator))
	stack, _, err := eng.Start(ctx, "parent", nil)
	require.NoError(t, err)
	sel, err := eng.Signal(ctx, stack, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "oopsView", sel.ViewName, "the parent's fault handler sees the criteria error")
	assert.Equal(t, []string{"parent"}, stack.FlowIDStack())

	eng = newEngine(t, build(false), runtime.WithExpressionEvaluator(modelEvaluator))
	stack, _, err = eng.Start(ctx, "parent", nil)
	require.NoError(t, err)
	_, err = eng.Signal(ctx, stack, "go", nil)
	var ferr *domain.StateFaultError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "call", ferr.StateID)
	assert.Equal(t, "call", stack.CurrentStateID())
}

func TestEngine_MaxDepth(t *testing.T) {
	b := dsl.New("recursive")
	b.Subflow("again", "recursive").On("done", "done")
	b.End("done")

	eng := newEngine(t, []*domain.FlowDefinition{b.MustBuild()}, runtime.WithMaxDepth(4))
	assert.Equal(t, 4, eng.MaxDepth())

	stack, _, err := eng.Start(ctx, "recursive", nil)
	require.ErrorIs(t, err, domain.ErrMaxDepthExceeded)
	assert.Equal(t, 4, stack.Depth(), "the limit is checked before activation")
}

func TestEngine_MaxSteps(t *testing.T) {
	b := dsl.New("loop")
	b.Decision("a").OnAny("b")
	b.Decision("b").OnAny("a")

	eng := newEngine(t, []*domain.FlowDefinition{b.MustBuild()}, runtime.WithMaxSteps(50))
	_, _, err := eng.Start(ctx, "loop", nil)
	assert.ErrorIs(t, err, domain.ErrStepLimitExceeded)
}

func TestEngine_UnknownSubflowIsLookupError(t *testing.T) {
	b := dsl.New("orphan")
	b.Subflow("call", "ghost").On("done", "end")
	b.End("end")

	eng := newEngine(t, []*domain.FlowDefinition{b.MustBuild()})
	_, _, err := eng.Start(ctx, "orphan", nil)
	assert.ErrorIs(t, err, domain.ErrNoSuchFlow)
}
