package runtime_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/flowstack/internal/runtime"
	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/aretw0/flowstack/pkg/dsl"
	"github.com/aretw0/flowstack/pkg/registry"
	"github.com/stretchr/testify/require"
)

// evalFunc adapts a function to domain.Evaluator.
type evalFunc func(rc *domain.RequestContext, expr string) (any, error)

func (f evalFunc) Eval(rc *domain.RequestContext, expr string) (any, error) { return f(rc, expr) }

// modelEvaluator resolves an expression as a model attribute name.
var modelEvaluator = evalFunc(func(rc *domain.RequestContext, expr string) (any, error) {
	if v, ok := rc.Model().Get(expr); ok {
		return v, nil
	}
	return nil, fmt.Errorf("unknown attribute %q", expr)
})

func newEngine(t *testing.T, flows []*domain.FlowDefinition, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	reg, err := registry.NewFlows(flows...)
	require.NoError(t, err)
	return runtime.NewEngine(reg, opts...)
}

// bookingFlows builds the booking/payment pair used by the scenario tests.
func bookingFlows() []*domain.FlowDefinition {
	booking := dsl.New("booking")
	booking.View("enterDetails", "enterDetailsView").On("submit", "confirm")
	booking.Subflow("confirm", "payment").
		Input("total").
		Output("receipt").
		NullFill().
		On("paid", "done").
		On("cancelled", "enterDetails")
	booking.End("done").View("confirmationView")

	payment := dsl.New("payment")
	payment.View("card", "cardView").
		On("pay", "paid").
		On("cancel", "cancelled")
	payment.End("paid")
	payment.End("cancelled")

	return []*domain.FlowDefinition{booking.MustBuild(), payment.MustBuild()}
}

// recorder collects listener notifications as readable strings.
type recorder struct {
	calls []string
}

func (r *recorder) Started(_ *domain.RequestContext, s *domain.FlowSession) {
	r.calls = append(r.calls, "started:"+s.FlowID())
}

func (r *recorder) EventSignaled(_ *domain.RequestContext, ev domain.Event) {
	r.calls = append(r.calls, "event:"+ev.ID)
}

func (r *recorder) StateTransitioned(_ *domain.RequestContext, _, next *domain.State) {
	r.calls = append(r.calls, "state:"+next.String())
}

func (r *recorder) SubflowSpawned(_ *domain.RequestContext, s *domain.FlowSession) {
	r.calls = append(r.calls, "spawned:"+s.FlowID())
}

func (r *recorder) SubflowEnded(_ *domain.RequestContext, s *domain.FlowSession) {
	r.calls = append(r.calls, "subflowEnded:"+s.FlowID())
}

func (r *recorder) Paused(_ *domain.RequestContext, sel domain.ViewSelection) {
	r.calls = append(r.calls, "paused:"+sel.ViewName)
}

func (r *recorder) Resumed(_ *domain.RequestContext, s *domain.FlowSession) {
	r.calls = append(r.calls, "resumed:"+s.FlowID())
}

func (r *recorder) Ended(_ *domain.RequestContext, s *domain.FlowSession) {
	r.calls = append(r.calls, "ended:"+s.FlowID())
}

var ctx = context.Background()
