package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/flowstack/internal/presentation/graph"
	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/aretw0/flowstack/pkg/dsl"
)

func bookingFlow() *domain.FlowDefinition {
	b := dsl.Flow("booking").OnFaultCode("declined", "enter-details")
	b.View("enter-details", "detailsForm").
		On("submit", "confirm").When("nights > 0")
	b.Subflow("confirm", "payment").
		On("paid", "route")
	b.Decision("route").
		If(`tier == "gold"`, "done").
		OnDynamic("other", "nextState")
	b.View("review", "").Setup("approved", "done")
	b.End("done").View("confirmationView")
	return b.MustBuild()
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "State Shapes",
			contains: []string{
				`enter_details(("enter-details"))`,
				`confirm[["confirm <br/> ↳ payment"]]`,
				`route{"route"}`,
				`review[/"review"/]`,
				`done((("done")))`,
			},
		},
		{
			name: "Transition Labels",
			contains: []string{
				`enter_details -- "submit [${nights > 0}]" --> confirm`,
				`confirm -- "paid" --> route`,
				`route -- "${tier == 'gold'}" --> done`,
			},
		},
		{
			name: "Dynamic Targets",
			contains: []string{
				`route_dyn1{{"${nextState}"}}`,
				`route -. "other" .-> route_dyn1`,
			},
		},
		{
			name: "Setup Error And Faults",
			contains: []string{
				`review -. "setup failed" .-> done`,
				`fault0>"⚡ code:declined"]`,
				`fault0 -.-> enter_details`,
			},
		},
		{
			name:     "No Overlay",
			excludes: []string{"classDef"},
		},
		{
			name:    "Overlay",
			overlay: &graph.Overlay{VisitedStates: []string{"enter-details", "enter-details"}, CurrentState: "confirm"},
			contains: []string{
				"class enter_details visited;",
				"class confirm current;",
			},
		},
	}

	flow := bookingFlow()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(flow, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, unwanted)
				}
			}
			if tt.overlay != nil && strings.Count(got, "class enter_details visited;") != 1 {
				t.Errorf("visited states must be deduplicated:\n%v", got)
			}
		})
	}
}
