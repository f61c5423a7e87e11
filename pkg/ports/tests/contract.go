package tests

import (
	"context"
	"testing"

	"github.com/aretw0/flowstack/pkg/ports"
)

// FlowLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.FlowLoader.
// expected maps every flow id the loader must produce to its start state id.
func FlowLoaderContractTest(t *testing.T, loader ports.FlowLoader, expected map[string]string) {
	t.Helper()

	flows, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error loading flows: %v", err)
	}

	t.Run("Count", func(t *testing.T) {
		if len(flows) != len(expected) {
			t.Errorf("expected %d flows, got %d", len(expected), len(flows))
		}
	})

	t.Run("Resolvable", func(t *testing.T) {
		for _, f := range flows {
			if err := f.Resolve(); err != nil {
				t.Errorf("flow %s does not resolve: %v", f.ID, err)
			}
		}
	})

	t.Run("StartStates", func(t *testing.T) {
		lookup := make(map[string]string)
		for _, f := range flows {
			start := f.StartStateID
			if start == "" && len(f.States) > 0 {
				start = f.States[0].ID
			}
			lookup[f.ID] = start
		}
		for id, start := range expected {
			got, ok := lookup[id]
			if !ok {
				t.Errorf("flow %s missing from loader output", id)
				continue
			}
			if got != start {
				t.Errorf("flow %s start state: got %q, want %q", id, got, start)
			}
		}
	})
}
