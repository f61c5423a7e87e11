package main

import (
	"fmt"

	"github.com/aretw0/flowstack/internal/cli"
	"github.com/aretw0/flowstack/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [flow]",
	Short: "Export a flow as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of a flow. With --execution the
current state of that stored execution is highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		flows, err := cli.LoadFlows(cmd.Context(), cfg.Dir)
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		flowID := ""
		if len(args) > 0 {
			flowID = args[0]
		}

		if executionID, _ := cmd.Flags().GetString("execution"); executionID != "" {
			p, err := cli.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer p.Close()
			snap, err := p.Store.Load(cmd.Context(), executionID)
			if err != nil {
				return err
			}
			if flowID == "" {
				flowID = snap.ActiveFlowID()
			}
			if flowID == snap.ActiveFlowID() {
				overlay = &graph.Overlay{CurrentState: snap.CurrentStateID()}
			}
		}

		if flowID == "" {
			ids := flows.IDs()
			if len(ids) != 1 {
				return fmt.Errorf("choose a flow (found %v)", ids)
			}
			flowID = ids[0]
		}
		flow, err := flows.GetFlow(flowID)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(flow, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("execution", "e", "", "Highlight the current state of a stored execution")
}
