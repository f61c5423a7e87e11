package main

import (
	"fmt"

	"github.com/aretw0/flowstack/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the flow files for consistency",
	Long: `Loads every flow file, resolves state and subflow references and
reports the first broken definition.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if !cmd.Flags().Changed("dir") && len(args) > 0 {
			dir = args[0]
		}
		flows, err := cli.LoadFlows(cmd.Context(), dir)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d flow(s) valid: %v\n", len(flows.IDs()), flows.IDs())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
