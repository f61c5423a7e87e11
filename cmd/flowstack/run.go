package main

import (
	"os"

	"github.com/aretw0/flowstack/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Run a flow interactively",
	Long: `Starts a flow and reads events from stdin, one per line: an event id
optionally followed by key=value parameters. Type "exit" to leave the
execution stored and resume it later with --resume.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		if !cmd.Flags().Changed("dir") && len(args) > 0 {
			cfg.Dir = args[0]
		}
		opts := cli.RunOptions{Config: cfg}
		opts.FlowID, _ = cmd.Flags().GetString("flow")
		opts.Context, _ = cmd.Flags().GetString("context")
		opts.ExecutionID, _ = cmd.Flags().GetString("resume")
		opts.ActionsPath, _ = cmd.Flags().GetString("actions")
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		if !cli.IsTerminal(os.Stdin) {
			opts.Headless = true
		}
		return cli.RunSession(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("flow", "f", "", "Flow to start (may be omitted when the directory holds one flow)")
	runCmd.Flags().StringP("context", "c", "", "JSON object seeding the root flow scope")
	runCmd.Flags().StringP("resume", "r", "", "Resume a stored execution instead of starting one")
	runCmd.Flags().String("actions", "", "Process actions file (default <dir>/actions.yaml)")
	runCmd.Flags().Bool("headless", false, "Plain output without prompts or styling")
	runCmd.Flags().Bool("json", false, "Exchange JSON lines on stdin and stdout")

	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
