package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/flowstack/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored executions",
	Long:  `List, inspect and remove the executions held by the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored executions",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := cli.OpenStore(cmd.Context(), configFrom(cmd))
		if err != nil {
			return err
		}
		defer p.Close()

		ids, err := p.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing executions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stored executions found.")
			return nil
		}
		fmt.Fprintln(out, "Stored executions:")
		for _, id := range ids {
			snap, err := p.Store.Load(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(out, "- %s (unreadable: %v)\n", id, err)
				continue
			}
			fmt.Fprintf(out, "- %s  %s @ %s\n", id, snap.ActiveFlowID(), snap.CurrentStateID())
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <execution-id>",
	Short: "Print the snapshot of an execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := cli.OpenStore(cmd.Context(), configFrom(cmd))
		if err != nil {
			return err
		}
		defer p.Close()

		snap, err := p.Store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading execution '%s': %w", args[0], err)
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling snapshot: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <execution-id>...",
	Short: "Remove one or more executions",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := cli.OpenStore(cmd.Context(), configFrom(cmd))
		if err != nil {
			return err
		}
		defer p.Close()

		ids := args
		if all, _ := cmd.Flags().GetBool("all"); all {
			if ids, err = p.Store.List(cmd.Context()); err != nil {
				return fmt.Errorf("error listing executions: %w", err)
			}
		}

		var errs []error
		for _, id := range ids {
			if err := p.Store.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed execution '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored execution")
}
