package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowstack"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of flowstack",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "flowstack version %s\n", strings.TrimSpace(flowstack.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
