package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowstack/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flowstack",
	Short: "Flowstack runs stateful, event-driven conversation flows",
	Long: `Flowstack executes flow definitions written as YAML or JSON files.
Executions pause on view states, are persisted between events and resume
when the next event arrives.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaults := cli.DefaultConfig()
	flags := rootCmd.PersistentFlags()
	flags.String("dir", defaults.Dir, "Directory containing the flow files")
	flags.String("store", defaults.Store, "Execution store: memory, file, redis, bolt or sqlite")
	flags.String("store-path", "", "Location of the file, bolt or sqlite store (default <dir>/.flowstack/...)")
	flags.String("redis", defaults.RedisAddr, "Redis address for the redis store")
	flags.Duration("redis-ttl", 0, "Expire idle executions in the redis store after this long")
	flags.String("log-level", defaults.LogLevel, "Log level: debug, info, warn or error")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.Int("max-depth", 0, "Maximum subflow depth (0 uses the engine default)")
	flags.StringSlice("redact", nil, "Attribute name patterns masked before snapshots are stored; masking is one-way, so later events see the mask")
}

// configFrom reads the persistent flags of cmd.
func configFrom(cmd *cobra.Command) cli.Config {
	flags := cmd.Flags()
	cfg := cli.DefaultConfig()
	cfg.Dir, _ = flags.GetString("dir")
	cfg.Store, _ = flags.GetString("store")
	cfg.StorePath, _ = flags.GetString("store-path")
	cfg.RedisAddr, _ = flags.GetString("redis")
	cfg.RedisTTL, _ = flags.GetDuration("redis-ttl")
	cfg.LogLevel, _ = flags.GetString("log-level")
	cfg.LogJSON, _ = flags.GetBool("log-json")
	cfg.MaxDepth, _ = flags.GetInt("max-depth")
	cfg.Redact, _ = flags.GetStringSlice("redact")
	return cfg
}
