package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/flowstack"
	"github.com/aretw0/flowstack/internal/cli"
	httpAdapter "github.com/aretw0/flowstack/pkg/adapters/http"
	"github.com/aretw0/flowstack/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes the flows of --dir as a JSON API over HTTP. Executions live in
the configured store, so several servers sharing a redis store can serve
the same executions. Metrics are served at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		port, _ := cmd.Flags().GetString("port")
		actionsPath, _ := cmd.Flags().GetString("actions")

		logger, err := cfg.Logger(os.Stderr)
		if err != nil {
			return err
		}
		p, err := cli.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		procs, err := cli.LoadProcessActions(cfg.Dir, actionsPath)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}

		exec, err := cli.NewExecutor(cmd.Context(), cfg, p, logger,
			flowstack.WithActions(procs.Actions()),
			flowstack.WithListeners(metrics),
		)
		if err != nil {
			return err
		}

		handler := httpAdapter.NewHandler(exec, exec.Flows(),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		)

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting server", "addr", srv.Addr, "dir", cfg.Dir, "store", cfg.Store, "flows", exec.Flows().IDs())
			fmt.Fprintf(cmd.OutOrStdout(), "Serving flows from %s on %s\n", cfg.Dir, srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("actions", "", "Process actions file (default <dir>/actions.yaml)")
}
