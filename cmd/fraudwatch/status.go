package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/fraudwatch/internal/cli"
	"github.com/Veraticus/fraudwatch/internal/config"
	"github.com/Veraticus/fraudwatch/internal/tui"
	"github.com/spf13/cobra"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the scoring service is awake",
		Long: `Probe the scoring service's /health endpoint and report whether it is
awake. A sleeping service is woken by the probe; it may take up to two minutes
to answer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wait := cli.StartWait(a.errOut, cli.StatusLabel(a.monitor.Status()))
			status := a.monitor.Probe(cmd.Context())
			wait.Stop()

			a.println(cli.StatusBadge(status))
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the scoring service status live",
		Long: `Open a live view of the scoring service status. The service is probed
on start and then every --interval. With --metrics-addr the client's
Prometheus metrics are served on /metrics while the view is open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if addr := a.cfg.Metrics.Addr; addr != "" {
				stop := a.serveMetrics(addr)
				defer stop()
			}

			return tui.Run(ctx, a.monitor,
				tui.WithInterval(interval),
				tui.WithScorer(a.scorer),
			)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "time between probes")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	_ = a.v.BindPFlag(config.KeyMetricsAddr, cmd.Flags().Lookup("metrics-addr"))
	return cmd
}

// serveMetrics exposes the collector on addr until the returned function is called.
func (a *app) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.collector.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("Failed to stop metrics server", "error", err)
		}
	}
}
