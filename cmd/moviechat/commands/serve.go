package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/54b3r/moviechat-go/internal/metrics"
	"github.com/54b3r/moviechat-go/internal/server"
)

// startupProbeTimeout bounds the one-off readiness check logged at startup.
const startupProbeTimeout = 10 * time.Second

// newServeCmd constructs the `moviechat serve` command, which seeds the
// collection and exposes the search tool over HTTP.
func newServeCmd(a *app) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Seed the movie memory and serve the search API",
		Long: `Rebuild the movie collection, then start an HTTP server on localhost.

Endpoints:
  POST /api/search   {"query": "...", "limit": 5}
  GET  /api/search   ?q=...&limit=5
  GET  /api/health   liveness
  GET  /api/ready    seeded entry count and dependency readiness
  GET  /metrics      Prometheus metrics

Set MOVIECHAT_API_KEY to require "Authorization: Bearer <key>" on /api/search.

Examples:
  moviechat serve
  moviechat serve --port 9090
  MEMORY_BACKEND=redis moviechat serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, log := a.cfg, a.log
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(reg)

			rt, err := buildRuntime(ctx, cfg, log, runtimeOptions{
				progress: func(msg string) { log.Debug(msg) },
				metrics:  m,
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() {
				if cerr := rt.Close(); cerr != nil {
					log.Warn("serve: close failed", slog.Any("error", cerr))
				}
			}()

			report, err := rt.reseeder.Reseed(ctx)
			if err != nil {
				return fmt.Errorf("serve: seeding failed: %w", err)
			}
			log.Info("seed complete", slog.String("summary", summarise(report)))

			probeCtx, cancel := context.WithTimeout(ctx, startupProbeTimeout)
			if err := server.CheckDependencies(probeCtx, rt.pingers...); err != nil {
				log.Warn("serve: dependency not ready at startup", slog.Any("error", err))
			}
			cancel()

			srv, err := server.New(rt.search, &server.Config{
				Host:            cfg.Server.Host,
				Port:            cfg.Server.Port,
				Logger:          log,
				Pingers:         rt.pingers,
				Seed:            rt.reseeder,
				RateLimit:       cfg.Server.RateLimit,
				RateBurst:       cfg.Server.RateBurst,
				APIKey:          cfg.Server.APIKey,
				MetricsRegistry: reg,
				MetricsGatherer: reg,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx) //nolint:wrapcheck // CLI entry point, error goes directly to cobra
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
