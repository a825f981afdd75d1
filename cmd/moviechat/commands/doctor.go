package commands

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/moviechat-go/internal/provider"
)

// doctorProbeTimeout bounds each dependency probe.
const doctorProbeTimeout = 5 * time.Second

// newDoctorCmd constructs the `moviechat doctor` command, which checks the
// model settings and probes every configured dependency once.
func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and dependency reachability",
		Long: `Validate the chat model settings and probe each configured dependency:
the Ollama embedding host, MongoDB, and the Qdrant or Redis vector store.

Exits non-zero when any check fails.

Examples:
  moviechat doctor
  MEMORY_BACKEND=qdrant moviechat doctor`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log := a.cfg, a.log

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			failed := 0
			report := func(name string, err error) {
				status := "ok"
				if err != nil {
					status = "FAIL: " + err.Error()
					failed++
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, status)
			}

			report("model ("+provider.ModelName(cfg.Model)+")", provider.Validate(cfg.Model))

			rt, err := buildRuntime(ctx, cfg, log, runtimeOptions{})
			if err != nil {
				report("runtime", err)
				_ = tw.Flush()
				return fmt.Errorf("doctor: %d check(s) failed", failed)
			}
			defer func() {
				if cerr := rt.Close(); cerr != nil {
					log.Warn("doctor: close failed", slog.Any("error", cerr))
				}
			}()

			for _, p := range rt.pingers {
				probeCtx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
				report(p.Name(), p.Ping(probeCtx))
				cancel()
			}
			if err := tw.Flush(); err != nil {
				return fmt.Errorf("doctor: write report: %w", err)
			}

			if failed > 0 {
				return fmt.Errorf("doctor: %d check(s) failed", failed)
			}
			return nil
		},
	}
}
