package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// newSeedCmd constructs the `moviechat seed` command, which rebuilds the
// collection and prints a summary. Only useful with a persistent backend
// (qdrant, redis); the volatile store is discarded on exit.
func newSeedCmd(a *app) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Rebuild the movie collection in the configured vector store",
		Long: `Clear the movie collection, read one page of movies from the configured
source and save each into memory.

A failure to read the source aborts the run. Individual save failures are
reported and skipped.

Examples:
  MEMORY_BACKEND=qdrant EMBEDDING_DIMENSIONS=384 moviechat seed
  DOCUMENT_SOURCE=sqlite SQLITE_PATH=./movies.db MEMORY_BACKEND=redis moviechat seed`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log := a.cfg, a.log
			out := cmd.OutOrStdout()

			if cfg.Memory.Backend == "volatile" {
				log.Warn("seed: volatile backend selected, the seeded collection is discarded on exit")
			}

			opts := runtimeOptions{}
			if !quiet {
				opts.progress = func(msg string) { fmt.Fprintln(out, msg) }
			}
			rt, err := buildRuntime(ctx, cfg, log, opts)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			defer func() {
				if cerr := rt.Close(); cerr != nil {
					log.Warn("seed: close failed", slog.Any("error", cerr))
				}
			}()

			report, err := rt.reseeder.Reseed(ctx)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Fprintln(out, summarise(report))
			for _, f := range report.Failures {
				fmt.Fprintf(out, "  %s: %v\n", f.ID, f.Err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the final summary")

	return cmd
}
