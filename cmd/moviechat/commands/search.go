package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/moviechat-go/internal/tools"
)

// newSearchCmd constructs the `moviechat search` command, which runs
// search_information once and prints its JSON result.
func newSearchCmd(a *app) *cobra.Command {
	var limit int
	var noSeed bool

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run the movie search tool once",
		Long: `Seed the collection (unless --no-seed), then call search_information with
the given query and print the results as JSON, most relevant first.

--no-seed only makes sense with a persistent backend that was seeded earlier.

Examples:
  moviechat search "space battle"
  moviechat search --limit 3 "romantic comedy"
  MEMORY_BACKEND=qdrant moviechat search --no-seed "heist"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log := a.cfg, a.log

			rt, err := buildRuntime(ctx, cfg, log, runtimeOptions{})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer func() {
				if cerr := rt.Close(); cerr != nil {
					log.Warn("search: close failed", slog.Any("error", cerr))
				}
			}()

			if !noSeed {
				report, err := rt.reseeder.Reseed(ctx)
				if err != nil {
					return fmt.Errorf("search: seeding failed: %w", err)
				}
				log.Info("seed complete", slog.String("summary", summarise(report)))
			}

			argsJSON, err := json.Marshal(tools.SearchInput{Query: args[0], Limit: limit})
			if err != nil {
				return fmt.Errorf("search: encode arguments: %w", err)
			}
			out, err := rt.tools.Invoke(ctx, tools.SearchToolName, string(argsJSON))
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, []byte(out), "", "  "); err != nil {
				return fmt.Errorf("search: format result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (default from memory.search_limit)")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "Search the existing collection without reseeding")

	return cmd
}
