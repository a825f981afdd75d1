package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/moviechat-go/internal/movies"
)

// newMirrorCmd constructs the `moviechat mirror` command, which copies one
// page of movies from MongoDB into a local SQLite file usable as a source.
func newMirrorCmd(a *app) *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Copy movies from MongoDB into a local SQLite source",
		Long: `Read up to --limit movies from the configured MongoDB collection and upsert
them into a SQLite database. Point DOCUMENT_SOURCE=sqlite and SQLITE_PATH at
the file afterwards to run without MongoDB.

Examples:
  moviechat mirror
  moviechat mirror --db ./movies.db --limit 200`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log := a.cfg, a.log

			if dbPath == "" {
				dbPath = cfg.Source.SQLite.Path
			}
			if limit <= 0 {
				limit = cfg.Memory.PageLimit
			}

			src, err := openMongo(ctx, cfg)
			if err != nil {
				return fmt.Errorf("mirror: %w", err)
			}
			defer func() { _ = src.Close() }()

			dst, err := movies.OpenSQLite(dbPath)
			if err != nil {
				return fmt.Errorf("mirror: %w", err)
			}
			defer func() { _ = dst.Close() }()

			n, err := movies.Mirror(ctx, src, dst, limit)
			if err != nil {
				return fmt.Errorf("mirror: %w", err)
			}
			log.Info("mirror complete", slog.Int("movies", n), slog.String("path", dbPath))
			fmt.Fprintf(cmd.OutOrStdout(), "Mirrored %d movies into %s\n", n, dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: source.sqlite.path)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of movies to copy (default: memory.page_limit)")

	return cmd
}
