package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/moviechat-go/internal/version"
)

// newVersionCmd constructs the `moviechat version` subcommand. It prints the
// values injected at build time via -ldflags.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the moviechat version, git commit, and build date",
		// Skip config loading so version works with a broken config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
