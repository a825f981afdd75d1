// Package commands defines all Cobra CLI commands for the moviechat binary.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/moviechat-go/internal/audit"
	"github.com/54b3r/moviechat-go/internal/config"
	"github.com/54b3r/moviechat-go/internal/logging"
)

// app carries the state resolved once by the root command's pre-run hook
// and shared by every subcommand.
type app struct {
	// configPath holds the --config flag value.
	configPath string
	// cfg is the resolved configuration.
	cfg *config.Config
	// log is the process logger built from cfg.Logging.
	log *slog.Logger
}

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "moviechat",
		Short: "Chat about movies with a retrieval-backed assistant",
		Long: `moviechat reads a page of movies from MongoDB (or a local SQLite mirror),
embeds them into a semantic memory, and starts a console chat in which the
model can call search_information to look movies up.

Settings come from defaults, then a YAML file (--config, MOVIECHAT_CONFIG,
~/.moviechat/config.yaml or ./moviechat.yaml), then environment variables.
A .env file in the working directory is loaded first.
See 'moviechat --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			bootstrap := logging.New("info", "json")

			cfg, path, err := config.Load(a.configPath, bootstrap)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.New(cfg.Logging.Level, cfg.Logging.Format)
			cmd.SetContext(logging.WithLogger(cmd.Context(), a.log))

			audit.LogCommandStart(a.log, cmd.Name(), path, cfg)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML config file (default: ~/.moviechat/config.yaml)")

	root.AddCommand(
		newChatCmd(a),
		newSeedCmd(a),
		newSearchCmd(a),
		newMirrorCmd(a),
		newServeCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)

	return root
}
