package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/moviechat-go/internal/agent"
	"github.com/54b3r/moviechat-go/internal/chat"
	"github.com/54b3r/moviechat-go/internal/provider"
	"github.com/54b3r/moviechat-go/internal/tracing"
)

// newChatCmd constructs the `moviechat chat` command: reseed the collection,
// then run the interactive console loop.
func newChatCmd(a *app) *cobra.Command {
	var systemPrompt string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Seed the movie memory and start an interactive chat",
		Long: `Rebuild the movie collection from the configured source, then start a
console conversation. Type a message after "User > " and press enter; the
assistant may call search_information before replying. End input (Ctrl-D)
to quit.

Examples:
  moviechat chat
  MODEL_PROVIDER=openai OPENAI_API_KEY=sk-... moviechat chat
  moviechat chat --config ./moviechat.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, log := a.cfg, a.log
			out := cmd.OutOrStdout()

			flush := tracing.Install(cfg.Tracing)
			defer flush()

			rt, err := buildRuntime(ctx, cfg, log, runtimeOptions{
				progress: func(msg string) { fmt.Fprintln(out, msg) },
			})
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer func() {
				if cerr := rt.Close(); cerr != nil {
					log.Warn("chat: close failed", slog.Any("error", cerr))
				}
			}()

			report, err := rt.reseeder.Reseed(ctx)
			if err != nil {
				return fmt.Errorf("chat: seeding failed: %w", err)
			}
			log.Info("seed complete", slog.String("summary", summarise(report)))

			chatModel, err := provider.New(ctx, cfg.Model)
			if err != nil {
				return fmt.Errorf("chat: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised",
				slog.String("provider", cfg.Model.Provider),
				slog.String("model", provider.ModelName(cfg.Model)),
			)

			movieAgent, err := agent.New(ctx, agent.Config{
				ChatModel:        chatModel,
				Tools:            rt.tools.Tools(),
				SystemPrompt:     systemPrompt,
				MaxContextTokens: cfg.Model.MaxContextTokens,
			})
			if err != nil {
				return fmt.Errorf("chat: failed to initialise agent: %w", err)
			}

			loop, err := chat.New(movieAgent, cmd.InOrStdin(), out)
			if err != nil {
				return err
			}
			return loop.Run(ctx) //nolint:wrapcheck // CLI entry point, error goes directly to cobra
		},
	}

	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "Override the assistant's system prompt")

	return cmd
}
