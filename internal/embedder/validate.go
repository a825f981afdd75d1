package embedder

import (
	"log/slog"
	"strings"

	"github.com/54b3r/moviechat-go/internal/config"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// WarnMisconfiguration logs warnings for embedding settings that are valid
// but almost certainly wrong. It never fails; hard errors are reported by New.
func WarnMisconfiguration(cfg config.EmbeddingConfig, log *slog.Logger) {
	if cfg.Model != "" && looksLikeChatModel(cfg.Model) {
		log.Warn("embedder: embedding.model looks like a chat model, not an embedding model",
			slog.String("model", cfg.Model),
			slog.String("hint", "use a dedicated embedding model e.g. all-minilm, nomic-embed-text, text-embedding-3-small"),
		)
	}
	if cfg.Dimensions <= 0 {
		log.Warn("embedder: embedding.dimensions is not set; the qdrant backend will refuse to start",
			slog.String("model", cfg.Model),
		)
	}
}
