package embedder

import (
	"fmt"

	"github.com/54b3r/moviechat-go/internal/config"
	"github.com/54b3r/moviechat-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOpenAIModel = "text-embedding-3-small"

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// New constructs a rag.Embedder from the resolved configuration. Settings
// missing from the embedding section are inherited from the chat model
// section of the same provider:
//
//   - ollama: endpoint falls back to model.ollama.host
//   - openai: api_key falls back to model.openai.api_key
//   - azure:  api_key / endpoint / api_version fall back to model.azure
//
// When embedding.requests_per_second is positive the embedder is wrapped in
// a token-bucket limiter.
func New(cfg *config.Config) (rag.Embedder, error) {
	emb, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Embedding.RequestsPerSecond > 0 {
		return NewRateLimited(emb, cfg.Embedding.RequestsPerSecond, cfg.Embedding.Burst), nil
	}
	return emb, nil
}

// newBackend selects the concrete embedder for cfg.Embedding.Provider.
func newBackend(cfg *config.Config) (rag.Embedder, error) {
	ec := cfg.Embedding

	switch ec.Provider {
	case "", "ollama":
		host := firstNonEmpty(ec.Endpoint, cfg.Model.Ollama.Host, "http://localhost:11434")
		if ec.Model == "" {
			return nil, fmt.Errorf("embedder: ollama requires embedding.model")
		}
		return NewOllamaEmbedder(OllamaConfig{Host: host, Model: ec.Model}), nil

	case "openai":
		apiKey := firstNonEmpty(ec.APIKey, cfg.Model.OpenAI.APIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		return NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    firstNonEmpty(ec.Endpoint, defaultOpenAIBaseURL),
			APIKey:     apiKey,
			Model:      firstNonEmpty(ec.Model, defaultOpenAIModel),
			Dimensions: ec.Dimensions,
		}), nil

	case "azure":
		apiKey := firstNonEmpty(ec.APIKey, cfg.Model.Azure.APIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		endpoint := firstNonEmpty(ec.Endpoint, cfg.Model.Azure.Endpoint)
		if endpoint == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
		return NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    endpoint,
			APIKey:     apiKey,
			Model:      firstNonEmpty(ec.Model, defaultOpenAIModel),
			Dimensions: ec.Dimensions,
			Azure:      true,
			APIVersion: cfg.Model.Azure.APIVersion,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid values: ollama, openai, azure)", ec.Provider)
	}
}

// firstNonEmpty returns the first non-empty string in vals.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
