package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/moviechat-go/internal/config"
)

// New constructs a ToolCallingChatModel from the resolved model settings,
// delegating to the backend named by cfg.Provider. It validates first so
// callers get a clear error at startup rather than on the first request.
func New(ctx context.Context, cfg config.ModelConfig) (model.ToolCallingChatModel, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	var (
		m   model.ToolCallingChatModel
		err error
	)
	switch Backend(cfg.Provider) {
	case "", BackendOllama:
		m, err = newOllama(ctx, cfg)
	case BackendOpenAI:
		m, err = newOpenAI(ctx, cfg)
	case BackendAzure:
		m, err = newAzure(ctx, cfg)
	case BackendArk:
		m, err = newArk(ctx, cfg)
	case BackendGemini:
		m, err = newGemini(ctx, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("provider: %s: %w", cfg.Provider, err)
	}
	return m, nil
}

// ModelName returns the model or deployment name the selected backend uses.
func ModelName(cfg config.ModelConfig) string {
	switch Backend(cfg.Provider) {
	case BackendOpenAI:
		return cfg.OpenAI.Model
	case BackendAzure:
		return cfg.Azure.Deployment
	case BackendArk:
		return cfg.Ark.Model
	case BackendGemini:
		return cfg.Gemini.Model
	default:
		return cfg.Ollama.Model
	}
}
