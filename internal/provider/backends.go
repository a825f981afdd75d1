package provider

import (
	"context"
	"fmt"

	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/54b3r/moviechat-go/internal/config"
)

const defaultOllamaHost = "http://localhost:11434"

// newOllama constructs a chat model backed by a local Ollama instance. The
// model must support tool calling.
func newOllama(ctx context.Context, cfg config.ModelConfig) (model.ToolCallingChatModel, error) {
	host := cfg.Ollama.Host
	if host == "" {
		host = defaultOllamaHost
	}
	return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{ //nolint:wrapcheck // wrapped by New
		BaseURL: host,
		Model:   cfg.Ollama.Model,
	})
}

// newOpenAI constructs a chat model backed by the OpenAI API.
func newOpenAI(ctx context.Context, cfg config.ModelConfig) (model.ToolCallingChatModel, error) {
	maxTokens, temp := cfg.MaxTokens, cfg.Temperature
	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // wrapped by New
		Model:       cfg.OpenAI.Model,
		APIKey:      cfg.OpenAI.APIKey,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
}

// newAzure constructs a chat model backed by Azure OpenAI Service.
func newAzure(ctx context.Context, cfg config.ModelConfig) (model.ToolCallingChatModel, error) {
	maxTokens, temp := cfg.MaxTokens, cfg.Temperature
	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // wrapped by New
		Model:       cfg.Azure.Deployment,
		APIKey:      cfg.Azure.APIKey,
		BaseURL:     cfg.Azure.Endpoint,
		ByAzure:     true,
		APIVersion:  cfg.Azure.APIVersion,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
		// The default mapper strips dots and colons, which breaks deployment
		// names like "gpt-4.1".
		AzureModelMapperFunc: func(model string) string { return model },
	})
}

// newArk constructs a chat model backed by Volcengine Ark.
func newArk(ctx context.Context, cfg config.ModelConfig) (model.ToolCallingChatModel, error) {
	maxTokens, temp := cfg.MaxTokens, cfg.Temperature
	return einoark.NewChatModel(ctx, &einoark.ChatModelConfig{ //nolint:wrapcheck // wrapped by New
		Model:       cfg.Ark.Model,
		APIKey:      cfg.Ark.APIKey,
		BaseURL:     cfg.Ark.BaseURL,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
}

// newGemini constructs a chat model backed by Google Gemini (AI Studio).
func newGemini(ctx context.Context, cfg config.ModelConfig) (model.ToolCallingChatModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return einogemini.NewChatModel(ctx, &einogemini.Config{ //nolint:wrapcheck // wrapped by New
		Client: client,
		Model:  cfg.Gemini.Model,
	})
}
