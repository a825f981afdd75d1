// Package config resolves the process-wide configuration for moviechat.
// Configuration is resolved once at startup with a layered precedence:
// defaults → YAML file → env vars. Environment variables always win.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. MOVIECHAT_CONFIG environment variable
//  3. ~/.moviechat/config.yaml
//  4. ./moviechat.yaml
//
// The resolved *Config is passed into each component's constructor. No
// package reads the environment on its own after Load returns.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Model configures the LLM chat model provider.
	Model ModelConfig `yaml:"model"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Memory configures the semantic memory: collection naming, seeding
	// bounds, relevance threshold, and the vector store backend.
	Memory MemoryConfig `yaml:"memory"`

	// Source configures the document database movies are read from.
	Source SourceConfig `yaml:"source"`

	// Qdrant configures the Qdrant vector store connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Redis configures the Redis vector store connection.
	Redis RedisConfig `yaml:"redis"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// ModelConfig holds LLM chat model settings.
type ModelConfig struct {
	// Provider selects the backend: ollama, openai, azure, ark, gemini.
	Provider string `yaml:"provider"`
	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32 `yaml:"temperature"`
	// MaxContextTokens trims history oldest-first to this estimated budget.
	// Zero sends the full conversation history.
	MaxContextTokens int `yaml:"max_context_tokens"`

	Ollama OllamaConfig `yaml:"ollama"`
	OpenAI OpenAIConfig `yaml:"openai"`
	Azure  AzureConfig  `yaml:"azure"`
	Ark    ArkConfig    `yaml:"ark"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host"`
	// Model is the Ollama model name. It must support tool calling.
	Model string `yaml:"model"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the OpenAI model name.
	Model string `yaml:"model"`
}

// AzureConfig holds Azure OpenAI provider settings.
type AzureConfig struct {
	// APIKey is the Azure OpenAI API key. Prefer env var AZURE_OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string `yaml:"endpoint"`
	// Deployment is the Azure OpenAI deployment name.
	Deployment string `yaml:"deployment"`
	// APIVersion is the Azure OpenAI API version.
	APIVersion string `yaml:"api_version"`
}

// ArkConfig holds Volcengine Ark provider settings.
type ArkConfig struct {
	// APIKey is the Ark API key. Prefer env var ARK_API_KEY.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the Ark endpoint.
	BaseURL string `yaml:"base_url"`
	// Model is the Ark endpoint/model identifier.
	Model string `yaml:"model"`
}

// GeminiConfig holds Google Gemini provider settings.
type GeminiConfig struct {
	// APIKey is the Google API key. Prefer env var GOOGLE_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the Gemini model name.
	Model string `yaml:"model"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (ollama, openai, azure).
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions is the embedding vector size. Needed up front by Qdrant.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Burst is the token-bucket burst used with RequestsPerSecond.
	Burst int `yaml:"burst"`
}

// MemoryConfig holds the semantic memory settings shared by the seeding
// workflow and the search tool.
type MemoryConfig struct {
	// Backend selects the vector store: volatile, qdrant, redis.
	Backend string `yaml:"backend"`
	// Collection is the memory collection that is seeded and searched.
	Collection string `yaml:"collection"`
	// PageLimit caps how many movies are read from the source per seed.
	PageLimit int `yaml:"page_limit"`
	// ClearLimit caps how many existing entries are removed before seeding.
	ClearLimit int `yaml:"clear_limit"`
	// MinRelevance is the similarity floor applied by the search tool.
	MinRelevance float32 `yaml:"min_relevance"`
	// SearchLimit is the search tool's default result count.
	SearchLimit int `yaml:"search_limit"`
}

// SourceConfig holds document database settings.
type SourceConfig struct {
	// Backend selects the document source: mongo, sqlite.
	Backend string `yaml:"backend"`
	// Mongo holds MongoDB settings.
	Mongo MongoConfig `yaml:"mongo"`
	// SQLite holds SQLite settings.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	// URI is the MongoDB connection string. Prefer env var MONGO_URI.
	URI string `yaml:"uri"`
	// Database is the database holding the movies collection.
	Database string `yaml:"database"`
	// Collection is the source collection name.
	Collection string `yaml:"collection"`
}

// SQLiteConfig holds SQLite document source settings.
type SQLiteConfig struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// RedisConfig holds Redis vector store settings.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string `yaml:"addr"`
	// Password is the Redis password. Prefer env var REDIS_PASSWORD.
	Password string `yaml:"password"`
	// DB is the Redis logical database number.
	DB int `yaml:"db"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var MOVIECHAT_API_KEY.
	APIKey string `yaml:"api_key"`
	// RateLimit is the sustained per-IP request rate on /api/search.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the per-IP burst on /api/search.
	RateBurst int `yaml:"rate_burst"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// Default returns the configuration used when neither a file nor env vars
// override a value.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "ollama",
			MaxTokens:   4096,
			Temperature: 0.2,
			Ollama: OllamaConfig{
				Host:  "http://localhost:11434",
				Model: "llama3-groq-tool-use:latest",
			},
			OpenAI: OpenAIConfig{Model: "gpt-4o"},
			Azure:  AzureConfig{APIVersion: "2024-02-01"},
			Gemini: GeminiConfig{Model: "gemini-1.5-pro"},
		},
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			Model:      "chroma/all-minilm-l6-v2-f32",
			Dimensions: 384,
		},
		Memory: MemoryConfig{
			Backend:      "volatile",
			Collection:   "embedded_movies",
			PageLimit:    50,
			ClearLimit:   1000,
			MinRelevance: 0.1,
			SearchLimit:  5,
		},
		Source: SourceConfig{
			Backend: "mongo",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "sample_mflix",
				Collection: "embedded_movies",
			},
			SQLite: SQLiteConfig{Path: "movies.db"},
		},
		Qdrant: QdrantConfig{Host: "localhost", Port: 6334},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8080,
			RateLimit: 5,
			RateBurst: 10,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{Host: "http://localhost:3000"},
	}
}

// envBinding maps an environment variable onto a Config field.
type envBinding struct {
	envKey string
	apply  func(c *Config, v string) error
}

// envBindings is the ordered list of env vars consulted by Load.
// Only non-empty env values are applied.
var envBindings = []envBinding{
	{"MODEL_PROVIDER", setString(func(c *Config) *string { return &c.Model.Provider })},
	{"MODEL_MAX_TOKENS", setInt(func(c *Config) *int { return &c.Model.MaxTokens })},
	{"MODEL_TEMPERATURE", setFloat32(func(c *Config) *float32 { return &c.Model.Temperature })},
	{"MODEL_MAX_CONTEXT_TOKENS", setInt(func(c *Config) *int { return &c.Model.MaxContextTokens })},
	{"OLLAMA_HOST", setString(func(c *Config) *string { return &c.Model.Ollama.Host })},
	{"OLLAMA_MODEL", setString(func(c *Config) *string { return &c.Model.Ollama.Model })},
	{"OPENAI_API_KEY", setString(func(c *Config) *string { return &c.Model.OpenAI.APIKey })},
	{"OPENAI_MODEL", setString(func(c *Config) *string { return &c.Model.OpenAI.Model })},
	{"AZURE_OPENAI_API_KEY", setString(func(c *Config) *string { return &c.Model.Azure.APIKey })},
	{"AZURE_OPENAI_ENDPOINT", setString(func(c *Config) *string { return &c.Model.Azure.Endpoint })},
	{"AZURE_OPENAI_DEPLOYMENT", setString(func(c *Config) *string { return &c.Model.Azure.Deployment })},
	{"AZURE_OPENAI_API_VERSION", setString(func(c *Config) *string { return &c.Model.Azure.APIVersion })},
	{"ARK_API_KEY", setString(func(c *Config) *string { return &c.Model.Ark.APIKey })},
	{"ARK_BASE_URL", setString(func(c *Config) *string { return &c.Model.Ark.BaseURL })},
	{"ARK_MODEL", setString(func(c *Config) *string { return &c.Model.Ark.Model })},
	{"GOOGLE_API_KEY", setString(func(c *Config) *string { return &c.Model.Gemini.APIKey })},
	{"GEMINI_MODEL", setString(func(c *Config) *string { return &c.Model.Gemini.Model })},
	{"EMBEDDING_PROVIDER", setString(func(c *Config) *string { return &c.Embedding.Provider })},
	{"EMBEDDING_MODEL", setString(func(c *Config) *string { return &c.Embedding.Model })},
	{"EMBEDDING_DIMENSIONS", setInt(func(c *Config) *int { return &c.Embedding.Dimensions })},
	{"EMBEDDING_API_KEY", setString(func(c *Config) *string { return &c.Embedding.APIKey })},
	{"EMBEDDING_ENDPOINT", setString(func(c *Config) *string { return &c.Embedding.Endpoint })},
	{"EMBEDDING_RPS", setFloat64(func(c *Config) *float64 { return &c.Embedding.RequestsPerSecond })},
	{"EMBEDDING_BURST", setInt(func(c *Config) *int { return &c.Embedding.Burst })},
	{"MEMORY_BACKEND", setString(func(c *Config) *string { return &c.Memory.Backend })},
	{"MEMORY_COLLECTION", setString(func(c *Config) *string { return &c.Memory.Collection })},
	{"MEMORY_PAGE_LIMIT", setInt(func(c *Config) *int { return &c.Memory.PageLimit })},
	{"MEMORY_CLEAR_LIMIT", setInt(func(c *Config) *int { return &c.Memory.ClearLimit })},
	{"MEMORY_MIN_RELEVANCE", setFloat32(func(c *Config) *float32 { return &c.Memory.MinRelevance })},
	{"MEMORY_SEARCH_LIMIT", setInt(func(c *Config) *int { return &c.Memory.SearchLimit })},
	{"DOCUMENT_SOURCE", setString(func(c *Config) *string { return &c.Source.Backend })},
	{"MONGO_URI", setString(func(c *Config) *string { return &c.Source.Mongo.URI })},
	{"MONGO_DATABASE", setString(func(c *Config) *string { return &c.Source.Mongo.Database })},
	{"MONGO_COLLECTION", setString(func(c *Config) *string { return &c.Source.Mongo.Collection })},
	{"SQLITE_PATH", setString(func(c *Config) *string { return &c.Source.SQLite.Path })},
	{"QDRANT_HOST", setString(func(c *Config) *string { return &c.Qdrant.Host })},
	{"QDRANT_PORT", setInt(func(c *Config) *int { return &c.Qdrant.Port })},
	{"QDRANT_API_KEY", setString(func(c *Config) *string { return &c.Qdrant.APIKey })},
	{"QDRANT_TLS", setBool(func(c *Config) *bool { return &c.Qdrant.TLS })},
	{"REDIS_ADDR", setString(func(c *Config) *string { return &c.Redis.Addr })},
	{"REDIS_PASSWORD", setString(func(c *Config) *string { return &c.Redis.Password })},
	{"REDIS_DB", setInt(func(c *Config) *int { return &c.Redis.DB })},
	{"SERVER_HOST", setString(func(c *Config) *string { return &c.Server.Host })},
	{"SERVER_PORT", setInt(func(c *Config) *int { return &c.Server.Port })},
	{"MOVIECHAT_API_KEY", setString(func(c *Config) *string { return &c.Server.APIKey })},
	{"SERVER_RATE_LIMIT", setFloat64(func(c *Config) *float64 { return &c.Server.RateLimit })},
	{"SERVER_RATE_BURST", setInt(func(c *Config) *int { return &c.Server.RateBurst })},
	{"LOG_LEVEL", setString(func(c *Config) *string { return &c.Logging.Level })},
	{"LOG_FORMAT", setString(func(c *Config) *string { return &c.Logging.Format })},
	{"LANGFUSE_PUBLIC_KEY", setString(func(c *Config) *string { return &c.Tracing.PublicKey })},
	{"LANGFUSE_SECRET_KEY", setString(func(c *Config) *string { return &c.Tracing.SecretKey })},
	{"LANGFUSE_HOST", setString(func(c *Config) *string { return &c.Tracing.Host })},
}

// Load resolves the configuration. A .env file in the working directory is
// loaded first (existing env vars are never overwritten by it), then the YAML
// file is layered over Default, then env vars are applied on top.
// Returns the resolved config and the YAML path that was loaded, or an empty
// path if no file was found.
func Load(explicitPath string, log *slog.Logger) (*Config, string, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug("config: loaded .env file")
	}

	cfg := Default()

	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using defaults and env vars")
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	applied, err := applyEnv(cfg)
	if err != nil {
		return nil, "", err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	log.Info("config: resolved",
		slog.String("path", path),
		slog.Int("env_keys_applied", applied),
	)

	return cfg, path, nil
}

// applyEnv overlays non-empty env vars onto cfg and returns how many were applied.
func applyEnv(cfg *Config) (int, error) {
	applied := 0
	for _, b := range envBindings {
		v := os.Getenv(b.envKey)
		if v == "" {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return applied, fmt.Errorf("config: invalid %s=%q: %w", b.envKey, v, err)
		}
		applied++
	}
	return applied, nil
}

// Validate checks the values that would otherwise fail deep inside a
// component with a less helpful error.
func (c *Config) Validate() error {
	if c.Memory.Collection == "" {
		return fmt.Errorf("config: memory.collection must not be empty")
	}
	if c.Memory.PageLimit <= 0 {
		return fmt.Errorf("config: memory.page_limit must be positive, got %d", c.Memory.PageLimit)
	}
	if c.Memory.ClearLimit <= 0 {
		return fmt.Errorf("config: memory.clear_limit must be positive, got %d", c.Memory.ClearLimit)
	}
	if c.Memory.MinRelevance < -1 || c.Memory.MinRelevance > 1 {
		return fmt.Errorf("config: memory.min_relevance must be within [-1, 1], got %v", c.Memory.MinRelevance)
	}
	switch c.Memory.Backend {
	case "volatile", "qdrant", "redis":
	default:
		return fmt.Errorf("config: unknown memory.backend %q (valid values: volatile, qdrant, redis)", c.Memory.Backend)
	}
	switch c.Source.Backend {
	case "mongo", "sqlite":
	default:
		return fmt.Errorf("config: unknown source.backend %q (valid values: mongo, sqlite)", c.Source.Backend)
	}
	return nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("MOVIECHAT_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".moviechat", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("moviechat.yaml"); err == nil {
		return "moviechat.yaml"
	}

	return ""
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		i, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = i
		return nil
	}
}

func setFloat32(field func(*Config) *float32) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return err
		}
		*field(c) = float32(f)
		return nil
	}
}

func setFloat64(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}
