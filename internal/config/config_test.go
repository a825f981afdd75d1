package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// clearEnv unsets every bound env var for the duration of the test so the
// developer's shell does not leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, b := range envBindings {
		t.Setenv(b.envKey, "")
		os.Unsetenv(b.envKey)
	}
	t.Setenv("MOVIECHAT_CONFIG", "")
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, path, err := Load("/nonexistent/path/config.yaml", slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
	if cfg.Memory.Collection != "embedded_movies" {
		t.Errorf("Memory.Collection: got %q, want %q", cfg.Memory.Collection, "embedded_movies")
	}
	if cfg.Memory.PageLimit != 50 {
		t.Errorf("Memory.PageLimit: got %d, want 50", cfg.Memory.PageLimit)
	}
	if cfg.Memory.MinRelevance != 0.1 {
		t.Errorf("Memory.MinRelevance: got %v, want 0.1", cfg.Memory.MinRelevance)
	}
	if cfg.Model.Ollama.Model != "llama3-groq-tool-use:latest" {
		t.Errorf("Model.Ollama.Model: got %q", cfg.Model.Ollama.Model)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: azure
  max_tokens: 8192
  temperature: 0.3
  azure:
    endpoint: https://my-resource.openai.azure.com
    deployment: gpt-4o
    api_version: "2025-04-01-preview"
embedding:
  provider: ollama
  model: nomic-embed-text
  dimensions: 768
memory:
  backend: qdrant
  collection: films
  page_limit: 10
source:
  backend: sqlite
  sqlite:
    path: /tmp/films.db
qdrant:
  host: qdrant.internal
  port: 6334
logging:
  level: debug
  format: text
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, loaded, err := Load(cfgPath, slog.Default())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"Model.Provider", cfg.Model.Provider, "azure"},
		{"Model.MaxTokens", cfg.Model.MaxTokens, 8192},
		{"Model.Azure.Endpoint", cfg.Model.Azure.Endpoint, "https://my-resource.openai.azure.com"},
		{"Model.Azure.APIVersion", cfg.Model.Azure.APIVersion, "2025-04-01-preview"},
		{"Embedding.Model", cfg.Embedding.Model, "nomic-embed-text"},
		{"Embedding.Dimensions", cfg.Embedding.Dimensions, 768},
		{"Memory.Backend", cfg.Memory.Backend, "qdrant"},
		{"Memory.Collection", cfg.Memory.Collection, "films"},
		{"Memory.PageLimit", cfg.Memory.PageLimit, 10},
		// Fields absent from the file keep their defaults.
		{"Memory.ClearLimit", cfg.Memory.ClearLimit, 1000},
		{"Source.Backend", cfg.Source.Backend, "sqlite"},
		{"Source.SQLite.Path", cfg.Source.SQLite.Path, "/tmp/films.db"},
		{"Source.Mongo.Database", cfg.Source.Mongo.Database, "sample_mflix"},
		{"Qdrant.Host", cfg.Qdrant.Host, "qdrant.internal"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
		{"Logging.Format", cfg.Logging.Format, "text"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: ollama
memory:
  collection: from-yaml
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MODEL_PROVIDER", "azure")
	t.Setenv("MEMORY_COLLECTION", "from-env")
	t.Setenv("MEMORY_MIN_RELEVANCE", "0.25")

	cfg, _, err := Load(cfgPath, slog.Default())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Model.Provider != "azure" {
		t.Errorf("Model.Provider: expected env override %q, got %q", "azure", cfg.Model.Provider)
	}
	if cfg.Memory.Collection != "from-env" {
		t.Errorf("Memory.Collection: expected env override %q, got %q", "from-env", cfg.Memory.Collection)
	}
	if cfg.Memory.MinRelevance != 0.25 {
		t.Errorf("Memory.MinRelevance: got %v, want 0.25", cfg.Memory.MinRelevance)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Load(cfgPath, slog.Default()); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_InvalidEnvNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEMORY_PAGE_LIMIT", "fifty")

	if _, _, err := Load("", slog.Default()); err == nil {
		t.Fatal("expected error for non-numeric MEMORY_PAGE_LIMIT")
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty collection", func(c *Config) { c.Memory.Collection = "" }, true},
		{"zero page limit", func(c *Config) { c.Memory.PageLimit = 0 }, true},
		{"negative clear limit", func(c *Config) { c.Memory.ClearLimit = -1 }, true},
		{"relevance above one", func(c *Config) { c.Memory.MinRelevance = 1.5 }, true},
		{"relevance minus one", func(c *Config) { c.Memory.MinRelevance = -1 }, false},
		{"unknown memory backend", func(c *Config) { c.Memory.Backend = "faiss" }, true},
		{"redis backend", func(c *Config) { c.Memory.Backend = "redis" }, false},
		{"unknown source backend", func(c *Config) { c.Source.Backend = "postgres" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
