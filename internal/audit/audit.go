// Package audit provides a structured audit logger for CLI command invocations.
// It logs the command name, the config file it resolved, and the effective
// settings so operators can trace a run without exposing secret values.
//
// Secrets are logged as presence/absence only, never their values.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/54b3r/moviechat-go/internal/config"
)

// auditEntry is one setting included in the audit log.
type auditEntry struct {
	// key is the env var name the setting is bound to.
	key string
	// value extracts the effective value from the resolved config.
	value func(c *config.Config) string
	// secret indicates the value should be redacted to presence/absence.
	secret bool
}

// auditKeys is the ordered list of settings included in every audit entry.
var auditKeys = []auditEntry{
	{"MODEL_PROVIDER", func(c *config.Config) string { return c.Model.Provider }, false},
	{"OLLAMA_HOST", func(c *config.Config) string { return c.Model.Ollama.Host }, false},
	{"OLLAMA_MODEL", func(c *config.Config) string { return c.Model.Ollama.Model }, false},
	{"OPENAI_API_KEY", func(c *config.Config) string { return c.Model.OpenAI.APIKey }, true},
	{"AZURE_OPENAI_API_KEY", func(c *config.Config) string { return c.Model.Azure.APIKey }, true},
	{"AZURE_OPENAI_ENDPOINT", func(c *config.Config) string { return c.Model.Azure.Endpoint }, false},
	{"ARK_API_KEY", func(c *config.Config) string { return c.Model.Ark.APIKey }, true},
	{"GOOGLE_API_KEY", func(c *config.Config) string { return c.Model.Gemini.APIKey }, true},
	{"EMBEDDING_PROVIDER", func(c *config.Config) string { return c.Embedding.Provider }, false},
	{"EMBEDDING_MODEL", func(c *config.Config) string { return c.Embedding.Model }, false},
	{"EMBEDDING_API_KEY", func(c *config.Config) string { return c.Embedding.APIKey }, true},
	{"MEMORY_BACKEND", func(c *config.Config) string { return c.Memory.Backend }, false},
	{"MEMORY_COLLECTION", func(c *config.Config) string { return c.Memory.Collection }, false},
	{"MEMORY_PAGE_LIMIT", func(c *config.Config) string { return strconv.Itoa(c.Memory.PageLimit) }, false},
	{"DOCUMENT_SOURCE", func(c *config.Config) string { return c.Source.Backend }, false},
	{"MONGO_URI", func(c *config.Config) string { return c.Source.Mongo.URI }, true},
	{"MONGO_DATABASE", func(c *config.Config) string { return c.Source.Mongo.Database }, false},
	{"SQLITE_PATH", func(c *config.Config) string { return c.Source.SQLite.Path }, false},
	{"QDRANT_HOST", func(c *config.Config) string { return c.Qdrant.Host }, false},
	{"QDRANT_API_KEY", func(c *config.Config) string { return c.Qdrant.APIKey }, true},
	{"REDIS_ADDR", func(c *config.Config) string { return c.Redis.Addr }, false},
	{"REDIS_PASSWORD", func(c *config.Config) string { return c.Redis.Password }, true},
	{"MOVIECHAT_API_KEY", func(c *config.Config) string { return c.Server.APIKey }, true},
	{"LOG_LEVEL", func(c *config.Config) string { return c.Logging.Level }, false},
	{"LANGFUSE_PUBLIC_KEY", func(c *config.Config) string { return c.Tracing.PublicKey }, true},
	{"LANGFUSE_SECRET_KEY", func(c *config.Config) string { return c.Tracing.SecretKey }, true},
}

// LogCommandStart emits a structured audit log entry when a CLI command begins.
// Mongo URIs are treated as secrets because they routinely embed credentials.
func LogCommandStart(log *slog.Logger, command string, configPath string, cfg *config.Config) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	}

	for _, entry := range auditKeys {
		val := entry.value(cfg)
		if entry.secret {
			attrs = append(attrs, slog.String(entry.key, presence(val)))
		} else {
			attrs = append(attrs, slog.String(entry.key, valOrUnset(val)))
		}
	}

	log.LogAttrs(context.TODO(), slog.LevelInfo, "audit: command start", attrs...)
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// sanitiseConfigPath returns the config path or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	// Redact home directory for privacy in logs.
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
