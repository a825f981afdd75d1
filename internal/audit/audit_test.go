package audit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/54b3r/moviechat-go/internal/config"
)

func TestLogCommandStart_RedactsSecrets(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Model.OpenAI.APIKey = "sk-abc123"
	cfg.Source.Mongo.URI = "mongodb://user:hunter2@db:27017"
	cfg.Memory.Collection = "films"

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	LogCommandStart(log, "chat", "", cfg)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("audit output is not JSON: %v", err)
	}

	want := map[string]string{
		"command":              "chat",
		"config_file":          "none",
		"OPENAI_API_KEY":       "set",
		"AZURE_OPENAI_API_KEY": "unset",
		"MONGO_URI":            "set",
		"MEMORY_COLLECTION":    "films",
		"MEMORY_PAGE_LIMIT":    "50",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s: got %v, want %q", k, rec[k], v)
		}
	}
	if bytes.Contains(buf.Bytes(), []byte("hunter2")) || bytes.Contains(buf.Bytes(), []byte("sk-abc123")) {
		t.Errorf("secret value leaked into audit log: %s", buf.String())
	}
}

func TestPresence(t *testing.T) {
	t.Parallel()
	if got := presence("something"); got != "set" {
		t.Errorf("expected 'set', got %q", got)
	}
	if got := presence(""); got != "unset" {
		t.Errorf("expected 'unset', got %q", got)
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()
	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := sanitiseConfigPath("/tmp/config.yaml"); got != "/tmp/config.yaml" {
		t.Errorf("expected '/tmp/config.yaml', got %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		p := home + "/.moviechat/config.yaml"
		if got := sanitiseConfigPath(p); got != "~/.moviechat/config.yaml" {
			t.Errorf("expected '~/.moviechat/config.yaml', got %q", got)
		}
	}
}
