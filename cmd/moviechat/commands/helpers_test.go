package commands

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/54b3r/moviechat-go/internal/config"
	"github.com/54b3r/moviechat-go/internal/ingestion"
	"github.com/54b3r/moviechat-go/internal/rag"
)

func TestOpenStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mutate     func(c *config.Config)
		wantPinger string
		wantErr    string
	}{
		{"volatile", func(c *config.Config) {}, "", ""},
		{"redis", func(c *config.Config) { c.Memory.Backend = "redis" }, "redis", ""},
		{"qdrant without dimensions", func(c *config.Config) {
			c.Memory.Backend = "qdrant"
			c.Embedding.Dimensions = 0
		}, "", "EMBEDDING_DIMENSIONS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tt.mutate(cfg)

			store, pinger, err := openStore(cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error: got %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("openStore: %v", err)
			}
			defer store.Close()

			gotPinger := ""
			if pinger != nil {
				gotPinger = pinger.Name()
			}
			if gotPinger != tt.wantPinger {
				t.Errorf("pinger: got %q, want %q", gotPinger, tt.wantPinger)
			}
			if tt.name == "volatile" {
				if _, ok := store.(*rag.VolatileStore); !ok {
					t.Errorf("store: got %T, want *rag.VolatileStore", store)
				}
			}
		})
	}
}

func TestEmbedderPinger(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if p := embedderPinger(cfg); p == nil || p.Name() != "ollama" {
		t.Errorf("default config should probe ollama, got %v", p)
	}

	cfg.Embedding.Provider = "openai"
	if p := embedderPinger(cfg); p != nil {
		t.Errorf("hosted embedder should not be probed, got %s", p.Name())
	}
}

func TestSummarise(t *testing.T) {
	t.Parallel()

	got := summarise(&ingestion.Report{
		Cleared:   3,
		Attempted: 5,
		Saved:     4,
		Failures:  []ingestion.Failure{{ID: "x", Err: errors.New("boom")}},
	})
	want := "Cleared 3, saved 4 of 5 movies (1 failed)"
	if got != want {
		t.Errorf("summarise() = %q, want %q", got, want)
	}
}

func TestVersionCmd_SkipsConfig(t *testing.T) {
	t.Setenv("MEMORY_BACKEND", "not-a-backend")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "moviechat ") {
		t.Errorf("output: got %q", out.String())
	}
}
