// Package tracing exports agent, model and tool spans to Langfuse through
// Eino's global callback handlers.
package tracing

import (
	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"

	"github.com/54b3r/moviechat-go/internal/config"
)

const defaultHost = "http://localhost:3000"

// Setup builds the Langfuse callback handler when both keys are set. The
// returned flush function must be called before process exit so buffered
// traces are sent. When tracing is not configured it returns nil, nil, false.
func Setup(cfg config.TracingConfig) (callbacks.Handler, func(), bool) {
	if cfg.PublicKey == "" || cfg.SecretKey == "" {
		return nil, nil, false
	}
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
		Name:      "moviechat",
	})
	return handler, flusher, true
}

// Install registers the handler globally when tracing is configured and
// returns the flush function to defer. It is a no-op otherwise.
func Install(cfg config.TracingConfig) func() {
	handler, flush, ok := Setup(cfg)
	if !ok {
		return func() {}
	}
	callbacks.AppendGlobalHandlers(handler)
	return flush
}
