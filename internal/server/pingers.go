package server

import (
	"context"
	"fmt"
)

// funcPinger adapts a plain probe function to the Pinger interface.
type funcPinger struct {
	name string
	fn   func(ctx context.Context) error
}

// NewPinger returns a Pinger named name that runs fn. Every backing client
// in this module (Ollama, MongoDB, Qdrant, Redis) exposes a
// Ping(ctx) error method, so callers usually pass a method value.
func NewPinger(name string, fn func(ctx context.Context) error) Pinger {
	return &funcPinger{name: name, fn: fn}
}

// Name returns the dependency label used in readiness responses.
func (p *funcPinger) Name() string { return p.name }

// Ping runs the probe and prefixes failures with a short description.
func (p *funcPinger) Ping(ctx context.Context) error {
	if err := p.fn(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
