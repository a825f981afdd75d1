// Package tools holds the tools the chat model may call and the registry
// that exposes them to the agent. Every tool implements eino's
// tool.InvokableTool so the registry's contents can be handed straight to a
// ReAct tools node.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/tool"
)

// ErrToolNotFound is returned by Invoke for a name nothing was registered under.
var ErrToolNotFound = errors.New("tools: tool not found")

// Registry maps tool names to tools. Registration order is preserved.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]tool.InvokableTool
	order  []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]tool.InvokableTool)}
}

// Register adds t under the name reported by its Info. Registering a second
// tool with the same name fails.
func (r *Registry) Register(t tool.InvokableTool) error {
	info, err := t.Info(context.Background())
	if err != nil {
		return fmt.Errorf("tools: read tool info: %w", err)
	}
	if info.Name == "" {
		return fmt.Errorf("tools: tool has an empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[info.Name]; dup {
		return fmt.Errorf("tools: %q is already registered", info.Name)
	}
	r.byName[info.Name] = t
	r.order = append(r.order, info.Name)
	return nil
}

// Tools returns the registered tools in registration order, typed for
// compose.ToolsNodeConfig.
func (r *Registry) Tools() []tool.BaseTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tool.BaseTool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Invoke runs the named tool with JSON-encoded arguments.
func (r *Registry) Invoke(ctx context.Context, name, argsJSON string) (string, error) {
	r.mu.RLock()
	t, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return t.InvokableRun(ctx, argsJSON)
}
