package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// HandlerFunc is a tool body operating on decoded input.
type HandlerFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// TypedTool adapts a HandlerFunc to tool.InvokableTool. The parameter schema
// is declared explicitly in info; In only has to decode from it.
type TypedTool[In, Out any] struct {
	info *schema.ToolInfo
	fn   HandlerFunc[In, Out]
}

// NewTyped wraps fn as an invokable tool described by info.
func NewTyped[In, Out any](info *schema.ToolInfo, fn HandlerFunc[In, Out]) *TypedTool[In, Out] {
	return &TypedTool[In, Out]{info: info, fn: fn}
}

// Info returns the tool metadata including the JSON input schema.
func (t *TypedTool[In, Out]) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.info, nil
}

// InvokableRun decodes argumentsInJSON into In, runs the handler and returns
// Out encoded as JSON. Empty arguments decode as "{}".
func (t *TypedTool[In, Out]) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var in In
	args := strings.TrimSpace(argumentsInJSON)
	if args == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", t.info.Name, err)
	}

	out, err := t.fn(ctx, in)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("%s: encode output: %w", t.info.Name, err)
	}
	return string(b), nil
}
