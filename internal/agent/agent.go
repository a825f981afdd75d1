// Package agent wires an Eino ReAct agent to the movie search tool so the
// chat model can decide, per turn, whether to look up movies before answering.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/moviechat-go/internal/budget"
	"github.com/54b3r/moviechat-go/internal/logging"
	"github.com/54b3r/moviechat-go/internal/metrics"
)

// DefaultSystemPrompt is used when Config.SystemPrompt is empty.
const DefaultSystemPrompt = `You are a friendly movie assistant.

You have one tool, search_information, which searches a small catalogue of
movies by meaning. Each result carries a relevance score, the movie id, and a
description with its title and plot.

When the user asks for suggestions, recommendations or facts about a movie,
call search_information with a short query describing what they want (a genre,
a theme, a title). Base your answer on the returned movies and mention their
titles. If nothing relevant comes back, say so rather than inventing movies.

For small talk you may answer directly without calling the tool.`

// Config holds the dependencies for constructing an Agent.
type Config struct {
	// ChatModel is the tool-calling chat model driving the conversation.
	ChatModel model.ToolCallingChatModel

	// Tools are offered to the model on every turn.
	Tools []tool.BaseTool

	// SystemPrompt is prepended to every request. Defaults to DefaultSystemPrompt.
	SystemPrompt string

	// MaxContextTokens caps the estimated input size. Zero sends the full
	// history untrimmed.
	MaxContextTokens int

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Agent runs one ReAct completion per call over a caller-owned history.
type Agent struct {
	reactAgent       *react.Agent
	systemPrompt     string
	maxContextTokens int
	metrics          *metrics.Metrics
}

// New constructs an Agent from the provided Config.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("agent: ChatModel must not be nil")
	}

	reactAgent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: cfg.ChatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools:               cfg.Tools,
			ToolCallMiddlewares: []compose.ToolMiddleware{{Invokable: toolErrorsAsResults}},
			UnknownToolsHandler: unknownTool,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("agent: failed to create ReAct agent: %w", err)
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	return &Agent{
		reactAgent:       reactAgent,
		systemPrompt:     prompt,
		maxContextTokens: cfg.MaxContextTokens,
		metrics:          cfg.Metrics,
	}, nil
}

// Complete sends the system prompt plus history to the agent and returns the
// final assistant message. history is not modified. A failing tool call is
// reported to the model as {"error": "..."} and the turn continues; errors
// from the model itself are returned.
func (a *Agent) Complete(ctx context.Context, history []*schema.Message) (*schema.Message, error) {
	start := time.Now()
	msg, err := a.complete(ctx, history)
	a.metrics.RecordCompletion(time.Since(start), err)
	return msg, err
}

func (a *Agent) complete(ctx context.Context, history []*schema.Message) (*schema.Message, error) {
	messages := a.buildMessages(ctx, history)

	msg, err := a.reactAgent.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("agent: generate failed: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("agent: generate returned no message")
	}
	return msg, nil
}

// buildMessages returns [system, ...history]. When a token budget is set the
// oldest turns are dropped first; the latest message is always kept.
func (a *Agent) buildMessages(ctx context.Context, history []*schema.Message) []*schema.Message {
	system := schema.SystemMessage(a.systemPrompt)

	if a.maxContextTokens <= 0 || len(history) == 0 {
		out := make([]*schema.Message, 0, 1+len(history))
		out = append(out, system)
		return append(out, history...)
	}

	last := history[len(history)-1]
	prior := history[:len(history)-1]

	trimmed := budget.TrimHistory([]*schema.Message{system, last}, prior, a.maxContextTokens)
	if dropped := len(prior) - len(trimmed); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(trimmed)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	out := make([]*schema.Message, 0, 2+len(trimmed))
	out = append(out, system)
	out = append(out, trimmed...)
	return append(out, last)
}

// toolError is the tool result the model sees when a tool call fails.
type toolError struct {
	Error string `json:"error"`
}

// toolErrorsAsResults reports a failed tool call back to the model as the
// call's result, so one bad argument or backend hiccup does not end the
// conversation. Interrupts still propagate.
func toolErrorsAsResults(next compose.InvokableToolEndpoint) compose.InvokableToolEndpoint {
	return func(ctx context.Context, in *compose.ToolInput) (*compose.ToolOutput, error) {
		out, err := next(ctx, in)
		if err == nil {
			return out, nil
		}
		if _, ok := compose.IsInterruptRerunError(err); ok {
			return nil, err
		}
		logging.FromContext(ctx).Warn("agent: tool call failed",
			slog.String("tool", in.Name),
			slog.String("call_id", in.CallID),
			slog.Any("error", err),
		)
		return &compose.ToolOutput{Result: encodeToolError(err.Error())}, nil
	}
}

// unknownTool answers calls to tools the model invented.
func unknownTool(ctx context.Context, name, _ string) (string, error) {
	logging.FromContext(ctx).Warn("agent: model called unknown tool", slog.String("tool", name))
	return encodeToolError(fmt.Sprintf("unknown tool %q", name)), nil
}

func encodeToolError(msg string) string {
	b, err := json.Marshal(toolError{Error: msg})
	if err != nil {
		return `{"error":"tool call failed"}`
	}
	return string(b)
}
