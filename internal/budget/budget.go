// Package budget estimates the prompt size of a movie conversation and trims
// the oldest exchanges to fit a context window. Backends tokenize differently,
// so sizes use a character heuristic of roughly 4 characters per token.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// messageOverhead is the per-message framing most chat APIs add.
	messageOverhead = 4

	// toolCallOverhead covers the id and type fields of one tool call.
	toolCallOverhead = 8
)

// Estimate returns a rough token count for s.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessage returns the estimated size of one message. Tool calls count
// their function name and arguments, since search_information round trips
// can outweigh the user's question.
func EstimateMessage(m *schema.Message) int {
	if m == nil {
		return 0
	}
	total := messageOverhead + Estimate(string(m.Role)) + Estimate(m.Content)
	for _, tc := range m.ToolCalls {
		total += toolCallOverhead + Estimate(tc.Function.Name) + Estimate(tc.Function.Arguments)
	}
	return total
}

// EstimateMessages sums EstimateMessage over msgs.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateMessage(m)
	}
	return total
}

// TrimHistory drops whole exchanges from the front of history until fixed
// plus the remainder fits within maxTokens. An exchange starts at a user
// message, so the result never opens with an assistant reply or a tool
// result whose question was dropped. fixed is never trimmed; when it alone
// exceeds maxTokens the result is empty.
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	remaining := maxTokens - EstimateMessages(fixed)
	size := EstimateMessages(history)

	start := 0
	for start < len(history) && size > remaining {
		size -= EstimateMessage(history[start])
		start++
		for start < len(history) && history[start].Role != schema.User {
			size -= EstimateMessage(history[start])
			start++
		}
	}
	return history[start:]
}
