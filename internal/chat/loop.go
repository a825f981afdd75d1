// Package chat runs the interactive console conversation: read a line,
// complete it against the agent, print the reply, repeat until end of input.
package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/moviechat-go/internal/logging"
)

const (
	// UserPrompt is written before each line of input is read.
	UserPrompt = "User > "
	// AssistantPrefix precedes every printed reply.
	AssistantPrefix = "Assistant > "
)

// State is the loop's position in the read/complete cycle.
type State int

const (
	AwaitingInput State = iota
	AwaitingCompletion
	Terminal
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case AwaitingCompletion:
		return "awaiting_completion"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Complete(ctx context.Context, history []*schema.Message) (*schema.Message, error)
}

// Loop owns the conversation history for one console session.
type Loop struct {
	completer Completer
	in        *bufio.Reader
	out       io.Writer

	state   State
	history []*schema.Message
}

// New returns a Loop reading from in and writing prompts and replies to out.
func New(completer Completer, in io.Reader, out io.Writer) (*Loop, error) {
	if completer == nil {
		return nil, fmt.Errorf("chat: completer must not be nil")
	}
	return &Loop{
		completer: completer,
		in:        bufio.NewReader(in),
		out:       out,
		state:     AwaitingInput,
	}, nil
}

// State reports the current state.
func (l *Loop) State() State { return l.state }

// History returns a copy of the conversation so far.
func (l *Loop) History() []*schema.Message {
	return append([]*schema.Message(nil), l.history...)
}

// Run drives the loop until input ends (nil error), ctx is cancelled, or the
// completer fails. Completer errors are returned unchanged in meaning and end
// the session.
func (l *Loop) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)

	for l.state != Terminal {
		if err := ctx.Err(); err != nil {
			l.state = Terminal
			return err
		}

		switch l.state {
		case AwaitingInput:
			line, ok, err := l.readLine()
			if err != nil {
				l.state = Terminal
				return err
			}
			if !ok {
				log.Debug("chat: end of input")
				l.state = Terminal
				continue
			}
			l.history = append(l.history, schema.UserMessage(line))
			l.state = AwaitingCompletion

		case AwaitingCompletion:
			reply, err := l.completer.Complete(ctx, l.History())
			if err != nil {
				l.state = Terminal
				return fmt.Errorf("chat: completion failed: %w", err)
			}
			content := ""
			if reply != nil {
				content = reply.Content
			}
			if _, err := fmt.Fprintf(l.out, "%s%s\n", AssistantPrefix, content); err != nil {
				l.state = Terminal
				return fmt.Errorf("chat: write reply: %w", err)
			}
			l.history = append(l.history, schema.AssistantMessage(content, nil))
			log.Debug("chat: turn complete", slog.Int("history", len(l.history)))
			l.state = AwaitingInput
		}
	}
	return nil
}

// readLine writes the prompt and reads one line. ok is false at end of input.
// A final line without a trailing newline is still returned.
func (l *Loop) readLine() (string, bool, error) {
	if _, err := io.WriteString(l.out, UserPrompt); err != nil {
		return "", false, fmt.Errorf("chat: write prompt: %w", err)
	}
	line, err := l.in.ReadString('\n')
	if errors.Is(err, io.EOF) {
		if line == "" {
			return "", false, nil
		}
		return strings.TrimRight(line, "\r"), true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("chat: read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}
