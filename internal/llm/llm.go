// Package llm defines the text completion contract used by the agents and
// its provider implementations.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 30 * time.Second

// ErrDisabled is returned when no language model is configured.
var ErrDisabled = errors.New("llm: no language model configured")

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prompt message.
type Message struct {
	Role    Role
	Content string
}

// System, User and Assistant build messages.
func System(s string) Message    { return Message{Role: RoleSystem, Content: s} }
func User(s string) Message      { return Message{Role: RoleUser, Content: s} }
func Assistant(s string) Message { return Message{Role: RoleAssistant, Content: s} }

// Completer turns prompt messages into text. Calls are stateless and not
// guaranteed to be deterministic.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, messages []Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

// Disabled always fails with ErrDisabled.
type Disabled struct{}

func (Disabled) Complete(context.Context, []Message) (string, error) { return "", ErrDisabled }

// WithTimeout bounds every call to c by d.
func WithTimeout(c Completer, d time.Duration) Completer {
	if d <= 0 {
		d = DefaultTimeout
	}
	return CompleterFunc(func(ctx context.Context, messages []Message) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		out, err := c.Complete(ctx, messages)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(out) == "" {
			return "", fmt.Errorf("llm: empty completion")
		}
		return out, nil
	})
}

// splitSystem joins system messages and returns the rest in order.
func splitSystem(messages []Message) (string, []Message) {
	var sys []string
	var rest []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(sys, "\n\n"), rest
}
