package responder

import (
	"context"
	"fmt"
	"strings"
)

// DefaultPrefix is prepended to the user's text by Echo
const DefaultPrefix = "Bot reply to: "

// Responder produces the reply text for a user message. A real reply
// service plugs in here without changing the session.
type Responder interface {
	Reply(ctx context.Context, text string) (string, error)
}

// Echo replies with a fixed prefix followed by the original text
type Echo struct {
	Prefix string
}

// New creates an Echo responder. An empty prefix falls back to
// DefaultPrefix.
func New(prefix string) *Echo {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Echo{Prefix: prefix}
}

// Reply returns Prefix + text
func (e *Echo) Reply(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("reply: %w", err)
	}
	var sb strings.Builder
	sb.Grow(len(e.Prefix) + len(text))
	sb.WriteString(e.Prefix)
	sb.WriteString(text)
	return sb.String(), nil
}

// Func adapts a plain function to Responder
type Func func(ctx context.Context, text string) (string, error)

func (f Func) Reply(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}
