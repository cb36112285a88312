// Package relay dispatches user messages to connected tool servers, either to
// a named server directly or through a language model that picks the tool.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tailabs/mcp-relay/internal/llm"
	"github.com/tailabs/mcp-relay/internal/session"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const chatTool = "chat"

var ErrNoModel = errors.New("no language model configured")

// Relay routes chat messages to the servers held by a session manager.
type Relay struct {
	sessions *session.Manager
	model    llm.Completer
}

func New(sessions *session.Manager, model llm.Completer) *Relay {
	return &Relay{sessions: sessions, model: model}
}

// Sessions returns the connection registry used by the relay.
func (r *Relay) Sessions() *session.Manager {
	return r.sessions
}

// Chat answers message. With a server alias the message goes straight to that
// server; without one the model chooses a tool across all connected servers.
func (r *Relay) Chat(ctx context.Context, message, server string) (string, error) {
	if server != "" {
		return r.Direct(ctx, server, message)
	}
	return r.Broadcast(ctx, message)
}

// Direct sends message to alias. A leading word naming one of its tools
// (other than chat) invokes that tool with the rest of the message; anything
// else goes to the chat tool.
func (r *Relay) Direct(ctx context.Context, alias, message string) (string, error) {
	if !r.sessions.IsConnected(alias) {
		return "", fmt.Errorf("%w: %s", session.ErrNotConnected, alias)
	}

	tools, err := r.sessions.ListTools(ctx, alias)
	if err != nil {
		return "", err
	}
	names := lo.Map(tools, func(t mcp.Tool, _ int) string { return t.Name })

	fields := strings.Fields(message)
	if len(fields) > 0 {
		first := strings.ToLower(fields[0])
		if first != chatTool && lo.Contains(names, first) {
			params := map[string]any{"message": strings.Join(fields[1:], " ")}
			return r.sessions.CallTool(ctx, alias, first, params)
		}
	}
	return r.sessions.CallTool(ctx, alias, chatTool, map[string]any{"message": message})
}

// Broadcast asks the model to pick a tool from the catalogue of every
// connected server. When the reply is not a usable tool call, or the call
// fails, the model's text is returned as is.
func (r *Relay) Broadcast(ctx context.Context, message string) (string, error) {
	if r.model == nil {
		return "", ErrNoModel
	}

	entries := r.Catalogue(ctx)
	reply, err := r.model.Complete(ctx, systemPrompt(entries), message)
	if err != nil {
		return "", err
	}

	call, ok := ParseToolCall(reply)
	if !ok {
		return reply, nil
	}

	l := logrus.WithFields(logrus.Fields{
		"alias": call.Alias,
		"tool":  call.Tool,
	})
	result, err := r.sessions.CallTool(ctx, call.Alias, call.Tool, call.Parameters)
	if err != nil {
		l.WithError(err).Warn("Model-selected tool call failed, returning model reply")
		return reply, nil
	}
	l.Info("Dispatched model-selected tool call")
	return result, nil
}
