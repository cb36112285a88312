package tools

import (
	"context"

	"github.com/tailabs/mcp-relay/internal/instance"
	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

func NewChatTool() mcp.Tool {
	return mcp.NewTool(string(Chat),
		mcp.WithDescription("Handle chat messages and record them in the conversation history."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The chat message."),
		),
	)
}

// ChatTool replies deterministically and records both turns.
type ChatTool struct {
	Conversation *instance.Conversation
}

func (t *ChatTool) GetTool() mcp.Tool {
	return NewChatTool()
}

func (t *ChatTool) GetHandler() registry.Handler {
	return t.handle
}

func (t *ChatTool) handle(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return "", err
	}

	reply := "Chat: " + message
	t.Conversation.Exchange(message, reply)

	logrus.WithField("history_length", t.Conversation.Len()).Debug("Chat message recorded")
	return reply, nil
}
