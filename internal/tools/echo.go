package tools

import (
	"context"

	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

func NewEchoTool() mcp.Tool {
	return mcp.NewTool(string(Echo),
		mcp.WithDescription("Echo back the input message."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The message to echo back."),
		),
	)
}

// EchoTool returns its message, optionally behind a fixed prefix.
type EchoTool struct {
	Prefix string
}

func (t *EchoTool) GetTool() mcp.Tool {
	return NewEchoTool()
}

func (t *EchoTool) GetHandler() registry.Handler {
	return t.handle
}

func (t *EchoTool) handle(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return "", err
	}
	logrus.WithField("message", message).Debug("Echo tool called")
	return t.Prefix + message, nil
}
