package tools

import (
	"context"

	"github.com/tailabs/mcp-relay/internal/instance"
	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

func NewCdTool() mcp.Tool {
	return mcp.NewTool(string(Cd),
		mcp.WithDescription("Change current directory."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Directory to change to, relative to the current directory."),
		),
	)
}

type CdTool struct {
	Workspace *instance.Workspace
}

func (t *CdTool) GetTool() mcp.Tool {
	return NewCdTool()
}

func (t *CdTool) GetHandler() registry.Handler {
	return t.handle
}

func (t *CdTool) handle(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return "", err
	}

	dir, err := t.Workspace.Change(path)
	if err != nil {
		return pathErrorText(path, err)
	}
	logrus.WithField("cwd", dir).Info("Working directory changed")
	return "Changed directory to: " + dir, nil
}
