package registry

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolName identifies a tool inside a Registry.
type ToolName string

// Handler runs a tool. The returned string is the tool result; a non-nil error
// is rendered by the registry as an "Error: ..." result.
type Handler func(ctx context.Context, request mcp.CallToolRequest) (string, error)

type ToolRegistrar interface {
	GetTool() mcp.Tool
	GetHandler() Handler
}
