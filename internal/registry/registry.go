package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

type toolEntry struct {
	tool    mcp.Tool
	handler Handler
}

// Registry holds the tools and resources exposed by one server instance.
// Tools keep their registration order.
type Registry struct {
	mu        sync.RWMutex
	order     []ToolName
	tools     map[ToolName]toolEntry
	resources *ResourceRegistry
}

func New() *Registry {
	return &Registry{
		tools:     make(map[ToolName]toolEntry),
		resources: NewResourceRegistry(),
	}
}

// Register validates the tool declaration and adds it under its name.
func (r *Registry) Register(t ToolRegistrar) error {
	tool := t.GetTool()
	if err := validateSchema(tool); err != nil {
		return err
	}
	handler := t.GetHandler()
	if handler == nil {
		return fmt.Errorf("%w: tool %s has no handler", ErrInvalidSchema, tool.Name)
	}

	name := ToolName(tool.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = toolEntry{tool: tool, handler: handler}
	r.order = append(r.order, name)
	return nil
}

// RegisterAll registers every tool, stopping at the first failure.
func (r *Registry) RegisterAll(tools ...ToolRegistrar) error {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Resources returns the resource registry of this instance.
func (r *Registry) Resources() *ResourceRegistry {
	return r.resources
}

// List returns the tool descriptors in registration order.
func (r *Registry) List() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name].tool)
	}
	return tools
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name ToolName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Invoke runs the named tool. Only lookup and parameter validation failures
// are returned as errors; handler failures become "Error: ..." results.
func (r *Registry) Invoke(ctx context.Context, name ToolName, params map[string]any) (string, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	args, err := bindArguments(entry.tool, params)
	if err != nil {
		return "", err
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = string(name)
	request.Params.Arguments = args

	return runHandler(ctx, entry.handler, request), nil
}

func runHandler(ctx context.Context, handler Handler, request mcp.CallToolRequest) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithFields(logrus.Fields{
				"tool":  request.Params.Name,
				"panic": rec,
			}).Error("Tool handler panicked")
			result = fmt.Sprintf("Error: %v", rec)
		}
	}()

	out, err := handler(ctx, request)
	if err != nil {
		logrus.WithField("tool", request.Params.Name).WithError(err).Warn("Tool handler failed")
		return "Error: " + err.Error()
	}
	return out
}

// Mount exports every tool and resource onto an MCP server.
func (r *Registry) Mount(s *server.MCPServer) {
	for _, tool := range r.List() {
		s.AddTool(tool, r.toolHandlerFunc(ToolName(tool.Name)))
	}
	r.resources.Mount(s)
}

func (r *Registry) toolHandlerFunc(name ToolName) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := r.Invoke(ctx, name, request.GetArguments())
		if errors.Is(err, ErrInvalidParameters) || errors.Is(err, ErrUnknownTool) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(result), nil
	}
}
