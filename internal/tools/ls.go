package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tailabs/mcp-relay/internal/instance"
	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/mark3labs/mcp-go/mcp"
)

func NewLsTool() mcp.Tool {
	return mcp.NewTool(string(Ls),
		mcp.WithDescription("List contents of a directory."),
		mcp.WithString("path",
			mcp.DefaultString("."),
			mcp.Description("Directory to list, relative to the current directory."),
		),
	)
}

// LsTool lists directories relative to the instance's workspace cursor.
type LsTool struct {
	Workspace *instance.Workspace
}

func (t *LsTool) GetTool() mcp.Tool {
	return NewLsTool()
}

func (t *LsTool) GetHandler() registry.Handler {
	return t.handle
}

func (t *LsTool) handle(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	path := request.GetString("path", ".")
	full := t.Workspace.Resolve(path)

	if err := instance.CheckDir(full); err != nil {
		return pathErrorText(path, err)
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var b strings.Builder
	fmt.Fprintf(&b, "Contents of %s:\n", path)
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&b, "📁 %s/\n", entry.Name())
		} else {
			fmt.Fprintf(&b, "📄 %s\n", entry.Name())
		}
	}
	return b.String(), nil
}

// pathErrorText turns a workspace path error into the user-facing message,
// quoting the path as the caller wrote it.
func pathErrorText(path string, err error) (string, error) {
	var pathErr *instance.PathError
	if !errors.As(err, &pathErr) {
		return "", err
	}
	if pathErr.NotExist {
		return fmt.Sprintf("Error: Path '%s' does not exist", path), nil
	}
	return fmt.Sprintf("Error: '%s' is not a directory", path), nil
}
