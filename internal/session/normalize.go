package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Normalize renders a remote reply as a plain string. Text content is
// unwrapped, lists and maps are JSON encoded, anything else uses its default
// string form.
func Normalize(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case mcp.TextContent:
		return val.Text
	case *mcp.TextContent:
		return val.Text
	case mcp.TextResourceContents:
		return val.Text
	case *mcp.TextResourceContents:
		return val.Text
	case []mcp.Content:
		parts := make([]string, 0, len(val))
		for _, c := range val {
			parts = append(parts, Normalize(c))
		}
		return strings.Join(parts, "\n")
	case []mcp.ResourceContents:
		parts := make([]string, 0, len(val))
		for _, c := range val {
			parts = append(parts, Normalize(c))
		}
		return strings.Join(parts, "\n")
	case fmt.Stringer:
		return val.String()
	case []any, map[string]any, mcp.Content, mcp.ResourceContents:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
