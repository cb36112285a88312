package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// CatalogueEntry is one tool of one connected server, named "<alias>.<tool>".
type CatalogueEntry struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	InputSchema mcp.ToolInputSchema `json:"input_schema"`
}

// Catalogue lists the tools of every connected alias. Aliases whose tools
// cannot be listed are skipped.
func (r *Relay) Catalogue(ctx context.Context) []CatalogueEntry {
	return lo.FlatMap(r.sessions.Aliases(), func(alias string, _ int) []CatalogueEntry {
		tools, err := r.sessions.ListTools(ctx, alias)
		if err != nil {
			logrus.WithField("alias", alias).WithError(err).Warn("Skipping server in tool catalogue")
			return nil
		}
		return lo.Map(tools, func(tool mcp.Tool, _ int) CatalogueEntry {
			return CatalogueEntry{
				Name:        alias + "." + tool.Name,
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			}
		})
	})
}

func systemPrompt(entries []CatalogueEntry) string {
	var b strings.Builder
	b.WriteString("You are an assistant connected to a set of tool servers.\n")
	if len(entries) == 0 {
		b.WriteString("No tools are currently available. Answer the user directly.\n")
		return b.String()
	}

	b.WriteString("When a tool can answer the user's request, respond with a single JSON object and nothing else:\n")
	b.WriteString(`{"tool": "<server>.<toolName>", "parameters": {...}}`)
	b.WriteString("\nOtherwise answer the user directly in plain text.\n\nAvailable tools:\n")

	catalogue, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		// Schemas come from decoded JSON, so this only happens on a broken server reply.
		for _, e := range entries {
			fmt.Fprintf(&b, "- %s: %s\n", e.Name, e.Description)
		}
		return b.String()
	}
	b.Write(catalogue)
	b.WriteString("\n")
	return b.String()
}
