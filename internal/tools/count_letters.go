package tools

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/mark3labs/mcp-go/mcp"
)

func NewCountLettersTool() mcp.Tool {
	return mcp.NewTool(string(CountLetters),
		mcp.WithDescription("Count the number of letters in a word."),
		mcp.WithString("word",
			mcp.Required(),
			mcp.Description("The word to count."),
		),
	)
}

func CountLettersHandler(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	word, err := request.RequireString("word")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("The word '%s' has %d letters", word, utf8.RuneCountInString(word)), nil
}

type CountLettersTool struct{}

func (t *CountLettersTool) GetTool() mcp.Tool {
	return NewCountLettersTool()
}

func (t *CountLettersTool) GetHandler() registry.Handler {
	return CountLettersHandler
}
