package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/mark3labs/mcp-go/mcp"
)

const defaultRepeatTimes = 10

func NewRepeatTool() mcp.Tool {
	return mcp.NewTool(string(Repeat),
		mcp.WithDescription("Repeat a message several times, one per line."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The message to repeat."),
		),
		mcp.WithNumber("times",
			mcp.DefaultNumber(defaultRepeatTimes),
			mcp.Min(1),
			mcp.Description("How many times to repeat the message (default: 10)."),
		),
	)
}

func RepeatHandler(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return "", err
	}
	times := request.GetInt("times", defaultRepeatTimes)
	if times < 1 {
		return "", fmt.Errorf("times must be at least 1, got %d", times)
	}

	lines := make([]string, times)
	for i := range lines {
		lines[i] = message
	}
	return fmt.Sprintf("Repeated %d times:\n%s", times, strings.Join(lines, "\n")), nil
}

type RepeatTool struct{}

func (t *RepeatTool) GetTool() mcp.Tool {
	return NewRepeatTool()
}

func (t *RepeatTool) GetHandler() registry.Handler {
	return RepeatHandler
}
