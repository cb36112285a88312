// Package wsproto implements the JSON-over-WebSocket tool protocol: one text
// frame per request, answered by exactly one frame.
package wsproto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	TypeMessage      = "message"
	TypeToolCall     = "tool_call"
	TypeToolResult   = "tool_result"
	TypeListTools    = "list_tools"
	TypeTools        = "tools"
	TypeReadResource = "read_resource"
	TypeResource     = "resource"
	TypeError        = "error"
)

var ErrMalformedMessage = errors.New("malformed message")

// Frame is the envelope of every message in both directions. Only the fields
// relevant to Type are set.
type Frame struct {
	Type       string         `json:"type"`
	Content    string         `json:"content,omitempty"`
	Name       string         `json:"name,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	URI        string         `json:"uri,omitempty"`
	Tools      []mcp.Tool     `json:"tools,omitempty"`
}

// Decode parses one frame. Anything that is not a JSON object with a string
// "type" field is reported as ErrMalformedMessage.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return f, nil
}

func Encode(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

func errorFrame(content string) Frame {
	return Frame{Type: TypeError, Content: content}
}

// RemoteError is an error frame received from the peer.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "remote error: " + e.Message
}
