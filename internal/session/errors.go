package session

import (
	"errors"
	"fmt"
)

var ErrNotConnected = errors.New("not connected")

// TransportError reports a failure to reach or talk to a remote server.
type TransportError struct {
	Alias string
	Op    string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Alias, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ToolError is a tool failure reported by the remote server itself.
type ToolError struct {
	Alias   string
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("server %q: %s", e.Alias, e.Message)
	}
	return fmt.Sprintf("tool %s on %q: %s", e.Tool, e.Alias, e.Message)
}
