package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tailabs/mcp-relay/internal/wsproto"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

type Transport string

const (
	TransportHTTP      Transport = "http-tool-protocol"
	TransportWebSocket Transport = "raw-websocket"
)

const (
	clientName    = "mcp-relay"
	clientVersion = "0.1.0"
)

// Session is a live connection to one tool server.
type Session interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, params map[string]any) (string, error)
	ReadResource(ctx context.Context, uri string) (string, error)
	Close() error
}

// Dialer opens a session to rawURL over the given transport.
type Dialer func(ctx context.Context, transport Transport, rawURL string) (Session, error)

// TransportFor picks the transport from the URL scheme.
func TransportFor(rawURL string) (Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return TransportHTTP, nil
	case "ws", "wss":
		return TransportWebSocket, nil
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
}

// DefaultDialer dials MCP streamable HTTP servers with mcp-go and WebSocket
// servers with wsproto.
func DefaultDialer(ctx context.Context, transport Transport, rawURL string) (Session, error) {
	switch transport {
	case TransportHTTP:
		return dialHTTP(ctx, rawURL)
	case TransportWebSocket:
		c, err := wsproto.Dial(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return &wsSession{c: c}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

type httpSession struct {
	c *client.Client
}

func dialHTTP(ctx context.Context, rawURL string) (*httpSession, error) {
	c, err := client.NewStreamableHttpClient(rawURL)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("starting client: %w", err)
	}

	_, err = c.Initialize(ctx, mcp.InitializeRequest{Params: mcp.InitializeParams{
		ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
		ClientInfo:      mcp.Implementation{Name: clientName, Version: clientVersion},
	}})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initializing: %w", err)
	}
	return &httpSession{c: c}, nil
}

func (s *httpSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	res, err := s.c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	return res.Tools, nil
}

func (s *httpSession) CallTool(ctx context.Context, name string, params map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = params

	res, err := s.c.CallTool(ctx, req)
	if err != nil {
		return "", err
	}
	if res.IsError {
		return "", &ToolError{Tool: name, Message: Normalize(res.Content)}
	}
	return Normalize(res.Content), nil
}

func (s *httpSession) ReadResource(ctx context.Context, uri string) (string, error) {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri

	res, err := s.c.ReadResource(ctx, req)
	if err != nil {
		return "", err
	}
	return Normalize(res.Contents), nil
}

func (s *httpSession) Close() error {
	return s.c.Close()
}

type wsSession struct {
	c *wsproto.Client
}

func (s *wsSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return s.c.ListTools(ctx)
}

func (s *wsSession) CallTool(ctx context.Context, name string, params map[string]any) (string, error) {
	out, err := s.c.CallTool(ctx, name, params)
	var remote *wsproto.RemoteError
	if errors.As(err, &remote) {
		return "", &ToolError{Tool: name, Message: remote.Message}
	}
	return out, err
}

func (s *wsSession) ReadResource(ctx context.Context, uri string) (string, error) {
	out, err := s.c.ReadResource(ctx, uri)
	var remote *wsproto.RemoteError
	if errors.As(err, &remote) {
		return "", &ToolError{Message: remote.Message}
	}
	return out, err
}

func (s *wsSession) Close() error {
	return s.c.Close()
}
