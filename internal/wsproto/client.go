package wsproto

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mark3labs/mcp-go/mcp"
)

// Client speaks the WebSocket protocol to a single server. Requests are
// serialized; each waits for its reply frame.
type Client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) roundTrip(ctx context.Context, req Frame) (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, _ := ctx.Deadline()
	_ = c.conn.SetWriteDeadline(deadline)
	_ = c.conn.SetReadDeadline(deadline)

	// Unblock pending reads and writes as soon as ctx is cancelled.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
		_ = c.conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	data, err := Encode(req)
	if err != nil {
		return Frame{}, err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return Frame{}, c.ctxErr(ctx, fmt.Errorf("sending %s: %w", req.Type, err))
	}

	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return Frame{}, c.ctxErr(ctx, fmt.Errorf("awaiting reply to %s: %w", req.Type, err))
	}
	reply, err := Decode(raw)
	if err != nil {
		return Frame{}, err
	}
	if reply.Type == TypeError {
		return Frame{}, &RemoteError{Message: reply.Content}
	}
	return reply, nil
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

func expect(reply Frame, typ string) error {
	if reply.Type != typ {
		return fmt.Errorf("%w: expected %s frame, got %s", ErrMalformedMessage, typ, reply.Type)
	}
	return nil
}

func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	reply, err := c.roundTrip(ctx, Frame{Type: TypeListTools})
	if err != nil {
		return nil, err
	}
	if err := expect(reply, TypeTools); err != nil {
		return nil, err
	}
	return reply.Tools, nil
}

func (c *Client) CallTool(ctx context.Context, name string, params map[string]any) (string, error) {
	reply, err := c.roundTrip(ctx, Frame{Type: TypeToolCall, Name: name, Parameters: params})
	if err != nil {
		return "", err
	}
	if err := expect(reply, TypeToolResult); err != nil {
		return "", err
	}
	return reply.Content, nil
}

func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	reply, err := c.roundTrip(ctx, Frame{Type: TypeReadResource, URI: uri})
	if err != nil {
		return "", err
	}
	if err := expect(reply, TypeResource); err != nil {
		return "", err
	}
	return reply.Content, nil
}

// Chat sends a plain "message" frame.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	reply, err := c.roundTrip(ctx, Frame{Type: TypeMessage, Content: message})
	if err != nil {
		return "", err
	}
	if err := expect(reply, TypeMessage); err != nil {
		return "", err
	}
	return reply.Content, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
