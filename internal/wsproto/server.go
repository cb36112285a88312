package wsproto

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const Path = "/ws"

// Server serves a tool registry over the WebSocket protocol at Path.
type Server struct {
	reg         *registry.Registry
	chat        registry.ToolName
	callTimeout time.Duration
	upgrader    websocket.Upgrader
}

// NewServer answers "message" frames with the chat tool of reg. Every tool
// call is bounded by callTimeout; zero leaves calls unbounded.
func NewServer(reg *registry.Registry, chat registry.ToolName, callTimeout time.Duration) *Server {
	return &Server{
		reg:         reg,
		chat:        chat,
		callTimeout: callTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	l := logrus.WithFields(logrus.Fields{
		"remote": r.RemoteAddr,
		"path":   r.URL.Path,
	})

	if r.URL.Path != Path {
		l.Warn("Rejecting WebSocket connection on invalid path")
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Invalid path")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		return
	}

	l.Info("WebSocket client connected")
	defer l.Info("WebSocket client disconnected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.WithError(err).Debug("WebSocket read ended")
			}
			return
		}

		reply := s.handle(r.Context(), data)
		out, err := Encode(reply)
		if err != nil {
			l.WithError(err).Error("Encoding reply failed")
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			l.WithError(err).Warn("WebSocket write failed")
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, data []byte) Frame {
	f, err := Decode(data)
	if err != nil {
		return errorFrame("Invalid JSON message")
	}

	switch f.Type {
	case TypeMessage:
		reply, err := s.invoke(ctx, s.chat, map[string]any{"message": f.Content})
		if err != nil {
			return errorFrame(err.Error())
		}
		return Frame{Type: TypeMessage, Content: reply}

	case TypeToolCall:
		name := registry.ToolName(f.Name)
		if !s.reg.Has(name) {
			return errorFrame(fmt.Sprintf("Unknown tool: %s", f.Name))
		}
		result, err := s.invoke(ctx, name, f.Parameters)
		if err != nil {
			return errorFrame(err.Error())
		}
		return Frame{Type: TypeToolResult, Name: f.Name, Content: result}

	case TypeListTools:
		return Frame{Type: TypeTools, Tools: s.reg.List()}

	case TypeReadResource:
		text, err := s.reg.Resources().Fetch(f.URI)
		if errors.Is(err, registry.ErrUnknownResource) {
			return errorFrame(fmt.Sprintf("Unknown resource: %s", f.URI))
		}
		if err != nil {
			return errorFrame(err.Error())
		}
		return Frame{Type: TypeResource, URI: f.URI, Content: text}

	default:
		return errorFrame(fmt.Sprintf("Unknown message type: %s", f.Type))
	}
}

func (s *Server) invoke(ctx context.Context, name registry.ToolName, params map[string]any) (string, error) {
	if s.callTimeout <= 0 {
		return s.reg.Invoke(ctx, name, params)
	}
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := s.reg.Invoke(ctx, name, params)
		done <- outcome{result, err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logrus.WithField("tool", name).Warn("Tool call timed out")
			return "", fmt.Errorf("tool call timed out after %s", s.callTimeout)
		}
		return "", ctx.Err()
	}
}
