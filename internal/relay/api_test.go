package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tailabs/mcp-relay/internal/llm"
	"github.com/tailabs/mcp-relay/internal/registry"
	"github.com/tailabs/mcp-relay/internal/session"
	"github.com/tailabs/mcp-relay/internal/wsproto"

	"github.com/gorilla/websocket"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	out := map[string]any{}
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr.Code, out
}

// newAPIWithReachableServer returns an API whose session manager dials a fake
// server for any URL, plus the URL of a live HTTP listener for the
// availability check.
func newAPIWithReachableServer(t *testing.T, model llm.Completer) (*API, string) {
	t.Helper()
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	t.Cleanup(live.Close)

	m, err := session.NewManager(session.Options{
		Dialer: func(ctx context.Context, transport session.Transport, rawURL string) (session.Session, error) {
			if strings.Contains(rawURL, "broken") {
				return nil, errors.New("handshake failed")
			}
			return &fakeServer{tools: []string{"echo", "chat"}}, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	return NewAPI(New(m, model), APIConfig{AvailabilityTimeout: time.Second}), live.URL
}

func TestAPI_HealthAndServers(t *testing.T) {
	api, _ := newAPIWithReachableServer(t, nil)

	code, body := do(t, api.Router(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = do(t, api.Router(), http.MethodGet, "/api/servers", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["servers"])
}

func TestAPI_ConnectLifecycle(t *testing.T) {
	api, liveURL := newAPIWithReachableServer(t, nil)
	h := api.Router()

	code, body := do(t, h, http.MethodPost, "/api/connect", map[string]string{"server_name": "s1", "server_url": liveURL + "/mcp"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, map[string]any{"status": "connected", "server_name": "s1"}, body)

	_, body = do(t, h, http.MethodGet, "/api/servers", nil)
	assert.Equal(t, []any{"s1"}, body["servers"])

	code, body = do(t, h, http.MethodPost, "/api/chat", map[string]string{"message": "echo hi", "server": "s1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "echo: hi", body["response"])

	code, body = do(t, h, http.MethodPost, "/api/disconnect", map[string]string{"server_name": "s1"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "disconnected", body["status"])

	code, body = do(t, h, http.MethodPost, "/api/disconnect", map[string]string{"server_name": "s1"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "disconnected", body["status"])
}

func TestAPI_ConnectErrors(t *testing.T) {
	api, liveURL := newAPIWithReachableServer(t, nil)
	h := api.Router()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	tests := []struct {
		name string
		body any
		want int
	}{
		{"bad scheme", map[string]string{"server_name": "s1", "server_url": "localhost:8000/mcp"}, http.StatusBadRequest},
		{"missing name", map[string]string{"server_url": liveURL}, http.StatusBadRequest},
		{"unreachable", map[string]string{"server_name": "s1", "server_url": deadURL + "/mcp"}, http.StatusServiceUnavailable},
		{"handshake fails", map[string]string{"server_name": "s1", "server_url": liveURL + "/broken"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, h, http.MethodPost, "/api/connect", tt.body)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, body["detail"])
		})
	}
	assert.False(t, api.relay.Sessions().IsConnected("s1"))
}

func TestAPI_ChatErrors(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		api, _ := newAPIWithReachableServer(t, nil)
		code, body := do(t, api.Router(), http.MethodPost, "/api/chat", map[string]string{"message": "hi", "server": "nope"})
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body["detail"], "not connected")
	})

	t.Run("upstream failure", func(t *testing.T) {
		api, _ := newAPIWithReachableServer(t, &fakeModel{err: &llm.UpstreamAPIError{Err: errors.New("overloaded")}})
		code, _ := do(t, api.Router(), http.MethodPost, "/api/chat", map[string]string{"message": "hi"})
		assert.Equal(t, http.StatusBadGateway, code)
	})

	t.Run("broadcast success", func(t *testing.T) {
		api, _ := newAPIWithReachableServer(t, &fakeModel{reply: "hello there"})
		code, body := do(t, api.Router(), http.MethodPost, "/api/chat", map[string]string{"message": "hi"})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "hello there", body["response"])
	})
}

func TestAPI_Bootstrap(t *testing.T) {
	api, liveURL := newAPIWithReachableServer(t, nil)

	api.Bootstrap(context.Background(), []Target{
		{Name: "default_mcp_server", URL: liveURL + "/mcp"},
		{Name: "down", URL: "http://127.0.0.1:1/mcp"},
		{Name: "broken", URL: liveURL + "/broken"},
	})
	assert.Equal(t, []string{"default_mcp_server"}, api.relay.Sessions().Aliases())
}

type echoRegistrar struct{}

func (echoRegistrar) GetTool() mcp.Tool {
	return mcp.NewTool("chat", mcp.WithString("message", mcp.Required()))
}

func (echoRegistrar) GetHandler() registry.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		msg, err := req.RequireString("message")
		return "Chat: " + msg, err
	}
}

func TestAPI_WebSocketProxy(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(echoRegistrar{}))
	target := httptest.NewServer(wsproto.NewServer(reg, "chat", 0))
	defer target.Close()

	m, err := session.NewManager(session.Options{})
	require.NoError(t, err)
	defer m.Close()

	api := NewAPI(New(m, nil), APIConfig{
		WebSocketTarget: "ws" + strings.TrimPrefix(target.URL, "http") + wsproto.Path,
	})
	front := httptest.NewServer(api.Router())
	defer front.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(front.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message","content":"hi"}`)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"message","content":"Chat: hi"}`, string(data))
}

func TestCheckAvailability(t *testing.T) {
	live := httptest.NewServer(http.NotFoundHandler())
	defer live.Close()
	client := &http.Client{}

	assert.NoError(t, CheckAvailability(context.Background(), client, live.URL, time.Second))
	assert.NoError(t, CheckAvailability(context.Background(), client, "ws"+strings.TrimPrefix(live.URL, "http"), time.Second))

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer slow.Close()
	assert.Error(t, CheckAvailability(context.Background(), client, slow.URL, 50*time.Millisecond))
}
