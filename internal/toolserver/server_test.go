package toolserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tailabs/mcp-relay/internal/instance"
	"github.com/tailabs/mcp-relay/internal/tools"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startConversationServer(t *testing.T, tracker *SessionTracker) string {
	t.Helper()
	inst, err := instance.New("conversation", t.TempDir(), 0)
	require.NoError(t, err)
	reg, err := tools.Build(tools.ProfileConversation, inst)
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(New(reg, Options{
		Name:        "test",
		Version:     "0.0.1",
		CallTimeout: 5 * time.Second,
		Tracker:     tracker,
	})))
	t.Cleanup(srv.Close)
	return srv.URL + EndpointPath
}

func dial(t *testing.T, url string) *client.Client {
	t.Helper()
	ctx := context.Background()
	c, err := client.NewStreamableHttpClient(url)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Initialize(ctx, mcp.InitializeRequest{Params: mcp.InitializeParams{
		ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
		ClientInfo:      mcp.Implementation{Name: "test-client", Version: "0.0.1"},
	}})
	require.NoError(t, err)
	return c
}

func callText(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	return res
}

func text(res *mcp.CallToolResult) string {
	if len(res.Content) == 0 {
		return ""
	}
	if tc, ok := mcp.AsTextContent(res.Content[0]); ok {
		return tc.Text
	}
	return ""
}

func TestServer_ToolsOverHTTP(t *testing.T) {
	tracker := NewSessionTracker()
	c := dial(t, startConversationServer(t, tracker))
	ctx := context.Background()

	listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	names := []string{}
	for _, tool := range listed.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"echo", "chat", "repeat"}, names)

	res := callText(t, c, "echo", map[string]any{"message": "hello"})
	assert.False(t, res.IsError)
	assert.Equal(t, "Echo: hello", text(res))

	res = callText(t, c, "echo", map[string]any{})
	assert.True(t, res.IsError)

	callText(t, c, "chat", map[string]any{"message": "hi"})

	read := mcp.ReadResourceRequest{}
	read.Params.URI = tools.HistoryURI
	history, err := c.ReadResource(ctx, read)
	require.NoError(t, err)
	require.Len(t, history.Contents, 1)
	contents, ok := mcp.AsTextResourceContents(history.Contents[0])
	require.True(t, ok)
	assert.Equal(t, "user: hi\nassistant: Chat: hi", contents.Text)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ListenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestSessionTracker(t *testing.T) {
	tracker := NewSessionTracker()
	assert.Equal(t, 1, tracker.register("a"))
	assert.Equal(t, 2, tracker.register("b"))

	_, ok := tracker.unregister("a")
	assert.True(t, ok)
	_, ok = tracker.unregister("a")
	assert.False(t, ok)
	assert.Equal(t, 1, tracker.Active())
	assert.NotNil(t, tracker.Hooks())
}
