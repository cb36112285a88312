package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tailabs/mcp-relay/internal/instance"
	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstance(t *testing.T, historyLimit int) *instance.Instance {
	t.Helper()
	inst, err := instance.New("test", t.TempDir(), historyLimit)
	require.NoError(t, err)
	return inst
}

func build(t *testing.T, p Profile, inst *instance.Instance) *registry.Registry {
	t.Helper()
	reg, err := Build(p, inst)
	require.NoError(t, err)
	return reg
}

func TestFibonacci(t *testing.T) {
	reg := build(t, ProfileMath, newInstance(t, 0))
	ctx := context.Background()

	tests := []struct {
		n    float64
		want string
	}{
		{0, "Fibonacci(0) = 0"},
		{1, "Fibonacci(1) = 1"},
		{2, "Fibonacci(2) = 1"},
		{10, "Fibonacci(10) = 55"},
		{100, "Fibonacci(100) = 354224848179261915075"},
		{-1, "Error: Input must be a non-negative integer"},
		{2.5, "Error: Input must be a non-negative integer"},
		{100001, "Error: Input must be at most 100000"},
		{1e19, "Error: Input must be at most 100000"},
	}
	for _, tt := range tests {
		out, err := reg.Invoke(ctx, Fibonacci, map[string]any{"n": tt.n})
		require.NoError(t, err)
		assert.Equal(t, tt.want, out)
	}
}

func TestFibonacci_StopsOnCancelledContext(t *testing.T) {
	reg := build(t, ProfileMath, newInstance(t, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := reg.Invoke(ctx, Fibonacci, map[string]any{"n": 100000.0})
	require.NoError(t, err)
	assert.Equal(t, "Error: "+context.Canceled.Error(), out)
}

func TestCountLetters(t *testing.T) {
	reg := build(t, ProfileMath, newInstance(t, 0))

	out, err := reg.Invoke(context.Background(), CountLetters, map[string]any{"word": "héllo"})
	require.NoError(t, err)
	assert.Equal(t, "The word 'héllo' has 5 letters", out)
}

func TestRepeat(t *testing.T) {
	reg := build(t, ProfileWebSocket, newInstance(t, 10))
	ctx := context.Background()

	out, err := reg.Invoke(ctx, Repeat, map[string]any{"message": "hi", "times": 3.0})
	require.NoError(t, err)
	assert.Equal(t, "Repeated 3 times:\nhi\nhi\nhi", out)

	out, err = reg.Invoke(ctx, Repeat, map[string]any{"message": "x"})
	require.NoError(t, err)
	assert.Contains(t, out, "Repeated 10 times:\n")

	out, err = reg.Invoke(ctx, Repeat, map[string]any{"message": "x", "times": 0.0})
	require.NoError(t, err)
	assert.Equal(t, "Error: times must be at least 1, got 0", out)
}

func TestEchoPrefixByProfile(t *testing.T) {
	ctx := context.Background()
	params := map[string]any{"message": "hello"}

	out, err := build(t, ProfileConversation, newInstance(t, 0)).Invoke(ctx, Echo, params)
	require.NoError(t, err)
	assert.Equal(t, "Echo: hello", out)

	out, err = build(t, ProfileWebSocket, newInstance(t, 10)).Invoke(ctx, Echo, params)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestLsAndCd(t *testing.T) {
	inst := newInstance(t, 0)
	root := inst.Workspace.Current()
	require.NoError(t, os.Mkdir(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), nil, 0o644))

	reg := build(t, ProfileFiles, inst)
	ctx := context.Background()

	out, err := reg.Invoke(ctx, Ls, nil)
	require.NoError(t, err)
	assert.Equal(t, "Contents of .:\n📄 a.txt\n📄 b.txt\n📁 docs/\n", out)

	out, err = reg.Invoke(ctx, Cd, map[string]any{"path": "missing"})
	require.NoError(t, err)
	assert.Equal(t, "Error: Path 'missing' does not exist", out)

	out, err = reg.Invoke(ctx, Ls, map[string]any{"path": "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, "Error: 'a.txt' is not a directory", out)

	// The failed cd left the cursor in place.
	out, err = reg.Invoke(ctx, Ls, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "📁 docs/")

	out, err = reg.Invoke(ctx, Cd, map[string]any{"path": "docs"})
	require.NoError(t, err)
	assert.Equal(t, "Changed directory to: "+filepath.Join(root, "docs"), out)

	out, err = reg.Invoke(ctx, Ls, nil)
	require.NoError(t, err)
	assert.Equal(t, "Contents of .:\n", out)
}

func TestChatRecordsHistory(t *testing.T) {
	inst := newInstance(t, 0)
	reg := build(t, ProfileConversation, inst)
	ctx := context.Background()

	history, err := reg.Resources().Fetch(HistoryURI)
	require.NoError(t, err)
	assert.Empty(t, history)

	out, err := reg.Invoke(ctx, Chat, map[string]any{"message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Chat: hi", out)

	history, err = reg.Resources().Fetch(HistoryURI)
	require.NoError(t, err)
	assert.Equal(t, "user: hi\nassistant: Chat: hi", history)
}

func TestWebSocketHistoryIsBounded(t *testing.T) {
	inst := newInstance(t, 4)
	reg := build(t, ProfileWebSocket, inst)

	for _, msg := range []string{"one", "two", "three"} {
		_, err := reg.Invoke(context.Background(), Chat, map[string]any{"message": msg})
		require.NoError(t, err)
	}
	entries := inst.Conversation.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "two", entries[0].Content)
}

func TestBuildProfiles(t *testing.T) {
	names := func(reg *registry.Registry) []string {
		out := []string{}
		for _, tool := range reg.List() {
			out = append(out, tool.Name)
		}
		return out
	}
	inst := newInstance(t, 0)

	assert.Equal(t, []string{"echo", "chat", "repeat"}, names(build(t, ProfileConversation, inst)))
	assert.Equal(t, []string{"count_letters", "fibonacci"}, names(build(t, ProfileMath, inst)))
	assert.Equal(t, []string{"ls", "cd"}, names(build(t, ProfileFiles, inst)))
	assert.Empty(t, build(t, ProfileMath, inst).Resources().List())

	_, err := Build("bogus", inst)
	assert.Error(t, err)
	assert.Equal(t, []Profile{ProfileConversation, ProfileFiles, ProfileMath, ProfileWebSocket}, Profiles())
}
