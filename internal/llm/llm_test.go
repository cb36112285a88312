package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnthropic_Complete(t *testing.T) {
	var seen map[string]any
	srv := fakeAPI(t, http.StatusOK, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "test-model",
		"content": [{"type": "text", "text": "routed"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 3, "output_tokens": 1}
	}`, &seen)

	c, err := NewAnthropic(Config{APIKey: "test-key", Model: "test-model", BaseURL: srv.URL, MaxRetries: 0})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "be brief", "hello")
	require.NoError(t, err)
	assert.Equal(t, "routed", out)

	assert.Equal(t, "test-model", seen["model"])
	assert.EqualValues(t, DefaultMaxTokens, seen["max_tokens"])
	system, ok := seen["system"].([]any)
	require.True(t, ok)
	assert.Len(t, system, 1)
}

func TestAnthropic_UpstreamError(t *testing.T) {
	srv := fakeAPI(t, http.StatusInternalServerError, `{"type":"error","error":{"type":"api_error","message":"down"}}`, nil)

	c, err := NewAnthropic(Config{APIKey: "test-key", BaseURL: srv.URL, MaxRetries: 0})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "", "hello")
	var upstream *UpstreamAPIError
	require.True(t, errors.As(err, &upstream))
}

func TestNewAnthropic_RequiresKey(t *testing.T) {
	_, err := NewAnthropic(Config{})
	assert.Error(t, err)
}
