package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAPIKey, EnvWebSocketTarget, EnvDefaultServerURL, EnvDefaultServerName, EnvListen} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
listen: ":9000"
llm:
  model: test-model
default_server:
  name: main
  url: http://localhost:8000/mcp
servers:
  - name: math
    url: http://localhost:8002/mcp
  - name: ws
    url: ws://localhost:8765/ws
timeouts:
  call: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "test-model", cfg.LLM.Model)
	assert.Equal(t, int64(1024), cfg.LLM.MaxTokens)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Call)
	assert.Equal(t, 3*time.Second, cfg.Timeouts.Availability)

	names := []string{}
	for _, s := range cfg.Startup() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"main", "math", "ws"}, names)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().DefaultServer, cfg.DefaultServer)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "listen: [unclosed"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAPIKey:            "sk-test",
		EnvWebSocketTarget:   "ws://example.com:9/ws",
		EnvDefaultServerName: "primary",
		EnvDefaultServerURL:  "http://example.com/mcp",
		EnvListen:            "  ",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "ws://example.com:9/ws", cfg.WebSocketTarget)
	assert.Equal(t, Server{Name: "primary", URL: "http://example.com/mcp"}, cfg.DefaultServer)
	assert.Equal(t, ":8001", cfg.Listen)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no listen", func(c *Config) { c.Listen = "" }, "listen"},
		{"zero timeout", func(c *Config) { c.Timeouts.Call = 0 }, "timeouts.call"},
		{"bad server scheme", func(c *Config) { c.Servers = []Server{{Name: "x", URL: "ftp://host"}} }, "must use one of"},
		{"duplicate name", func(c *Config) { c.Servers = []Server{{Name: "default_mcp_server", URL: "http://h/mcp"}} }, "duplicate"},
		{"unnamed server", func(c *Config) { c.Servers = []Server{{URL: "http://h/mcp"}} }, "name"},
		{"http websocket target", func(c *Config) { c.WebSocketTarget = "http://h/ws" }, "websocket_target"},
		{"no default server", func(c *Config) { c.DefaultServer = Server{} }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
