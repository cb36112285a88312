// Package config loads the relay configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvAPIKey            = "ANTHROPIC_API_KEY"
	EnvWebSocketTarget   = "MCP_WS_TARGET_URL"
	EnvDefaultServerURL  = "MCP_DEFAULT_SERVER_URL"
	EnvDefaultServerName = "MCP_DEFAULT_SERVER_NAME"
	EnvListen            = "MCP_RELAY_ADDR"
)

type Config struct {
	Listen          string   `yaml:"listen"`
	LLM             LLM      `yaml:"llm"`
	DefaultServer   Server   `yaml:"default_server"`
	Servers         []Server `yaml:"servers"`
	Timeouts        Timeouts `yaml:"timeouts"`
	WebSocketTarget string   `yaml:"websocket_target"`
}

type LLM struct {
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
}

// Server is a tool server connected on startup.
type Server struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type Timeouts struct {
	Availability time.Duration `yaml:"availability"`
	Call         time.Duration `yaml:"call"`
	Request      time.Duration `yaml:"request"`
	ToolCache    time.Duration `yaml:"tool_cache"`
}

func Default() *Config {
	return &Config{
		Listen: ":8001",
		LLM: LLM{
			Model:     "claude-3-7-sonnet-20250219",
			MaxTokens: 1024,
		},
		DefaultServer: Server{
			Name: "default_mcp_server",
			URL:  "http://localhost:8000/mcp",
		},
		Timeouts: Timeouts{
			Availability: 3 * time.Second,
			Call:         30 * time.Second,
			Request:      60 * time.Second,
			ToolCache:    5 * time.Minute,
		},
		WebSocketTarget: "ws://localhost:8765/ws",
	}
}

// Load reads a YAML config over the defaults. An empty path returns the
// defaults. Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.LLM.APIKey, EnvAPIKey)
	set(&c.WebSocketTarget, EnvWebSocketTarget)
	set(&c.DefaultServer.URL, EnvDefaultServerURL)
	set(&c.DefaultServer.Name, EnvDefaultServerName)
	set(&c.Listen, EnvListen)
}

// Startup returns the default server followed by the extra servers.
func (c *Config) Startup() []Server {
	var out []Server
	if c.DefaultServer.URL != "" {
		out = append(out, c.DefaultServer)
	}
	return append(out, c.Servers...)
}

// Validate checks that a Config has all required fields and valid values.
func Validate(cfg *Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("missing required field: listen")
	}
	if cfg.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", cfg.LLM.MaxTokens)
	}
	for name, d := range map[string]time.Duration{
		"availability": cfg.Timeouts.Availability,
		"call":         cfg.Timeouts.Call,
		"request":      cfg.Timeouts.Request,
		"tool_cache":   cfg.Timeouts.ToolCache,
	} {
		if d <= 0 {
			return fmt.Errorf("timeouts.%s must be positive, got %s", name, d)
		}
	}

	if cfg.DefaultServer.URL != "" && cfg.DefaultServer.Name == "" {
		return fmt.Errorf("default_server: missing required field: name")
	}
	seen := map[string]bool{}
	for i, srv := range cfg.Startup() {
		if srv.Name == "" {
			return fmt.Errorf("server %d: missing required field: name", i)
		}
		if seen[srv.Name] {
			return fmt.Errorf("server %q: duplicate name", srv.Name)
		}
		seen[srv.Name] = true
		if err := checkURL(srv.URL, "http", "https", "ws", "wss"); err != nil {
			return fmt.Errorf("server %q: %w", srv.Name, err)
		}
	}

	if cfg.WebSocketTarget != "" {
		if err := checkURL(cfg.WebSocketTarget, "ws", "wss"); err != nil {
			return fmt.Errorf("websocket_target: %w", err)
		}
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("url %q must use one of %v", raw, schemes)
}
