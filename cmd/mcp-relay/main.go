package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tailabs/mcp-relay/internal/config"
	"github.com/tailabs/mcp-relay/internal/llm"
	"github.com/tailabs/mcp-relay/internal/relay"
	"github.com/tailabs/mcp-relay/internal/session"
	"github.com/tailabs/mcp-relay/internal/toolserver"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configPath   string
	logLevel     string
	probeServers []string
)

func main() {
	root := &cobra.Command{
		Use:   "mcp-relay",
		Short: "Front-end relay for MCP tool servers",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to relay config file (default: built-in defaults)")

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Connect to tool servers, call echo and read their history",
		Args:  cobra.NoArgs,
		RunE:  runProbe,
	}
	probeCmd.Flags().StringArrayVar(&probeServers, "server",
		[]string{"server1=http://localhost:8000/mcp", "server2=http://localhost:8002/mcp"},
		"server to probe as name=url, repeatable")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a relay config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(configPath); err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	validateCmd.Flags().StringVar(&configPath, "config", "", "path to relay config file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("mcp-relay v" + version)
		},
	}

	root.AddCommand(serveCmd, probeCmd, validateCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	model, err := llm.NewAnthropic(llm.Config{
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		MaxTokens:  cfg.LLM.MaxTokens,
		BaseURL:    cfg.LLM.BaseURL,
		MaxRetries: -1,
	})
	if err != nil {
		return err
	}

	sessions, err := session.NewManager(session.Options{
		CallTimeout:  cfg.Timeouts.Call,
		ToolCacheTTL: cfg.Timeouts.ToolCache,
	})
	if err != nil {
		return err
	}
	session.RegisterEventLogging(sessions)
	defer func() {
		logrus.WithField("total_connections", len(sessions.Aliases())).Info("Closing connections...")
		if err := sessions.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close connections")
		}
	}()

	api := relay.NewAPI(relay.New(sessions, model), relay.APIConfig{
		AvailabilityTimeout: cfg.Timeouts.Availability,
		RequestTimeout:      cfg.Timeouts.Request,
		WebSocketTarget:     cfg.WebSocketTarget,
	})
	api.Bootstrap(ctx, lo.Map(cfg.Startup(), func(s config.Server, _ int) relay.Target {
		return relay.Target{Name: s.Name, URL: s.URL}
	}))

	return toolserver.ListenAndServe(ctx, cfg.Listen, api.Router())
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	targets := make([]relay.Target, 0, len(probeServers))
	for _, s := range probeServers {
		name, url, ok := strings.Cut(s, "=")
		if !ok || name == "" || url == "" {
			return fmt.Errorf("invalid --server %q, expected name=url", s)
		}
		targets = append(targets, relay.Target{Name: name, URL: url})
	}

	sessions, err := session.NewManager(session.Options{CallTimeout: 30 * time.Second})
	if err != nil {
		return err
	}
	defer sessions.Close()

	for _, t := range targets {
		l := logrus.WithField("alias", t.Name)
		if err := sessions.Connect(ctx, t.Name, t.URL); err != nil {
			l.WithError(err).Error("Connect failed")
			continue
		}
		l.Info("Connected")

		tools, err := sessions.ListTools(ctx, t.Name)
		if err != nil {
			l.WithError(err).Error("Listing tools failed")
			continue
		}
		names := lo.Map(tools, func(tool mcp.Tool, _ int) string { return tool.Name })
		l.WithField("tools", names).Info("Tools listed")

		if lo.Contains(names, "echo") {
			out, err := sessions.CallTool(ctx, t.Name, "echo", map[string]any{"message": fmt.Sprintf("Hello from %s!", t.Name)})
			if err != nil {
				l.WithError(err).Error("Echo failed")
			} else {
				l.WithField("result", out).Info("Echo result")
			}
		}

		history, err := sessions.GetResource(ctx, t.Name, "conversation://history")
		if err != nil {
			l.WithError(err).Warn("Could not get history")
		} else {
			l.WithField("history", history).Info("History")
		}
	}

	for _, t := range targets {
		if err := sessions.Disconnect(t.Name); err != nil {
			logrus.WithField("alias", t.Name).WithError(err).Warn("Disconnect failed")
		}
	}
	return nil
}

func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	return nil
}
