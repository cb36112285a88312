package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tailabs/mcp-relay/internal/instance"
	"github.com/tailabs/mcp-relay/internal/toolserver"
	"github.com/tailabs/mcp-relay/internal/tools"
	"github.com/tailabs/mcp-relay/internal/wsproto"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var logLevel string

type serveOptions struct {
	addr         string
	dir          string
	historyLimit int
	callTimeout  time.Duration
}

var defaultAddrs = map[tools.Profile]string{
	tools.ProfileConversation: ":8000",
	tools.ProfileMath:         ":8002",
	tools.ProfileFiles:        ":8003",
	tools.ProfileWebSocket:    ":8765",
}

func main() {
	root := &cobra.Command{
		Use:   "mcp-toolserver",
		Short: "Demo MCP tool servers",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	for _, p := range tools.Profiles() {
		root.AddCommand(profileCommand(p))
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("mcp-toolserver v" + version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func profileCommand(p tools.Profile) *cobra.Command {
	info, _ := tools.Lookup(p)
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   string(p),
		Short: info.Description,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), p, opts)
		},
	}
	limit := 0
	if p == tools.ProfileWebSocket {
		limit = 10
	}
	cmd.Flags().StringVar(&opts.addr, "addr", defaultAddrs[p], "listen address")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "initial working directory for ls/cd (default: current directory)")
	cmd.Flags().IntVar(&opts.historyLimit, "history-limit", limit, "conversation entries to keep, 0 keeps all")
	cmd.Flags().DurationVar(&opts.callTimeout, "call-timeout", 30*time.Second, "maximum duration of a single tool call")
	return cmd
}

func serve(parent context.Context, p tools.Profile, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	info, err := tools.Lookup(p)
	if err != nil {
		return err
	}
	inst, err := instance.New(string(p), opts.dir, opts.historyLimit)
	if err != nil {
		return err
	}
	reg, err := tools.Build(p, inst)
	if err != nil {
		return err
	}

	var handler http.Handler
	if p == tools.ProfileWebSocket {
		handler = wsproto.NewServer(reg, tools.Chat, opts.callTimeout)
	} else {
		handler = toolserver.Handler(toolserver.New(reg, toolserver.Options{
			Name:        info.Title,
			Version:     version,
			CallTimeout: opts.callTimeout,
		}))
	}

	logrus.WithFields(logrus.Fields{
		"profile": p,
		"addr":    opts.addr,
		"cwd":     inst.Workspace.Current(),
		"tools":   len(reg.List()),
	}).Infof("Starting %s", info.Title)
	return toolserver.ListenAndServe(ctx, opts.addr, handler)
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
