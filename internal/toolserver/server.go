// Package toolserver runs a tool registry as an MCP server over streamable HTTP.
package toolserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tailabs/mcp-relay/internal/middleware"
	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

const (
	EndpointPath    = "/mcp"
	shutdownTimeout = 30 * time.Second
)

type Options struct {
	Name        string
	Version     string
	CallTimeout time.Duration
	Tracker     *SessionTracker
}

// New creates an MCP server exposing every tool and resource of reg.
func New(reg *registry.Registry, opts Options) *server.MCPServer {
	if opts.Tracker == nil {
		opts.Tracker = NewSessionTracker()
	}

	s := server.NewMCPServer(
		opts.Name,
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithHooks(opts.Tracker.Hooks()),
		server.WithToolHandlerMiddleware(middleware.Logging),
		server.WithToolHandlerMiddleware(middleware.Timeout(opts.CallTimeout)),
	)
	reg.Mount(s)
	return s
}

// Handler returns the streamable HTTP handler mounted at EndpointPath.
func Handler(s *server.MCPServer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(EndpointPath, server.NewStreamableHTTPServer(s))
	return mux
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// the listener down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", addr).Info("Starting server...")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logrus.Info("Received shutdown signal, gracefully shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logrus.Info("Server shutdown successfully")
	return nil
}
