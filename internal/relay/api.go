package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tailabs/mcp-relay/internal/llm"
	"github.com/tailabs/mcp-relay/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Target is a tool server the relay connects to at startup.
type Target struct {
	Name string `json:"server_name"`
	URL  string `json:"server_url"`
}

type APIConfig struct {
	AvailabilityTimeout time.Duration
	RequestTimeout      time.Duration
	// WebSocketTarget enables the /ws pass-through when set.
	WebSocketTarget string
}

// API exposes a Relay over HTTP.
type API struct {
	relay      *Relay
	cfg        APIConfig
	router     *chi.Mux
	httpClient *http.Client
}

func NewAPI(r *Relay, cfg APIConfig) *API {
	if cfg.AvailabilityTimeout <= 0 {
		cfg.AvailabilityTimeout = DefaultAvailabilityTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	a := &API{
		relay:      r,
		cfg:        cfg,
		router:     chi.NewRouter(),
		httpClient: &http.Client{},
	}
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)

	a.router.Get("/health", a.handleHealth)
	if cfg.WebSocketTarget != "" {
		a.router.Handle("/ws", NewProxy(cfg.WebSocketTarget))
	}

	a.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Post("/connect", a.handleConnect)
		r.Post("/disconnect", a.handleDisconnect)
		r.Post("/chat", a.handleChat)
		r.Get("/servers", a.handleServers)
	})

	return a
}

// Router exposes the root HTTP handler.
func (a *API) Router() http.Handler { return a.router }

// Bootstrap connects every target that passes the availability check.
// Failures are logged and skipped.
func (a *API) Bootstrap(ctx context.Context, targets []Target) {
	for _, t := range targets {
		l := logrus.WithFields(logrus.Fields{"alias": t.Name, "url": t.URL})
		l.Info("Connecting to configured tool server on startup")

		if err := CheckAvailability(ctx, a.httpClient, t.URL, a.cfg.AvailabilityTimeout); err != nil {
			l.WithError(err).Error("Tool server not available, skipping")
			continue
		}
		if err := a.relay.sessions.Connect(ctx, t.Name, t.URL); err != nil {
			l.WithError(err).Error("Connecting on startup failed")
			continue
		}
		tools, err := a.relay.sessions.ListTools(ctx, t.Name)
		if err != nil {
			l.WithError(err).Error("Listing tools after startup connection failed")
			continue
		}
		l.WithField("tools", len(tools)).Info("Connected on startup")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type connectRequest struct {
	ServerName string `json:"server_name"`
	ServerURL  string `json:"server_url"`
}

func (a *API) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ServerName == "" {
		writeDetail(w, http.StatusBadRequest, "server_name and server_url are required")
		return
	}
	if _, err := session.TransportFor(req.ServerURL); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid server_url format. Must include http://, https://, ws:// or wss://")
		return
	}

	l := logrus.WithFields(logrus.Fields{"alias": req.ServerName, "url": req.ServerURL})
	if err := CheckAvailability(r.Context(), a.httpClient, req.ServerURL, a.cfg.AvailabilityTimeout); err != nil {
		writeDetail(w, http.StatusServiceUnavailable,
			fmt.Sprintf("MCP server '%s' not available at %s.", req.ServerName, req.ServerURL))
		return
	}
	if err := a.relay.sessions.Connect(r.Context(), req.ServerName, req.ServerURL); err != nil {
		l.WithError(err).Error("Connect request failed")
		writeDetail(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to connect to MCP server '%s'. Check server logs.", req.ServerName))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "connected", "server_name": req.ServerName})
}

type disconnectRequest struct {
	ServerName string `json:"server_name"`
}

func (a *API) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var req disconnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ServerName == "" {
		writeDetail(w, http.StatusBadRequest, "server_name is required")
		return
	}

	status := "disconnected"
	if err := a.relay.sessions.Disconnect(req.ServerName); err != nil {
		status = "disconnected_with_issues_or_not_found"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "server_name": req.ServerName})
}

type chatRequest struct {
	Message string `json:"message"`
	Server  string `json:"server"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json")
		return
	}

	response, err := a.relay.Chat(r.Context(), req.Message, req.Server)
	if err != nil {
		status := chatErrorStatus(err)
		logrus.WithFields(logrus.Fields{
			"server": req.Server,
			"status": status,
		}).WithError(err).Error("Chat request failed")
		writeDetail(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": response})
}

func chatErrorStatus(err error) int {
	var upstream *llm.UpstreamAPIError
	switch {
	case errors.Is(err, session.ErrNotConnected), errors.Is(err, ErrNoModel):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) handleServers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"servers": a.relay.sessions.Aliases()})
}
