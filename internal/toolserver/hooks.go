package toolserver

import (
	"context"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

// SessionTracker records the MCP client sessions attached to a server.
type SessionTracker struct {
	mu       sync.RWMutex
	sessions map[string]time.Time
}

func NewSessionTracker() *SessionTracker {
	return &SessionTracker{sessions: make(map[string]time.Time)}
}

// Active returns the number of registered client sessions.
func (t *SessionTracker) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

func (t *SessionTracker) register(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[id] = time.Now()
	return len(t.sessions)
}

func (t *SessionTracker) unregister(id string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	started, ok := t.sessions[id]
	if !ok {
		return 0, false
	}
	delete(t.sessions, id)
	return time.Since(started), true
}

// Hooks returns server.Hooks that keep the tracker current and log
// session lifecycle and request errors.
func (t *SessionTracker) Hooks() *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, sessionCli server.ClientSession) {
		active := t.register(sessionCli.SessionID())
		logrus.WithFields(logrus.Fields{
			"session_id":      sessionCli.SessionID(),
			"active_sessions": active,
		}).Info("Session registered")
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, sessionCli server.ClientSession) {
		duration, ok := t.unregister(sessionCli.SessionID())
		if !ok {
			return
		}
		logrus.WithFields(logrus.Fields{
			"session_id": sessionCli.SessionID(),
			"duration":   duration.String(),
		}).Info("Session unregistered")
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		logrus.WithFields(logrus.Fields{
			"request_id": id,
			"method":     method,
		}).WithError(err).Warn("Request failed")
	})

	return hooks
}
