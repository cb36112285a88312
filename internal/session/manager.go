// Package session keeps the live connections of the relay to remote tool
// servers, keyed by caller-chosen alias.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCallTimeout  = 30 * time.Second
	DefaultToolCacheTTL = 5 * time.Minute
)

// Event represents the lifecycle events of a connection.
type Event string

const (
	EventConnected    Event = "connected"
	EventDisconnected Event = "disconnected"
	EventToolCalled   Event = "tool_called"
)

// State is a snapshot of one connection.
type State struct {
	Alias       string
	URL         string
	Transport   Transport
	ConnectedAt time.Time
	Calls       int64
	LastTool    string
}

// EventCallback is invoked asynchronously for every event.
type EventCallback func(event Event, alias string, state State)

type handle struct {
	alias       string
	url         string
	transport   Transport
	connectedAt time.Time
	calls       atomic.Int64
	session     Session
}

func (h *handle) snapshot() State {
	return State{
		Alias:       h.alias,
		URL:         h.url,
		Transport:   h.transport,
		ConnectedAt: h.connectedAt,
		Calls:       h.calls.Load(),
	}
}

type Options struct {
	Dialer       Dialer
	CallTimeout  time.Duration
	ToolCacheTTL time.Duration
}

// Manager maps aliases to live sessions. Connect and Disconnect on the same
// alias are serialized; calls on different aliases run concurrently.
type Manager struct {
	mu      sync.RWMutex
	handles map[string]*handle

	locksMu sync.Mutex
	locks   map[string]*aliasLock

	dial        Dialer
	callTimeout time.Duration
	cacheTTL    time.Duration
	toolCache   *ristretto.Cache

	cbMu      sync.RWMutex
	callbacks []EventCallback
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Dialer == nil {
		opts.Dialer = DefaultDialer
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.ToolCacheTTL <= 0 {
		opts.ToolCacheTTL = DefaultToolCacheTTL
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating tool cache: %w", err)
	}

	return &Manager{
		handles:     make(map[string]*handle),
		locks:       make(map[string]*aliasLock),
		dial:        opts.Dialer,
		callTimeout: opts.CallTimeout,
		cacheTTL:    opts.ToolCacheTTL,
		toolCache:   cache,
	}, nil
}

type aliasLock struct {
	mu   sync.Mutex
	refs int
}

// lockAlias serializes work on alias. The entry is dropped once the last
// holder or waiter releases it.
func (m *Manager) lockAlias(alias string) func() {
	m.locksMu.Lock()
	l, ok := m.locks[alias]
	if !ok {
		l = &aliasLock{}
		m.locks[alias] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, alias)
		}
		m.locksMu.Unlock()
	}
}

// AddEventCallback adds a callback for connection events.
func (m *Manager) AddEventCallback(callback EventCallback) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

func (m *Manager) triggerEvent(event Event, alias string, state State) {
	m.cbMu.RLock()
	callbacks := append([]EventCallback(nil), m.callbacks...)
	m.cbMu.RUnlock()

	for _, callback := range callbacks {
		go func(cb EventCallback) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithFields(logrus.Fields{
						"event": event,
						"alias": alias,
						"panic": r,
					}).Error("Connection event callback panicked")
				}
			}()
			cb(event, alias, state)
		}(callback)
	}
}

// Connect opens a session to url under alias and probes it by listing its
// tools. Connecting an alias that is already connected is a no-op. On any
// failure the alias stays absent.
func (m *Manager) Connect(ctx context.Context, alias, url string) error {
	if alias == "" {
		return &TransportError{Alias: alias, Op: "connect", Err: errors.New("alias cannot be empty")}
	}

	unlock := m.lockAlias(alias)
	defer unlock()

	if m.IsConnected(alias) {
		logrus.WithField("alias", alias).Info("Already connected")
		return nil
	}

	transport, err := TransportFor(url)
	if err != nil {
		return &TransportError{Alias: alias, Op: "connect", Err: err}
	}

	l := logrus.WithFields(logrus.Fields{
		"alias":     alias,
		"url":       url,
		"transport": transport,
	})
	l.Info("Connecting to tool server")

	dialCtx, cancel := m.withTimeout(ctx)
	defer cancel()

	sess, err := m.dial(dialCtx, transport, url)
	if err != nil {
		l.WithError(err).Error("Connecting failed")
		return &TransportError{Alias: alias, Op: "connect", Err: err}
	}

	tools, err := sess.ListTools(dialCtx)
	if err != nil {
		l.WithError(err).Error("Listing tools after connect failed")
		if closeErr := sess.Close(); closeErr != nil {
			l.WithError(closeErr).Warn("Closing partial session failed")
		}
		return &TransportError{Alias: alias, Op: "connect", Err: fmt.Errorf("probing tools: %w", err)}
	}

	h := &handle{
		alias:       alias,
		url:         url,
		transport:   transport,
		connectedAt: time.Now(),
		session:     sess,
	}
	m.mu.Lock()
	m.handles[alias] = h
	m.mu.Unlock()

	m.toolCache.SetWithTTL(alias, tools, 1, m.cacheTTL)
	l.WithField("tools", len(tools)).Info("Connected to tool server")
	m.triggerEvent(EventConnected, alias, h.snapshot())
	return nil
}

// Disconnect closes and forgets the session of alias. An unknown alias is not
// an error. A failure while closing is returned, but the alias is removed
// regardless.
func (m *Manager) Disconnect(alias string) error {
	unlock := m.lockAlias(alias)
	defer unlock()

	m.mu.Lock()
	h, ok := m.handles[alias]
	delete(m.handles, alias)
	m.mu.Unlock()

	if !ok {
		logrus.WithField("alias", alias).Warn("No connection found")
		return nil
	}

	m.toolCache.Del(alias)
	state := h.snapshot()

	if err := h.session.Close(); err != nil {
		logrus.WithField("alias", alias).WithError(err).Error("Closing session failed")
		m.triggerEvent(EventDisconnected, alias, state)
		return &TransportError{Alias: alias, Op: "disconnect", Err: err}
	}

	logrus.WithField("alias", alias).Info("Disconnected")
	m.triggerEvent(EventDisconnected, alias, state)
	return nil
}

func (m *Manager) IsConnected(alias string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.handles[alias]
	return ok
}

// Aliases returns the connected aliases in sorted order.
func (m *Manager) Aliases() []string {
	m.mu.RLock()
	aliases := lo.Keys(m.handles)
	m.mu.RUnlock()
	sort.Strings(aliases)
	return aliases
}

// State returns a snapshot of the connection of alias.
func (m *Manager) State(alias string) (State, bool) {
	h, err := m.get(alias)
	if err != nil {
		return State{}, false
	}
	return h.snapshot(), true
}

func (m *Manager) get(alias string) (*handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, alias)
	}
	return h, nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.callTimeout)
}

// ListTools returns the tools of alias, served from cache while fresh.
func (m *Manager) ListTools(ctx context.Context, alias string) ([]mcp.Tool, error) {
	h, err := m.get(alias)
	if err != nil {
		return nil, err
	}

	if cached, found := m.toolCache.Get(alias); found {
		if tools, ok := cached.([]mcp.Tool); ok {
			return tools, nil
		}
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	tools, err := h.session.ListTools(ctx)
	if err != nil {
		logrus.WithField("alias", alias).WithError(err).Error("Listing tools failed")
		return nil, &TransportError{Alias: alias, Op: "list_tools", Err: err}
	}
	m.toolCache.SetWithTTL(alias, tools, 1, m.cacheTTL)
	return tools, nil
}

// CallTool invokes a tool on alias and returns its reply as a string.
func (m *Manager) CallTool(ctx context.Context, alias, tool string, params map[string]any) (string, error) {
	h, err := m.get(alias)
	if err != nil {
		return "", err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	out, err := h.session.CallTool(ctx, tool, params)
	h.calls.Add(1)

	l := logrus.WithFields(logrus.Fields{
		"alias":    alias,
		"tool":     tool,
		"duration": time.Since(start),
	})
	state := h.snapshot()
	state.LastTool = tool
	m.triggerEvent(EventToolCalled, alias, state)

	if err != nil {
		return "", m.callError(l, alias, "call_tool", err)
	}
	return out, nil
}

// GetResource reads a resource from alias.
func (m *Manager) GetResource(ctx context.Context, alias, uri string) (string, error) {
	h, err := m.get(alias)
	if err != nil {
		return "", err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	out, err := h.session.ReadResource(ctx, uri)
	if err != nil {
		l := logrus.WithFields(logrus.Fields{"alias": alias, "uri": uri})
		return "", m.callError(l, alias, "read_resource", err)
	}
	return out, nil
}

func (m *Manager) callError(l *logrus.Entry, alias, op string, err error) error {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		toolErr.Alias = alias
		l.WithField("message", toolErr.Message).Warn("Remote server reported an error")
		return toolErr
	}
	l.WithError(err).Error("Remote call failed")
	return &TransportError{Alias: alias, Op: op, Err: err}
}

// Close disconnects every alias and releases the tool cache.
func (m *Manager) Close() error {
	var errs []error
	for _, alias := range m.Aliases() {
		if err := m.Disconnect(alias); err != nil {
			errs = append(errs, err)
		}
	}
	m.toolCache.Close()
	return errors.Join(errs...)
}
