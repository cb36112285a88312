// Package instance holds the mutable state owned by one tool-server process:
// the working-directory cursor used by ls/cd and the chat conversation.
package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Instance is passed to every tool constructor instead of package globals.
type Instance struct {
	Name         string
	Workspace    *Workspace
	Conversation *Conversation
}

// New creates an instance rooted at dir with a conversation bounded to
// historyLimit entries (0 keeps everything).
func New(name, dir string, historyLimit int) (*Instance, error) {
	ws, err := NewWorkspace(dir)
	if err != nil {
		return nil, err
	}
	return &Instance{
		Name:         name,
		Workspace:    ws,
		Conversation: NewConversation(historyLimit),
	}, nil
}

// Workspace is a directory cursor. Paths are resolved relative to it.
type Workspace struct {
	mu  sync.RWMutex
	cwd string
}

func NewWorkspace(dir string) (*Workspace, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", dir, err)
	}
	return &Workspace{cwd: abs}, nil
}

func (w *Workspace) Current() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cwd
}

// Resolve returns the absolute path of p relative to the cursor.
func (w *Workspace) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(w.Current(), p)
}

// Change moves the cursor to target if it names an existing directory. On
// failure the cursor is left where it was.
func (w *Workspace) Change(target string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := target
	if !filepath.IsAbs(next) {
		next = filepath.Join(w.cwd, next)
	}
	next = filepath.Clean(next)

	if err := CheckDir(next); err != nil {
		return w.cwd, err
	}
	w.cwd = next
	return next, nil
}

// PathError describes why a path cannot be used as a directory.
type PathError struct {
	Path     string
	NotExist bool
}

func (e *PathError) Error() string {
	if e.NotExist {
		return fmt.Sprintf("Path '%s' does not exist", e.Path)
	}
	return fmt.Sprintf("'%s' is not a directory", e.Path)
}

// CheckDir returns a *PathError unless p is an existing directory.
func CheckDir(p string) error {
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return &PathError{Path: p, NotExist: true}
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &PathError{Path: p}
	}
	return nil
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an append-only chat history, optionally keeping only the
// most recent limit entries.
type Conversation struct {
	mu      sync.RWMutex
	limit   int
	entries []Entry
}

func NewConversation(limit int) *Conversation {
	return &Conversation{limit: limit}
}

func (c *Conversation) Append(role Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Entry{Role: role, Content: content})
	c.trim()
}

// Exchange appends a user turn and the assistant reply as one step.
func (c *Conversation) Exchange(user, assistant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries,
		Entry{Role: RoleUser, Content: user},
		Entry{Role: RoleAssistant, Content: assistant},
	)
	c.trim()
}

func (c *Conversation) trim() {
	if c.limit > 0 && len(c.entries) > c.limit {
		c.entries = append([]Entry(nil), c.entries[len(c.entries)-c.limit:]...)
	}
}

func (c *Conversation) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Entry(nil), c.entries...)
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Render returns the history as "role: content" lines, oldest first.
func (c *Conversation) Render() string {
	entries := c.Entries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Role, e.Content))
	}
	return strings.Join(lines, "\n")
}
