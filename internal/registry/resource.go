package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Producer renders the current value of a resource.
type Producer func() string

type resourceEntry struct {
	resource mcp.Resource
	producer Producer
}

// ResourceRegistry maps resource URIs to producers. Values are recomputed on
// every fetch.
type ResourceRegistry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]resourceEntry
}

func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{entries: make(map[string]resourceEntry)}
}

func (r *ResourceRegistry) Register(uri, name, description string, producer Producer) error {
	if uri == "" || producer == nil {
		return fmt.Errorf("%w: resource needs a uri and a producer", ErrInvalidSchema)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[uri]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateResource, uri)
	}
	r.entries[uri] = resourceEntry{
		resource: mcp.NewResource(uri, name,
			mcp.WithResourceDescription(description),
			mcp.WithMIMEType("text/plain"),
		),
		producer: producer,
	}
	r.order = append(r.order, uri)
	return nil
}

func (r *ResourceRegistry) Fetch(uri string) (string, error) {
	r.mu.RLock()
	entry, ok := r.entries[uri]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownResource, uri)
	}
	return entry.producer(), nil
}

// List returns the resource descriptors in registration order.
func (r *ResourceRegistry) List() []mcp.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Resource, 0, len(r.order))
	for _, uri := range r.order {
		out = append(out, r.entries[uri].resource)
	}
	return out
}

func (r *ResourceRegistry) Mount(s *server.MCPServer) {
	for _, res := range r.List() {
		uri := res.URI
		s.AddResource(res, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			text, err := r.Fetch(uri)
			if err != nil {
				return nil, err
			}
			// mcp-go clients reject text contents with an empty text field.
			if text == "" {
				return []mcp.ResourceContents{}, nil
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{URI: uri, MIMEType: "text/plain", Text: text},
			}, nil
		})
	}
}
