package tools

import (
	"github.com/tailabs/mcp-relay/internal/instance"
	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/sirupsen/logrus"
)

const HistoryURI = "conversation://history"

// RegisterHistory exposes the conversation as the conversation://history resource.
func RegisterHistory(resources *registry.ResourceRegistry, conv *instance.Conversation) error {
	return resources.Register(HistoryURI, "conversation_history", "Get the current conversation history", func() string {
		logrus.WithField("length", conv.Len()).Info("Conversation history requested")
		return conv.Render()
	})
}
