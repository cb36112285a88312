package tools

import (
	"fmt"
	"sort"

	"github.com/tailabs/mcp-relay/internal/instance"
	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/samber/lo"
)

const (
	Echo         registry.ToolName = "echo"
	Repeat       registry.ToolName = "repeat"
	Chat         registry.ToolName = "chat"
	Ls           registry.ToolName = "ls"
	Cd           registry.ToolName = "cd"
	CountLetters registry.ToolName = "count_letters"
	Fibonacci    registry.ToolName = "fibonacci"
)

// Profile selects which tools a server process exposes.
type Profile string

const (
	ProfileConversation Profile = "conversation"
	ProfileMath         Profile = "math"
	ProfileFiles        Profile = "files"
	ProfileWebSocket    Profile = "websocket"
)

// ProfileInfo describes a server profile.
type ProfileInfo struct {
	Title       string
	Description string
	tools       func(inst *instance.Instance) []registry.ToolRegistrar
	history     bool
}

var profiles = map[Profile]ProfileInfo{
	ProfileConversation: {
		Title:       "Tools Server",
		Description: "A server providing echo and conversation history tools",
		tools: func(inst *instance.Instance) []registry.ToolRegistrar {
			return []registry.ToolRegistrar{
				&EchoTool{Prefix: "Echo: "},
				&ChatTool{Conversation: inst.Conversation},
				&RepeatTool{},
			}
		},
		history: true,
	},
	ProfileMath: {
		Title:       "Math Tools Server",
		Description: "A server providing letter counting and fibonacci tools",
		tools: func(inst *instance.Instance) []registry.ToolRegistrar {
			return []registry.ToolRegistrar{&CountLettersTool{}, &FibonacciTool{}}
		},
	},
	ProfileFiles: {
		Title:       "File System Tools Server",
		Description: "A server providing file system navigation tools",
		tools: func(inst *instance.Instance) []registry.ToolRegistrar {
			return []registry.ToolRegistrar{
				&LsTool{Workspace: inst.Workspace},
				&CdTool{Workspace: inst.Workspace},
			}
		},
	},
	ProfileWebSocket: {
		Title:       "WebSocket Tools Server",
		Description: "A WebSocket server providing echo, repeat and chat tools",
		tools: func(inst *instance.Instance) []registry.ToolRegistrar {
			return []registry.ToolRegistrar{
				&EchoTool{},
				&RepeatTool{},
				&ChatTool{Conversation: inst.Conversation},
			}
		},
		history: true,
	},
}

// Lookup returns the description of a profile.
func Lookup(p Profile) (ProfileInfo, error) {
	info, ok := profiles[p]
	if !ok {
		return ProfileInfo{}, fmt.Errorf("unknown profile %q, expected one of %v", p, Profiles())
	}
	return info, nil
}

// Profiles lists the known profile names.
func Profiles() []Profile {
	names := lo.Keys(profiles)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Build creates the registry for a profile bound to inst.
func Build(p Profile, inst *instance.Instance) (*registry.Registry, error) {
	info, err := Lookup(p)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	if err := reg.RegisterAll(info.tools(inst)...); err != nil {
		return nil, fmt.Errorf("registering %s tools: %w", p, err)
	}
	if info.history {
		if err := RegisterHistory(reg.Resources(), inst.Conversation); err != nil {
			return nil, fmt.Errorf("registering %s resources: %w", p, err)
		}
	}
	return reg, nil
}
