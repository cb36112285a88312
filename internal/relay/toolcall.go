package relay

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ToolCall is a namespaced tool invocation picked by the model.
type ToolCall struct {
	Alias      string
	Tool       string
	Parameters map[string]any
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")

// ParseToolCall extracts a tool call from a model reply. It looks for a
// fenced code block, then for the first balanced JSON object, then tries the
// whole reply. The first candidate that decodes to a JSON object decides the
// outcome; ok is false when nothing decodes or the object is not a call.
func ParseToolCall(reply string) (ToolCall, bool) {
	obj, found := firstObject(reply)
	if !found {
		return ToolCall{}, false
	}
	return toolCallFrom(obj)
}

func firstObject(reply string) (map[string]any, bool) {
	var candidates []string
	if m := fencedBlock.FindStringSubmatch(reply); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if s, ok := balancedObject(reply); ok {
		candidates = append(candidates, s)
	}
	candidates = append(candidates, strings.TrimSpace(reply))

	for _, c := range candidates {
		var obj map[string]any
		if err := json.Unmarshal([]byte(c), &obj); err == nil && obj != nil {
			return obj, true
		}
	}
	return nil, false
}

// balancedObject returns the first substring starting at '{' whose braces
// balance, skipping braces inside JSON strings.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func toolCallFrom(obj map[string]any) (ToolCall, bool) {
	name, ok := obj["tool"].(string)
	if !ok {
		return ToolCall{}, false
	}
	rawParams, present := obj["parameters"]
	if !present {
		return ToolCall{}, false
	}

	params := map[string]any{}
	if rawParams != nil {
		p, ok := rawParams.(map[string]any)
		if !ok {
			return ToolCall{}, false
		}
		params = p
	}

	alias, tool, found := strings.Cut(name, ".")
	if !found || alias == "" || tool == "" {
		return ToolCall{}, false
	}
	return ToolCall{Alias: alias, Tool: tool, Parameters: params}, true
}
