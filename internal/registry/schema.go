package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"
)

var knownPropertyTypes = []string{"string", "number", "integer", "boolean", "object", "array"}

// validateSchema checks a tool declaration once, at registration time.
func validateSchema(tool mcp.Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("%w: tool name cannot be empty", ErrInvalidSchema)
	}
	if tool.RawInputSchema != nil {
		return fmt.Errorf("%w: tool %s: raw schemas are not supported", ErrInvalidSchema, tool.Name)
	}
	if tool.InputSchema.Type != "object" {
		return fmt.Errorf("%w: tool %s: schema type must be object, got %q", ErrInvalidSchema, tool.Name, tool.InputSchema.Type)
	}

	undeclared := lo.Filter(tool.InputSchema.Required, func(name string, _ int) bool {
		_, ok := tool.InputSchema.Properties[name]
		return !ok
	})
	if len(undeclared) > 0 {
		return fmt.Errorf("%w: tool %s: required parameters not declared: %s",
			ErrInvalidSchema, tool.Name, strings.Join(undeclared, ", "))
	}

	for name, raw := range tool.InputSchema.Properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: tool %s: property %q is not an object", ErrInvalidSchema, tool.Name, name)
		}
		typ, _ := prop["type"].(string)
		if !lo.Contains(knownPropertyTypes, typ) {
			return fmt.Errorf("%w: tool %s: property %q has unsupported type %q", ErrInvalidSchema, tool.Name, name, typ)
		}
	}
	return nil
}

// bindArguments checks args against the tool schema and returns a copy with
// defaults filled in for absent optional parameters.
func bindArguments(tool mcp.Tool, args map[string]any) (map[string]any, error) {
	bound := make(map[string]any, len(tool.InputSchema.Properties))
	for k, v := range args {
		bound[k] = v
	}

	missing := lo.Filter(tool.InputSchema.Required, func(name string, _ int) bool {
		v, ok := args[name]
		return !ok || v == nil
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required parameter(s): %s", ErrInvalidParameters, strings.Join(missing, ", "))
	}

	for name, raw := range tool.InputSchema.Properties {
		prop, _ := raw.(map[string]any)
		typ, _ := prop["type"].(string)

		value, ok := bound[name]
		if !ok || value == nil {
			if def, hasDefault := prop["default"]; hasDefault {
				bound[name] = def
			}
			continue
		}
		if !matchesType(typ, value) {
			return nil, fmt.Errorf("%w: parameter %q must be of type %s, got %T", ErrInvalidParameters, name, typ, value)
		}
	}
	return bound, nil
}

func matchesType(typ string, value any) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := asFloat(value)
		return ok
	case "integer":
		f, ok := asFloat(value)
		return ok && f == math.Trunc(f)
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		switch value.(type) {
		case []any, []string, []float64, []int:
			return true
		}
		return false
	}
	return false
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
