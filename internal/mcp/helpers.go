package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseFields decodes a JSON object argument. An empty string yields an
// empty map.
func parseFields(args map[string]any, key string) (map[string]any, error) {
	out := map[string]any{}
	switch v := args[key].(type) {
	case nil:
		return out, nil
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return out, nil
		}
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		if out == nil {
			return nil, fmt.Errorf("parse %s: expected a JSON object", key)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parse %s: expected a JSON object, got %T", key, v)
	}
}

func boolPtr(b bool) *bool { return &b }
