package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ExtractGroups handles both flat and nested group attributes asserted by a federated identity provider.
// Supports:
//   - Flat arrays: ["Reviewers", "Staff"]
//   - Nested objects: [{"name": "Reviewers"}] with claimPath="name"
func ExtractGroups(claims map[string]any, claimField string, claimPath string) ([]string, error) {
	rawValue, ok := claims[claimField]
	if !ok {
		// Not an error; the user may belong to no groups.
		return []string{}, nil
	}

	if groups, ok := rawValue.([]any); ok {
		result := make([]string, 0, len(groups))
		for _, g := range groups {
			if str, ok := g.(string); ok {
				result = append(result, str)
			}
		}
		if len(result) > 0 {
			return result, nil
		}
	}

	if claimPath != "" {
		return extractNestedGroups(rawValue, claimPath)
	}

	return nil, fmt.Errorf("groups attribute invalid format (expected []string or []object with path)")
}

// extractNestedGroups uses mapstructure to extract from nested objects.
// Only single-level paths like "name", "value" or "id" are supported.
func extractNestedGroups(rawValue any, path string) ([]string, error) {
	if path != "name" && path != "value" && path != "id" {
		return nil, fmt.Errorf("complex nested paths not supported (path: %s)", path)
	}

	var objects []map[string]any
	if err := mapstructure.Decode(rawValue, &objects); err != nil {
		return nil, fmt.Errorf("failed to decode nested groups: %w", err)
	}

	result := make([]string, 0, len(objects))
	for _, obj := range objects {
		if val, ok := obj[path].(string); ok {
			result = append(result, val)
		}
	}
	return result, nil
}

// ParseGroupHeader reads a federated groups header. A JSON array is decoded
// through ExtractGroups; anything else is treated as a ';' or ',' separated list.
func ParseGroupHeader(value, claimPath string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}, nil
	}

	if strings.HasPrefix(value, "[") {
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err != nil {
			return nil, fmt.Errorf("decode groups header: %w", err)
		}
		return ExtractGroups(map[string]any{"groups": decoded}, "groups", claimPath)
	}

	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ';' || r == ',' })
	result := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			result = append(result, f)
		}
	}
	return result, nil
}
