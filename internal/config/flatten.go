package config

import (
	"strings"
)

// Flatten maps every leaf of a nested config document to its dotted key:
// {"a": {"b": 1}} becomes {"a.b": 1}. An empty object is a leaf, so a
// Flatten/Unflatten round trip keeps it in the file.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, v := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok && len(child) > 0 {
				walk(key, child)
				continue
			}
			out[key] = v
		}
	}
	walk("", m)
	return out
}

// Unflatten rebuilds the nested document from dotted keys. Where a key
// needs a parent object and a scalar holds that place, the object wins.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, v := range flat {
		parts := strings.Split(key, ".")
		parent := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := parent[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				parent[part] = next
			}
			parent = next
		}
		leaf := parts[len(parts)-1]
		if existing, ok := parent[leaf].(map[string]any); ok && len(existing) > 0 {
			continue
		}
		parent[leaf] = v
	}
	return out
}
