// Package schema holds the in-memory representation of a JSON Schema document.
//
// A document is the value model produced by encoding/json: objects are
// map[string]any, arrays are []any, and leaves are string, float64, bool or
// nil. Code that patches documents walks that model generically and never
// assumes an entity-specific shape.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Node is an object-rooted schema document or fragment.
type Node = map[string]any

// Decode parses a JSON document whose root must be an object.
func Decode(data []byte) (Node, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("error parsing schema document: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("error parsing schema document: trailing data after the root value")
	}
	n, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema document root must be an object, got %s", Kind(v))
	}
	return n, nil
}

// Encode renders a node as indented JSON. Map keys are sorted by
// encoding/json, so equal trees encode to identical bytes.
func Encode(n Node) ([]byte, error) {
	return json.MarshalIndent(n, "", "  ")
}

// Normalize converts an arbitrary decoded value (for example from YAML)
// into the JSON value model by round-tripping it through encoding/json.
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not representable as JSON: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	if n == nil {
		return nil
	}
	return CloneValue(n).(map[string]any)
}

// CloneValue deep-copies maps and slices. Leaves are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, c := range t {
			out[k] = CloneValue(c)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, c := range t {
			out[i] = CloneValue(c)
		}
		return out
	default:
		return v
	}
}

// Lookup descends from n through the given property names. It reports false
// as soon as a segment is missing or an intermediate value is not an object.
func Lookup(n Node, path []string) (any, bool) {
	var cur any = n
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Kind names the JSON type of v for error messages.
func Kind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
