package adapter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/skosovsky/chatform"
)

// Sentinel errors for adapter implementations. Callers should use errors.Is.
var (
	ErrInvalidInput    = errors.New("adapter: input does not match provider schema")
	ErrUnsupportedPart = errors.New("adapter: content part cannot be expressed in this provider dialect")
	ErrMalformedArgs   = errors.New("adapter: tool call arguments JSON is malformed")
)

// Shorthand maps a bare string input to a single text message whose role is
// chosen by direction. ok is false for non-string input.
func Shorthand(input any, dir chatform.Direction) ([]chatform.Message, bool) {
	s, ok := input.(string)
	if !ok {
		return nil, false
	}
	msg := chatform.Message{
		Role:  dir.ShorthandRole(),
		Parts: []chatform.Part{chatform.TextPart{Content: s}},
	}
	return []chatform.Message{msg}, true
}

// Messages coerces a decoded JSON value into a list of message objects.
// Accepts []map[string]any and []any whose elements are objects.
func Messages(input any) ([]map[string]any, error) {
	switch x := input.(type) {
	case []map[string]any:
		return x, nil
	case []any:
		out := make([]map[string]any, 0, len(x))
		for i, el := range x {
			m, ok := el.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: message %d is not an object", ErrInvalidInput, i)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected message list, got %T", ErrInvalidInput, input)
	}
}

// Objects coerces a decoded JSON array into object elements, for content
// block lists inside a message.
func Objects(v any) ([]map[string]any, bool) {
	switch x := v.(type) {
	case []map[string]any:
		return x, true
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, el := range x {
			m, ok := el.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	default:
		return nil, false
	}
}

// Str reads a string field from a raw object, "" when absent or not a string.
func Str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// Opaque collects every field of a raw entity that the adapter did not model:
// all keys except the modeled ones and the metadata containers. This is how
// adapters honor the never-drop-vendor-data rule.
func Opaque(m map[string]any, modeled ...string) map[string]any {
	skip := make(map[string]bool, len(modeled))
	for _, k := range modeled {
		skip[k] = true
	}
	out := make(map[string]any)
	for k, v := range m {
		if !skip[k] && !chatform.IsContainerKey(k) {
			out[k] = v
		}
	}
	return out
}

// DecodeArgs leniently decodes a JSON-encoded arguments string. The original
// string comes back unchanged when it is not valid JSON, for callers that
// must not fail on malformed vendor data.
func DecodeArgs(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// TextFromParts extracts concatenated text from parts, ignoring non-text
// parts. Used by dialects that collapse a part list into one string; pair
// with chatform.GatherPartsMeta so per-part metadata survives the collapse.
func TextFromParts(parts []chatform.Part) string {
	var out string
	for _, p := range parts {
		if t, ok := p.(chatform.TextPart); ok {
			out += t.Content
		}
	}
	return out
}
