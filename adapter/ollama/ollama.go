package ollama

import (
	"encoding/json"
	"fmt"

	"github.com/skosovsky/chatform"
	"github.com/skosovsky/chatform/adapter"
	"github.com/skosovsky/chatform/internal/cast"
)

// Adapter implements the chatform adapter contract for the Ollama chat
// dialect. Content is a single string, so this is the adapter that exercises
// parts-metadata promotion: envelopes of the collapsed parts ride on the
// message and return to the first part on the reverse hop.
type Adapter struct{}

// New returns an Ollama adapter.
func New() *Adapter { return &Adapter{} }

func init() { chatform.Register(New()) }

// ID implements chatform.Adapter.
func (*Adapter) ID() string { return chatform.ProviderOllama }

// SupportsSystem implements chatform.Adapter. System content is an in-band
// message role in this dialect.
func (*Adapter) SupportsSystem() bool { return false }

// ToCanonical implements chatform.Adapter.
func (a *Adapter) ToCanonical(input, _ any, dir chatform.Direction) ([]chatform.Message, error) {
	if msgs, ok := adapter.Shorthand(input, dir); ok {
		return msgs, nil
	}
	raw, err := adapter.Messages(input)
	if err != nil {
		return nil, err
	}
	out := make([]chatform.Message, 0, len(raw))
	for i, rm := range raw {
		msg, err := decodeMessage(rm)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func decodeMessage(rm map[string]any) (chatform.Message, error) {
	role := adapter.Str(rm, "role")
	if role == "" {
		return chatform.Message{}, fmt.Errorf("%w: missing role", adapter.ErrInvalidInput)
	}
	if _, isList := rm["content"].([]any); isList {
		return chatform.Message{}, fmt.Errorf("%w: content must be a string", adapter.ErrInvalidInput)
	}
	msg := chatform.Message{Role: chatform.Role(role)}
	content := adapter.Str(rm, "content")

	var parts []chatform.Part
	if thinking := adapter.Str(rm, "thinking"); thinking != "" {
		parts = append(parts, chatform.ReasoningPart{Content: thinking})
	}
	if role == string(chatform.RoleTool) {
		result := chatform.ToolResultPart{Name: adapter.Str(rm, "tool_name"), Content: content}
		parts = append(parts, result)
	} else if content != "" || len(parts) == 0 && rm["images"] == nil && rm["tool_calls"] == nil {
		parts = append(parts, chatform.TextPart{Content: content})
	}
	if rm["images"] != nil {
		images, ok := cast.ToStringSlice(rm["images"])
		if !ok {
			return chatform.Message{}, fmt.Errorf("%w: images must be a list of base64 strings", adapter.ErrInvalidInput)
		}
		for _, data := range images {
			parts = append(parts, chatform.BlobPart{Modality: "image", Content: data})
		}
	}
	if rm["tool_calls"] != nil {
		calls, ok := adapter.Objects(rm["tool_calls"])
		if !ok {
			return chatform.Message{}, fmt.Errorf("%w: tool_calls must be an object list", adapter.ErrInvalidInput)
		}
		for i, call := range calls {
			part, err := decodeToolCall(call)
			if err != nil {
				return chatform.Message{}, fmt.Errorf("tool call %d: %w", i, err)
			}
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return chatform.Message{}, fmt.Errorf("%w: message has no content", adapter.ErrInvalidInput)
	}

	env := chatform.ReadEnvelope(rm)
	parts, env = chatform.RestorePartsMeta(env, parts)
	parts = liftToolResultID(parts)
	msg.Parts = parts
	opaque := adapter.Opaque(rm, "role", "content", "images", "thinking", "tool_calls", "tool_name")
	msg.Meta = chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
	return msg, nil
}

func decodeToolCall(call map[string]any) (chatform.Part, error) {
	fn, ok := call["function"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: tool call missing function", adapter.ErrInvalidInput)
	}
	name := adapter.Str(fn, "name")
	if name == "" {
		return nil, fmt.Errorf("%w: tool call missing function name", adapter.ErrInvalidInput)
	}
	env := chatform.ReadEnvelope(call)
	opaque := adapter.Opaque(call, "function")
	if inner := adapter.Opaque(fn, "name", "arguments"); len(inner) > 0 {
		opaque["function"] = inner
	}
	part := chatform.ToolCallPart{Name: name, Arguments: fn["arguments"]}
	// The dialect has no call ids; an id preserved from a previous hop rides
	// in the opaque bag and is lifted back into the canonical field here.
	meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
	if meta != nil {
		if id, ok := meta.Extra["id"].(string); ok {
			part.ID = id
			meta = dropExtra(meta, "id")
		}
	}
	part.Meta = meta
	return part, nil
}

// liftToolResultID moves a preserved tool_call_id from the restored first
// part envelope back into the canonical tool result field.
func liftToolResultID(parts []chatform.Part) []chatform.Part {
	for i, p := range parts {
		result, ok := p.(chatform.ToolResultPart)
		if !ok {
			continue
		}
		pm := chatform.PartMeta(p)
		if pm == nil {
			continue
		}
		if id, ok := pm.Extra["tool_call_id"].(string); ok {
			result.ID = id
			result.Meta = dropExtra(pm, "tool_call_id")
			out := make([]chatform.Part, len(parts))
			copy(out, parts)
			out[i] = result
			return out
		}
	}
	return parts
}

func dropExtra(env *chatform.Envelope, key string) *chatform.Envelope {
	out := env.Clone()
	delete(out.Extra, key)
	if out.IsZero() {
		return nil
	}
	return out
}

// FromCanonical implements chatform.Emitter.
func (a *Adapter) FromCanonical(msgs []chatform.Message, _ chatform.Direction, mode chatform.MetadataMode) (*chatform.Output, error) {
	out := make([]map[string]any, 0, len(msgs))
	for i, m := range msgs {
		rm, err := encodeMessage(m, mode)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, rm)
	}
	return &chatform.Output{Messages: out}, nil
}

func encodeMessage(m chatform.Message, mode chatform.MetadataMode) (map[string]any, error) {
	rm := map[string]any{"role": string(m.Role)}
	var content, thinking string
	var images []any
	var calls []any
	var collapsed []chatform.Part
	for _, p := range m.Parts {
		switch x := p.(type) {
		case chatform.TextPart:
			content += x.Content
			collapsed = append(collapsed, p)
		case chatform.ReasoningPart:
			thinking += x.Content
			collapsed = append(collapsed, p)
		case chatform.BlobPart:
			if x.Modality != "image" {
				return nil, fmt.Errorf("%w: %s blob", adapter.ErrUnsupportedPart, x.Modality)
			}
			images = append(images, x.Content)
			collapsed = append(collapsed, p)
		case chatform.ToolCallPart:
			calls = append(calls, encodeToolCall(x, mode))
		case chatform.ToolResultPart:
			rm["role"] = string(chatform.RoleTool)
			content += stringifyContent(x.Content)
			if name := toolResultName(x); name != "" {
				rm["tool_name"] = name
			}
			collapsed = append(collapsed, stashToolResultID(x))
		default:
			return nil, fmt.Errorf("%w: %T", adapter.ErrUnsupportedPart, p)
		}
	}
	rm["content"] = content
	if thinking != "" {
		rm["thinking"] = thinking
	}
	if images != nil {
		rm["images"] = images
	}
	if calls != nil {
		rm["tool_calls"] = calls
	}
	// Collapsing parts into strings would lose their envelopes; promote them
	// into the message-level parts slot instead.
	env := chatform.PromoteParts(m.Meta, chatform.GatherPartsMeta(collapsed))
	return chatform.ApplyOutputMode(rm, env, mode, chatform.SnakeKeys), nil
}

// stashToolResultID keeps the canonical call id alive through a dialect that
// has no field for it.
func stashToolResultID(x chatform.ToolResultPart) chatform.Part {
	if x.ID == "" {
		return x
	}
	env := chatform.MergeEnvelope(chatform.PartMeta(x), map[string]any{"tool_call_id": x.ID}, chatform.KnownFields{})
	return chatform.WithPartMeta(x, env)
}

func encodeToolCall(x chatform.ToolCallPart, mode chatform.MetadataMode) map[string]any {
	args := x.Arguments
	if s, ok := args.(string); ok {
		// Arguments that arrived as a JSON string from another dialect become
		// the object this dialect expects.
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			args = decoded
		}
	}
	if args == nil {
		args = map[string]any{}
	}
	fn := map[string]any{"name": x.Name, "arguments": args}
	pm := chatform.PartMeta(x)
	if pm != nil {
		if inner, ok := pm.Extra["function"].(map[string]any); ok {
			for k, v := range inner {
				if _, exists := fn[k]; !exists {
					fn[k] = v
				}
			}
		}
	}
	if x.ID != "" {
		pm = chatform.MergeEnvelope(pm, map[string]any{"id": x.ID}, chatform.KnownFields{})
	}
	return chatform.ApplyOutputMode(map[string]any{"function": fn}, pm, mode, chatform.SnakeKeys)
}

func toolResultName(x chatform.ToolResultPart) string {
	if x.Name != "" {
		return x.Name
	}
	if pm := chatform.PartMeta(x); pm != nil {
		return pm.Known.ToolName
	}
	return ""
}

func stringifyContent(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}

// Compile-time check that the adapter is bidirectional.
var _ chatform.Emitter = (*Adapter)(nil)
