package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skosovsky/chatform"
	"github.com/skosovsky/chatform/adapter"
)

// Adapter implements the chatform adapter contract for the OpenAI Chat
// Completions message dialect.
type Adapter struct{}

// New returns an OpenAI adapter.
func New() *Adapter { return &Adapter{} }

func init() { chatform.Register(New()) }

// ID implements chatform.Adapter.
func (*Adapter) ID() string { return chatform.ProviderOpenAI }

// SupportsSystem implements chatform.Adapter. The dialect carries system
// instructions only as in-band system messages.
func (*Adapter) SupportsSystem() bool { return false }

// Content part types this dialect models. Unknown types fail validation;
// the heuristic fallback adapter handles novel shapes.
const (
	itemText       = "text"
	itemImageURL   = "image_url"
	itemInputAudio = "input_audio"
	itemFile       = "file"
	itemRefusal    = "refusal"
)

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
		msg, err := a.decodeMessage(rm)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func (a *Adapter) decodeMessage(rm map[string]any) (chatform.Message, error) {
	role := adapter.Str(rm, "role")
	if role == "" {
		return chatform.Message{}, fmt.Errorf("%w: missing role", adapter.ErrInvalidInput)
	}
	msg := chatform.Message{Role: chatform.Role(role), Name: adapter.Str(rm, "name")}
	msg.FinishReason = adapter.Str(rm, "finish_reason")

	// Reasoning precedes the answer text in canonical part order.
	for _, key := range []string{"reasoning_content", "reasoning"} {
		if rc, ok := rm[key].(string); ok && rc != "" {
			meta := chatform.MergeEnvelope(nil, nil, chatform.KnownFields{OriginalType: key})
			msg.Parts = append(msg.Parts, chatform.ReasoningPart{Content: rc, Meta: meta})
			break
		}
	}

	switch content := rm["content"].(type) {
	case nil:
	case string:
		if content != "" || !hasToolCalls(rm) {
			msg.Parts = append(msg.Parts, chatform.TextPart{Content: content})
		}
	default:
		items, ok := adapter.Objects(content)
		if !ok {
			return chatform.Message{}, fmt.Errorf("%w: content must be a string or object list", adapter.ErrInvalidInput)
		}
		for j, item := range items {
			part, err := decodeContentItem(item)
			if err != nil {
				return chatform.Message{}, fmt.Errorf("content %d: %w", j, err)
			}
			msg.Parts = append(msg.Parts, part)
		}
	}

	if refusal, ok := rm["refusal"].(string); ok && refusal != "" {
		yes := true
		meta := chatform.MergeEnvelope(nil, nil, chatform.KnownFields{IsRefusal: &yes})
		msg.Parts = append(msg.Parts, chatform.TextPart{Content: refusal, Meta: meta})
	}

	if calls, ok := adapter.Objects(rm["tool_calls"]); ok && rm["tool_calls"] != nil {
		for j, call := range calls {
			part, err := decodeToolCall(call)
			if err != nil {
				return chatform.Message{}, fmt.Errorf("tool call %d: %w", j, err)
			}
			msg.Parts = append(msg.Parts, part)
		}
	} else if rm["tool_calls"] != nil {
		return chatform.Message{}, fmt.Errorf("%w: tool_calls must be an object list", adapter.ErrInvalidInput)
	}

	if id := adapter.Str(rm, "tool_call_id"); id != "" {
		result := chatform.ToolResultPart{ID: id, Name: adapter.Str(rm, "name")}
		if s, ok := rm["content"].(string); ok {
			result.Content = s
		}
		// The content text already decoded above belongs to the result.
		msg.Parts = []chatform.Part{result}
	}

	if len(msg.Parts) == 0 {
		return chatform.Message{}, fmt.Errorf("%w: message has no content", adapter.ErrInvalidInput)
	}

	env := chatform.ReadEnvelope(rm)
	opaque := adapter.Opaque(rm,
		"role", "content", "name", "finish_reason", "refusal",
		"reasoning_content", "reasoning", "tool_calls", "tool_call_id")
	msg.Meta = chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
	return msg, nil
}

func hasToolCalls(rm map[string]any) bool {
	calls, ok := rm["tool_calls"].([]any)
	return ok && len(calls) > 0
}

func decodeContentItem(item map[string]any) (chatform.Part, error) {
	env := chatform.ReadEnvelope(item)
	switch typ := adapter.Str(item, "type"); typ {
	case itemText:
		opaque := adapter.Opaque(item, "type", "text")
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		return chatform.TextPart{Content: adapter.Str(item, "text"), Meta: meta}, nil
	case itemRefusal:
		yes := true
		opaque := adapter.Opaque(item, "type", "refusal")
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{IsRefusal: &yes})
		return chatform.TextPart{Content: adapter.Str(item, "refusal"), Meta: meta}, nil
	case itemImageURL:
		img, ok := item["image_url"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: image_url must be an object", adapter.ErrInvalidInput)
		}
		opaque := adapter.Opaque(item, "type", "image_url")
		if inner := adapter.Opaque(img, "url"); len(inner) > 0 {
			opaque["image_url"] = inner
		}
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		url := adapter.Str(img, "url")
		if modality, mime, data, ok := splitDataURL(url); ok {
			return chatform.BlobPart{Modality: modality, MIMEType: mime, Content: data, Meta: meta}, nil
		}
		return chatform.URIPart{Modality: "image", URI: url, Meta: meta}, nil
	case itemInputAudio:
		audio, ok := item["input_audio"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: input_audio must be an object", adapter.ErrInvalidInput)
		}
		opaque := adapter.Opaque(item, "type", "input_audio")
		format := adapter.Str(audio, "format")
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		mime := ""
		if format != "" {
			mime = "audio/" + format
		}
		return chatform.BlobPart{Modality: "audio", MIMEType: mime, Content: adapter.Str(audio, "data"), Meta: meta}, nil
	case itemFile:
		file, ok := item["file"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: file must be an object", adapter.ErrInvalidInput)
		}
		opaque := adapter.Opaque(item, "type", "file")
		if inner := adapter.Opaque(file, "file_id"); len(inner) > 0 {
			opaque["file"] = inner
		}
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		return chatform.FilePart{ID: adapter.Str(file, "file_id"), Meta: meta}, nil
	default:
		return nil, fmt.Errorf("%w: unknown content type %q", adapter.ErrInvalidInput, typ)
	}
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
	var args any
	if raw := adapter.Str(fn, "arguments"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, fmt.Errorf("%w: %w", adapter.ErrMalformedArgs, err)
		}
	}
	env := chatform.ReadEnvelope(call)
	opaque := adapter.Opaque(call, "id", "type", "function")
	if inner := adapter.Opaque(fn, "name", "arguments"); len(inner) > 0 {
		opaque["function"] = inner
	}
	meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
	return chatform.ToolCallPart{ID: adapter.Str(call, "id"), Name: name, Arguments: args, Meta: meta}, nil
}

// splitDataURL decodes a data: URL into modality, MIME type, and base64 data.
func splitDataURL(url string) (modality, mime, data string, ok bool) {
	if !strings.HasPrefix(url, "data:") {
		return "", "", "", false
	}
	rest := strings.TrimPrefix(url, "data:")
	semi := strings.Index(rest, ";base64,")
	if semi < 0 {
		return "", "", "", false
	}
	mime = rest[:semi]
	data = rest[semi+len(";base64,"):]
	modality = mime
	if slash := strings.Index(mime, "/"); slash >= 0 {
		modality = mime[:slash]
	}
	return modality, mime, data, true
}

// FromCanonical implements chatform.Emitter.
func (a *Adapter) FromCanonical(msgs []chatform.Message, _ chatform.Direction, mode chatform.MetadataMode) (*chatform.Output, error) {
	out := make([]map[string]any, 0, len(msgs))
	for i, m := range msgs {
		rm, err := a.encodeMessage(m, mode)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, rm)
	}
	return &chatform.Output{Messages: out}, nil
}

func (a *Adapter) encodeMessage(m chatform.Message, mode chatform.MetadataMode) (map[string]any, error) {
	rm := map[string]any{"role": string(m.Role)}
	if m.Name != "" {
		rm["name"] = m.Name
	}
	if m.FinishReason != "" {
		rm["finish_reason"] = m.FinishReason
	}

	var content []any
	var reasoning strings.Builder
	reasoningKey := "reasoning_content"
	for _, p := range m.Parts {
		switch x := p.(type) {
		case chatform.ReasoningPart:
			reasoning.WriteString(x.Content)
			if pm := chatform.PartMeta(x); pm != nil && pm.Known.OriginalType == "reasoning" {
				reasoningKey = "reasoning"
			}
		case chatform.ToolCallPart:
			rm["tool_calls"] = append(toAnySlice(rm["tool_calls"]), encodeToolCall(x, mode))
		case chatform.ToolResultPart:
			rm["tool_call_id"] = x.ID
			rm["content"] = stringifyContent(x.Content)
			if name := toolResultName(x); name != "" {
				rm["name"] = name
			}
		default:
			item, err := encodeContentItem(p, mode)
			if err != nil {
				return nil, err
			}
			content = append(content, item)
		}
	}
	if reasoning.Len() > 0 {
		rm[reasoningKey] = reasoning.String()
	}

	if _, isToolResult := rm["tool_call_id"]; !isToolResult && len(content) > 0 {
		if text, plain := plainText(m.Parts, content); plain {
			rm["content"] = text
		} else {
			rm["content"] = content
		}
	}
	return chatform.ApplyOutputMode(rm, m.Meta, mode, chatform.SnakeKeys), nil
}

// plainText reports whether the content list can collapse back to a bare
// string without losing anything: a single text part with no envelope and no
// refusal marker.
func plainText(parts []chatform.Part, content []any) (string, bool) {
	if len(content) != 1 {
		return "", false
	}
	for _, p := range parts {
		if t, ok := p.(chatform.TextPart); ok {
			pm := chatform.PartMeta(t)
			if pm.IsZero() {
				return t.Content, true
			}
			return "", false
		}
	}
	return "", false
}

func encodeContentItem(p chatform.Part, mode chatform.MetadataMode) (map[string]any, error) {
	pm := chatform.PartMeta(p)
	switch x := p.(type) {
	case chatform.TextPart:
		if pm != nil && pm.Known.IsRefusal != nil && *pm.Known.IsRefusal {
			return chatform.ApplyOutputMode(map[string]any{"type": itemRefusal, "refusal": x.Content}, pm, mode, chatform.SnakeKeys), nil
		}
		return chatform.ApplyOutputMode(map[string]any{"type": itemText, "text": x.Content}, pm, mode, chatform.SnakeKeys), nil
	case chatform.BlobPart:
		switch x.Modality {
		case "audio":
			audio := map[string]any{"data": x.Content, "format": strings.TrimPrefix(x.MIMEType, "audio/")}
			return chatform.ApplyOutputMode(map[string]any{"type": itemInputAudio, "input_audio": audio}, pm, mode, chatform.SnakeKeys), nil
		default:
			mime := x.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			img := map[string]any{"url": "data:" + mime + ";base64," + x.Content}
			restoreInner(pm, "image_url", img)
			return chatform.ApplyOutputMode(map[string]any{"type": itemImageURL, "image_url": img}, pm, mode, chatform.SnakeKeys), nil
		}
	case chatform.URIPart:
		img := map[string]any{"url": x.URI}
		restoreInner(pm, "image_url", img)
		return chatform.ApplyOutputMode(map[string]any{"type": itemImageURL, "image_url": img}, pm, mode, chatform.SnakeKeys), nil
	case chatform.FilePart:
		file := map[string]any{"file_id": x.ID}
		restoreInner(pm, "file", file)
		return chatform.ApplyOutputMode(map[string]any{"type": itemFile, "file": file}, pm, mode, chatform.SnakeKeys), nil
	case chatform.RawPart:
		item := make(map[string]any, len(x.Fields)+1)
		for k, v := range x.Fields {
			item[k] = v
		}
		item["type"] = x.Type
		return chatform.ApplyOutputMode(item, pm, mode, chatform.SnakeKeys), nil
	default:
		return nil, fmt.Errorf("%w: %T", adapter.ErrUnsupportedPart, p)
	}
}

// restoreInner puts preserved nested-object fields (e.g. image_url.detail)
// back where the dialect keeps them, under any metadata mode. The key is then
// dropped from the opaque bag copy the caller emits.
func restoreInner(pm *chatform.Envelope, key string, target map[string]any) {
	if pm == nil {
		return
	}
	inner, ok := pm.Extra[key].(map[string]any)
	if !ok {
		return
	}
	for k, v := range inner {
		if _, exists := target[k]; !exists {
			target[k] = v
		}
	}
}

func encodeToolCall(x chatform.ToolCallPart, mode chatform.MetadataMode) map[string]any {
	args := "{}"
	switch v := x.Arguments.(type) {
	case nil:
	case string:
		args = v
	default:
		if data, err := json.Marshal(v); err == nil {
			args = string(data)
		}
	}
	fn := map[string]any{"name": x.Name, "arguments": args}
	pm := chatform.PartMeta(x)
	restoreInner(pm, "function", fn)
	call := map[string]any{"id": x.ID, "type": "function", "function": fn}
	return chatform.ApplyOutputMode(call, pm, mode, chatform.SnakeKeys)
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

func toAnySlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}

// Compile-time check that the adapter is bidirectional.
var _ chatform.Emitter = (*Adapter)(nil)
