package fallback

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/skosovsky/chatform"
	"github.com/skosovsky/chatform/adapter"
)

// Adapter is the permissive catch-all at the end of the inference priority
// list. It ingests any syntactically valid payload by sniffing field names
// instead of validating a schema, and it never returns an error. It has no
// emit side: unrecognized dialects can be read, not written.
type Adapter struct{}

// New returns a fallback adapter.
func New() *Adapter { return &Adapter{} }

func init() { chatform.Register(New()) }

// ID implements chatform.Adapter.
func (*Adapter) ID() string { return chatform.ProviderFallback }

// SupportsSystem implements chatform.Adapter.
func (*Adapter) SupportsSystem() bool { return true }

// ToCanonical implements chatform.Adapter. It accepts any decoded value and
// always succeeds.
func (a *Adapter) ToCanonical(input, system any, dir chatform.Direction) ([]chatform.Message, error) {
	var out []chatform.Message
	if sys := systemMessage(system); sys != nil {
		out = append(out, *sys)
	}
	switch v := input.(type) {
	case nil:
	case string:
		if msgs, ok := adapter.Shorthand(v, dir); ok {
			out = append(out, msgs...)
		}
	case map[string]any:
		out = append(out, decodeMessage(unwrap(v), dir)...)
	case []any:
		for _, el := range v {
			out = append(out, decodeValue(el, dir)...)
		}
	case []map[string]any:
		for _, el := range v {
			out = append(out, decodeMessage(el, dir)...)
		}
	default:
		out = append(out, textMessage(fmt.Sprint(v), dir))
	}
	return out, nil
}

func decodeValue(v any, dir chatform.Direction) []chatform.Message {
	switch el := v.(type) {
	case map[string]any:
		return decodeMessage(el, dir)
	case string:
		return []chatform.Message{textMessage(el, dir)}
	case nil:
		return nil
	default:
		return []chatform.Message{textMessage(fmt.Sprint(el), dir)}
	}
}

// unwrap peels a single-message container such as {"messages": [...]} down to
// its payload when the wrapper carries nothing else of interest.
func unwrap(rm map[string]any) map[string]any {
	for _, key := range []string{"messages", "conversation", "history", "contents"} {
		if inner, ok := rm[key].([]any); ok && len(inner) == 1 {
			if m, ok := inner[0].(map[string]any); ok && len(rm) == 1 {
				return m
			}
		}
	}
	return rm
}

func textMessage(text string, dir chatform.Direction) chatform.Message {
	return chatform.Message{
		Role:  dir.ShorthandRole(),
		Parts: []chatform.Part{chatform.TextPart{Content: text}},
	}
}

func systemMessage(system any) *chatform.Message {
	text := sniffText(system)
	if text == "" {
		return nil
	}
	return &chatform.Message{
		Role:  chatform.RoleSystem,
		Parts: []chatform.Part{chatform.TextPart{Content: text}},
	}
}

// norm lowercases a key and strips snake and kebab separators so that
// tool_call_id, toolCallId, and tool-call-id all compare equal.
func norm(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "")
	return strings.ReplaceAll(key, "-", "")
}

// field looks up the first present key by normalized name.
func field(rm map[string]any, names ...string) (any, string) {
	for k, v := range rm {
		nk := norm(k)
		for _, name := range names {
			if nk == name {
				return v, k
			}
		}
	}
	return nil, ""
}

func fieldStr(rm map[string]any, names ...string) (string, string) {
	v, k := field(rm, names...)
	s, _ := v.(string)
	return s, k
}

var roleKeys = []string{"role", "from", "speaker", "author", "sender"}

func decodeMessage(rm map[string]any, dir chatform.Direction) []chatform.Message {
	// A bare content item at the top level still becomes a message.
	if _, k := field(rm, roleKeys...); k == "" {
		if looksLikeItem(rm) {
			msg := chatform.Message{Role: dir.ShorthandRole(), Parts: []chatform.Part{decodeItem(rm)}}
			return []chatform.Message{msg}
		}
	}

	modeled := make([]string, 0, 8)
	role, roleKey := fieldStr(rm, roleKeys...)
	if roleKey != "" {
		modeled = append(modeled, roleKey)
	}
	if role == "" {
		role = string(dir.ShorthandRole())
	}
	msg := chatform.Message{Role: chatform.Role(normalizeRole(role))}

	if name, k := fieldStr(rm, "name"); k != "" {
		msg.Name, modeled = name, append(modeled, k)
	}

	content, contentKey := field(rm, "content", "text", "message", "parts", "body", "value")
	if contentKey != "" {
		modeled = append(modeled, contentKey)
	}
	msg.Parts = append(msg.Parts, decodeContent(content)...)

	if calls, k := field(rm, "toolcalls", "functioncalls"); k != "" {
		modeled = append(modeled, k)
		if list, ok := adapter.Objects(calls); ok {
			for _, call := range list {
				msg.Parts = append(msg.Parts, decodeToolCall(call))
			}
		}
	}
	if id, k := fieldStr(rm, "toolcallid", "toolid", "toolresultid"); k != "" {
		modeled = append(modeled, k)
		text := msg.Text()
		msg.Parts = []chatform.Part{chatform.ToolResultPart{ID: id, Content: text}}
		msg.Role = chatform.RoleTool
	}

	env := chatform.ReadEnvelope(rm)
	msg.Meta = chatform.MergeEnvelope(env, adapter.Opaque(rm, modeled...), chatform.KnownFields{})
	return []chatform.Message{msg}
}

func normalizeRole(role string) string {
	switch strings.ToLower(role) {
	case "human", "usr":
		return string(chatform.RoleUser)
	case "ai", "bot", "model":
		return string(chatform.RoleAssistant)
	default:
		return strings.ToLower(role)
	}
}

func decodeContent(content any) []chatform.Part {
	switch v := content.(type) {
	case nil:
		return nil
	case string:
		return []chatform.Part{chatform.TextPart{Content: v}}
	case map[string]any:
		return []chatform.Part{decodeItem(v)}
	case []any:
		parts := make([]chatform.Part, 0, len(v))
		for _, el := range v {
			switch item := el.(type) {
			case map[string]any:
				parts = append(parts, decodeItem(item))
			case string:
				parts = append(parts, chatform.TextPart{Content: item})
			default:
				parts = append(parts, chatform.TextPart{Content: fmt.Sprint(item)})
			}
		}
		return parts
	default:
		return []chatform.Part{chatform.TextPart{Content: fmt.Sprint(v)}}
	}
}

func looksLikeItem(rm map[string]any) bool {
	_, k := field(rm, "type", "text", "imageurl", "inlinedata", "functioncall", "functionresponse")
	return k != ""
}

func decodeItem(item map[string]any) chatform.Part {
	typ, typKey := fieldStr(item, "type")
	nt := norm(typ)
	switch {
	case strings.Contains(nt, "think") || strings.Contains(nt, "reason"):
		text, k := fieldStr(item, "text", "thinking", "reasoning", "content")
		meta := itemMeta(item, typKey, k)
		return chatform.ReasoningPart{Content: text, Meta: meta}
	case isToolResult(nt, item):
		return decodeToolResult(item)
	case isToolCall(nt, item):
		return decodeToolCall(item)
	case isMedia(nt, item):
		return decodeMedia(nt, item)
	case strings.Contains(nt, "text") || nt == "":
		if text, k := fieldStr(item, "text", "content", "value"); k != "" {
			return chatform.TextPart{Content: text, Meta: itemMeta(item, typKey, k)}
		}
	}
	fields := make(map[string]any, len(item))
	for k, v := range item {
		if k != typKey && !chatform.IsContainerKey(k) {
			fields[k] = v
		}
	}
	return chatform.RawPart{Type: typ, Fields: fields, Meta: chatform.ReadEnvelope(item)}
}

func isToolCall(nt string, item map[string]any) bool {
	if strings.Contains(nt, "tool") && (strings.Contains(nt, "call") || strings.Contains(nt, "use")) {
		return true
	}
	if strings.Contains(nt, "function") && !strings.Contains(nt, "response") {
		return true
	}
	_, k := field(item, "functioncall")
	return k != ""
}

func isToolResult(nt string, item map[string]any) bool {
	if strings.Contains(nt, "tool") || strings.Contains(nt, "function") {
		for _, marker := range []string{"result", "response", "output"} {
			if strings.Contains(nt, marker) {
				return true
			}
		}
	}
	_, k := field(item, "functionresponse")
	return k != ""
}

func isMedia(nt string, item map[string]any) bool {
	for _, marker := range []string{"image", "img", "audio", "video", "file", "document"} {
		if strings.Contains(nt, marker) {
			return true
		}
	}
	_, k := field(item, "imageurl", "inlinedata", "filedata")
	return k != ""
}

func decodeToolCall(item map[string]any) chatform.Part {
	modeled := make([]string, 0, 4)
	if _, k := fieldStr(item, "type"); k != "" {
		modeled = append(modeled, k)
	}
	inner := item
	if fn, k := field(item, "function", "functioncall"); k != "" {
		modeled = append(modeled, k)
		if m, ok := fn.(map[string]any); ok {
			inner = m
		}
	}
	id, idKey := fieldStr(item, "id", "toolcallid", "callid", "tooluseid")
	if idKey != "" {
		modeled = append(modeled, idKey)
	}
	if id == "" {
		id = "call_" + uuid.NewString()
	}
	name, _ := fieldStr(inner, "name", "toolname", "functionname", "tool")
	args, _ := field(inner, "arguments", "args", "input", "parameters", "params")
	if s, ok := args.(string); ok {
		args = adapter.DecodeArgs(s)
	}
	return chatform.ToolCallPart{ID: id, Name: name, Arguments: args, Meta: itemMeta(item, modeled...)}
}

func decodeToolResult(item map[string]any) chatform.Part {
	modeled := make([]string, 0, 4)
	if _, k := fieldStr(item, "type"); k != "" {
		modeled = append(modeled, k)
	}
	inner := item
	if fn, k := field(item, "functionresponse"); k != "" {
		modeled = append(modeled, k)
		if m, ok := fn.(map[string]any); ok {
			inner = m
		}
	}
	id, idKey := fieldStr(item, "toolcallid", "tooluseid", "id", "callid")
	if idKey != "" {
		modeled = append(modeled, idKey)
	}
	name, _ := fieldStr(inner, "name", "toolname", "tool")
	content, _ := field(inner, "content", "result", "response", "output")
	isErr := false
	if v, k := field(item, "iserror", "error"); k != "" {
		modeled = append(modeled, k)
		b, _ := v.(bool)
		isErr = b
	}
	return chatform.ToolResultPart{ID: id, Name: name, Content: content, IsError: isErr, Meta: itemMeta(item, modeled...)}
}

func decodeMedia(nt string, item map[string]any) chatform.Part {
	modality := "image"
	for _, m := range []string{"audio", "video", "file", "document"} {
		if strings.Contains(nt, m) {
			modality = m
		}
	}
	if uri, k := fieldStr(item, "url", "uri", "imageurl", "fileuri"); k != "" && !strings.HasPrefix(uri, "data:") {
		return chatform.URIPart{Modality: modality, URI: uri, Meta: itemMeta(item, k)}
	}
	if data, k := fieldStr(item, "data", "base64", "image", "b64json"); k != "" {
		mime, mimeKey := fieldStr(item, "mimetype", "mediatype")
		return chatform.BlobPart{Modality: modality, MIMEType: mime, Content: data, Meta: itemMeta(item, k, mimeKey)}
	}
	fields := make(map[string]any, len(item))
	for k, v := range item {
		if !chatform.IsContainerKey(k) {
			fields[k] = v
		}
	}
	return chatform.RawPart{Type: modality, Fields: fields, Meta: chatform.ReadEnvelope(item)}
}

// itemMeta merges the item's declared envelope with every unmodeled field.
func itemMeta(item map[string]any, modeled ...string) *chatform.Envelope {
	keep := make([]string, 0, len(modeled))
	for _, k := range modeled {
		if k != "" {
			keep = append(keep, k)
		}
	}
	return chatform.MergeEnvelope(chatform.ReadEnvelope(item), adapter.Opaque(item, keep...), chatform.KnownFields{})
}

func sniffText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case map[string]any:
		s, _ := fieldStr(x, "text", "content", "value")
		return s
	case []any:
		var parts []string
		for _, el := range x {
			if s := sniffText(el); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(x)
	}
}
