package promptl

import (
	"fmt"
	"strings"

	"github.com/skosovsky/chatform"
	"github.com/skosovsky/chatform/adapter"
)

// Adapter implements the chatform adapter contract for the Promptl message
// dialect. System content is an in-band message role: the dialect declares no
// separated system schema, and the orchestrator rejects a system option for
// it. Metadata is written in the legacy camelCase convention.
type Adapter struct{}

// New returns a Promptl adapter.
func New() *Adapter { return &Adapter{} }

func init() { chatform.Register(New()) }

// ID implements chatform.Adapter.
func (*Adapter) ID() string { return chatform.ProviderPromptl }

// SupportsSystem implements chatform.Adapter.
func (*Adapter) SupportsSystem() bool { return false }

// Content item types this dialect models.
const (
	itemText       = "text"
	itemReasoning  = "reasoning"
	itemImage      = "image"
	itemFile       = "file"
	itemToolCall   = "tool-call"
	itemToolResult = "tool-result"
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
	switch role {
	case "system", "user", "assistant", "tool", "developer":
	default:
		return chatform.Message{}, fmt.Errorf("%w: unknown role %q", adapter.ErrInvalidInput, role)
	}
	msg := chatform.Message{Role: chatform.Role(role), Name: adapter.Str(rm, "name")}

	switch content := rm["content"].(type) {
	case string:
		msg.Parts = append(msg.Parts, chatform.TextPart{Content: content})
	default:
		items, ok := adapter.Objects(content)
		if !ok {
			return chatform.Message{}, fmt.Errorf("%w: content must be a string or item list", adapter.ErrInvalidInput)
		}
		for i, item := range items {
			part, err := decodeItem(item)
			if err != nil {
				return chatform.Message{}, fmt.Errorf("content %d: %w", i, err)
			}
			msg.Parts = append(msg.Parts, part)
		}
	}

	env := chatform.ReadEnvelope(rm)
	opaque := adapter.Opaque(rm, "role", "content", "name")
	msg.Meta = chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
	return msg, nil
}

func decodeItem(item map[string]any) (chatform.Part, error) {
	env := chatform.ReadEnvelope(item)
	merge := func(opaque map[string]any, known chatform.KnownFields) *chatform.Envelope {
		return chatform.MergeEnvelope(env, opaque, known)
	}
	switch typ := adapter.Str(item, "type"); typ {
	case itemText:
		meta := merge(adapter.Opaque(item, "type", "text"), chatform.KnownFields{})
		return chatform.TextPart{Content: adapter.Str(item, "text"), Meta: meta}, nil
	case itemReasoning:
		meta := merge(adapter.Opaque(item, "type", "text"), chatform.KnownFields{})
		return chatform.ReasoningPart{Content: adapter.Str(item, "text"), Meta: meta}, nil
	case itemImage:
		image := adapter.Str(item, "image")
		meta := merge(adapter.Opaque(item, "type", "image", "mimeType"), chatform.KnownFields{})
		if strings.HasPrefix(image, "data:") {
			modality, mime, data := splitDataURL(image)
			return chatform.BlobPart{Modality: modality, MIMEType: mime, Content: data, Meta: meta}, nil
		}
		return chatform.URIPart{Modality: "image", MIMEType: adapter.Str(item, "mimeType"), URI: image, Meta: meta}, nil
	case itemFile:
		meta := merge(adapter.Opaque(item, "type", "file", "mimeType"), chatform.KnownFields{})
		return chatform.URIPart{Modality: "file", MIMEType: adapter.Str(item, "mimeType"), URI: adapter.Str(item, "file"), Meta: meta}, nil
	case itemToolCall:
		name := adapter.Str(item, "toolName")
		if name == "" {
			return nil, fmt.Errorf("%w: tool-call missing toolName", adapter.ErrInvalidInput)
		}
		opaque := adapter.Opaque(item, "type", "toolCallId", "toolName", "toolArguments")
		meta := merge(opaque, chatform.KnownFields{})
		return chatform.ToolCallPart{ID: adapter.Str(item, "toolCallId"), Name: name, Arguments: item["toolArguments"], Meta: meta}, nil
	case itemToolResult:
		isErr, _ := item["isError"].(bool)
		opaque := adapter.Opaque(item, "type", "toolCallId", "toolName", "result", "isError")
		meta := merge(opaque, chatform.KnownFields{})
		return chatform.ToolResultPart{
			ID:      adapter.Str(item, "toolCallId"),
			Name:    adapter.Str(item, "toolName"),
			Content: item["result"],
			IsError: isErr,
			Meta:    meta,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown content type %q", adapter.ErrInvalidInput, typ)
	}
}

// splitDataURL decodes a data: URL into modality, MIME type, and base64 data.
func splitDataURL(url string) (modality, mime, data string) {
	rest := strings.TrimPrefix(url, "data:")
	semi := strings.Index(rest, ";base64,")
	if semi < 0 {
		return "image", "", rest
	}
	mime = rest[:semi]
	data = rest[semi+len(";base64,"):]
	modality = mime
	if slash := strings.Index(mime, "/"); slash >= 0 {
		modality = mime[:slash]
	}
	return modality, mime, data
}

// FromCanonical implements chatform.Emitter. System messages stay in-band.
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
	if m.Name != "" {
		rm["name"] = m.Name
	}
	items := make([]any, 0, len(m.Parts))
	for _, p := range m.Parts {
		item, err := encodeItem(p, mode)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	rm["content"] = items
	return chatform.ApplyOutputMode(rm, m.Meta, mode, chatform.CamelKeys), nil
}

func encodeItem(p chatform.Part, mode chatform.MetadataMode) (map[string]any, error) {
	pm := chatform.PartMeta(p)
	emit := func(item map[string]any) map[string]any {
		return chatform.ApplyOutputMode(item, pm, mode, chatform.CamelKeys)
	}
	switch x := p.(type) {
	case chatform.TextPart:
		return emit(map[string]any{"type": itemText, "text": x.Content}), nil
	case chatform.ReasoningPart:
		return emit(map[string]any{"type": itemReasoning, "text": x.Content}), nil
	case chatform.BlobPart:
		mime := x.MIMEType
		if mime == "" {
			mime = x.Modality + "/*"
		}
		return emit(map[string]any{"type": itemImage, "image": "data:" + mime + ";base64," + x.Content}), nil
	case chatform.URIPart:
		item := map[string]any{"type": itemImage, "image": x.URI}
		if x.Modality != "image" {
			item = map[string]any{"type": itemFile, "file": x.URI}
		}
		if x.MIMEType != "" {
			item["mimeType"] = x.MIMEType
		}
		return emit(item), nil
	case chatform.FilePart:
		item := map[string]any{"type": itemFile, "file": x.ID}
		if x.MIMEType != "" {
			item["mimeType"] = x.MIMEType
		}
		return emit(item), nil
	case chatform.ToolCallPart:
		item := map[string]any{"type": itemToolCall, "toolCallId": x.ID, "toolName": x.Name}
		if x.Arguments != nil {
			item["toolArguments"] = x.Arguments
		}
		return emit(item), nil
	case chatform.ToolResultPart:
		item := map[string]any{"type": itemToolResult, "toolCallId": x.ID, "result": x.Content}
		if name := toolResultName(x); name != "" {
			item["toolName"] = name
		}
		if x.IsError {
			item["isError"] = true
		}
		return emit(item), nil
	case chatform.RawPart:
		item := make(map[string]any, len(x.Fields)+1)
		for k, v := range x.Fields {
			item[k] = v
		}
		item["type"] = x.Type
		return emit(item), nil
	default:
		return nil, fmt.Errorf("%w: %T", adapter.ErrUnsupportedPart, p)
	}
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

// Compile-time check that the adapter is bidirectional.
var _ chatform.Emitter = (*Adapter)(nil)
