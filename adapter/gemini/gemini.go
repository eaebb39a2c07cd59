package gemini

import (
	"fmt"

	"github.com/skosovsky/chatform"
	"github.com/skosovsky/chatform/adapter"
)

// Adapter implements the chatform adapter contract for the Gemini
// contents/parts dialect. The dialect is camelCase throughout, so the
// adapter writes metadata in the legacy camelCase convention.
type Adapter struct{}

// New returns a Gemini adapter.
func New() *Adapter { return &Adapter{} }

func init() { chatform.Register(New()) }

// ID implements chatform.Adapter.
func (*Adapter) ID() string { return chatform.ProviderGemini }

// SupportsSystem implements chatform.Adapter. System instructions travel as
// a separate systemInstruction content.
func (*Adapter) SupportsSystem() bool { return true }

// ToCanonical implements chatform.Adapter.
func (a *Adapter) ToCanonical(input, system any, dir chatform.Direction) ([]chatform.Message, error) {
	var out []chatform.Message
	sysMsg, err := decodeSystem(system)
	if err != nil {
		return nil, err
	}
	if sysMsg != nil {
		out = append(out, *sysMsg)
	}
	if msgs, ok := adapter.Shorthand(input, dir); ok {
		return append(out, msgs...), nil
	}
	raw, err := adapter.Messages(input)
	if err != nil {
		return nil, err
	}
	for i, rc := range raw {
		msg, err := decodeContent(rc)
		if err != nil {
			return nil, fmt.Errorf("content %d: %w", i, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// decodeSystem accepts a bare string or a systemInstruction content object.
func decodeSystem(system any) (*chatform.Message, error) {
	switch x := system.(type) {
	case nil:
		return nil, nil
	case string:
		return &chatform.Message{Role: chatform.RoleSystem, Parts: []chatform.Part{chatform.TextPart{Content: x}}}, nil
	case map[string]any:
		msg, err := decodeContent(x)
		if err != nil {
			return nil, fmt.Errorf("system instruction: %w", err)
		}
		msg.Role = chatform.RoleSystem
		return &msg, nil
	default:
		return nil, fmt.Errorf("%w: system must be a string or content object", adapter.ErrInvalidInput)
	}
}

// decodeContent converts one content object. Role "model" maps to the
// canonical assistant role.
func decodeContent(rc map[string]any) (chatform.Message, error) {
	role := adapter.Str(rc, "role")
	switch role {
	case "user", "model", "":
	default:
		return chatform.Message{}, fmt.Errorf("%w: role must be user or model, got %q", adapter.ErrInvalidInput, role)
	}
	msg := chatform.Message{Role: chatform.RoleUser}
	if role == "model" {
		msg.Role = chatform.RoleAssistant
	}
	rawParts, ok := adapter.Objects(rc["parts"])
	if !ok {
		return chatform.Message{}, fmt.Errorf("%w: content missing parts", adapter.ErrInvalidInput)
	}
	for i, rp := range rawParts {
		part, err := decodePart(rp)
		if err != nil {
			return chatform.Message{}, fmt.Errorf("part %d: %w", i, err)
		}
		msg.Parts = append(msg.Parts, part)
	}
	env := chatform.ReadEnvelope(rc)
	opaque := adapter.Opaque(rc, "role", "parts")
	msg.Meta = chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
	return msg, nil
}

// decodePart converts one part object; the payload kind is keyed, not
// tagged. Parts with thought: true become reasoning parts.
func decodePart(rp map[string]any) (chatform.Part, error) {
	env := chatform.ReadEnvelope(rp)
	switch {
	case rp["text"] != nil:
		opaque := adapter.Opaque(rp, "text", "thought")
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		if thought, _ := rp["thought"].(bool); thought {
			return chatform.ReasoningPart{Content: adapter.Str(rp, "text"), Meta: meta}, nil
		}
		return chatform.TextPart{Content: adapter.Str(rp, "text"), Meta: meta}, nil
	case rp["inlineData"] != nil:
		data, ok := rp["inlineData"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: inlineData must be an object", adapter.ErrInvalidInput)
		}
		opaque := adapter.Opaque(rp, "inlineData")
		if inner := adapter.Opaque(data, "mimeType", "data"); len(inner) > 0 {
			opaque["inlineData"] = inner
		}
		mime := adapter.Str(data, "mimeType")
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		return chatform.BlobPart{Modality: modalityOf(mime), MIMEType: mime, Content: adapter.Str(data, "data"), Meta: meta}, nil
	case rp["fileData"] != nil:
		data, ok := rp["fileData"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: fileData must be an object", adapter.ErrInvalidInput)
		}
		opaque := adapter.Opaque(rp, "fileData")
		if inner := adapter.Opaque(data, "mimeType", "fileUri"); len(inner) > 0 {
			opaque["fileData"] = inner
		}
		mime := adapter.Str(data, "mimeType")
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		return chatform.URIPart{Modality: modalityOf(mime), MIMEType: mime, URI: adapter.Str(data, "fileUri"), Meta: meta}, nil
	case rp["functionCall"] != nil:
		call, ok := rp["functionCall"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: functionCall must be an object", adapter.ErrInvalidInput)
		}
		name := adapter.Str(call, "name")
		if name == "" {
			return nil, fmt.Errorf("%w: functionCall missing name", adapter.ErrInvalidInput)
		}
		opaque := adapter.Opaque(rp, "functionCall")
		if inner := adapter.Opaque(call, "id", "name", "args"); len(inner) > 0 {
			opaque["functionCall"] = inner
		}
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		return chatform.ToolCallPart{ID: adapter.Str(call, "id"), Name: name, Arguments: call["args"], Meta: meta}, nil
	case rp["functionResponse"] != nil:
		resp, ok := rp["functionResponse"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: functionResponse must be an object", adapter.ErrInvalidInput)
		}
		name := adapter.Str(resp, "name")
		opaque := adapter.Opaque(rp, "functionResponse")
		if inner := adapter.Opaque(resp, "id", "name", "response"); len(inner) > 0 {
			opaque["functionResponse"] = inner
		}
		// The dialect correlates results by function name; the tool-name known
		// field keeps the name alive for targets that only carry ids.
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{ToolName: name})
		return chatform.ToolResultPart{ID: adapter.Str(resp, "id"), Name: name, Content: resp["response"], Meta: meta}, nil
	default:
		return nil, fmt.Errorf("%w: part has no recognized payload", adapter.ErrInvalidInput)
	}
}

// modalityOf derives a canonical modality from a MIME type.
func modalityOf(mime string) string {
	for i := 0; i < len(mime); i++ {
		if mime[i] == '/' {
			return mime[:i]
		}
	}
	if mime == "" {
		return "image"
	}
	return mime
}

// FromCanonical implements chatform.Emitter. Canonical system messages come
// back as the separated systemInstruction content.
func (a *Adapter) FromCanonical(msgs []chatform.Message, _ chatform.Direction, mode chatform.MetadataMode) (*chatform.Output, error) {
	out := make([]map[string]any, 0, len(msgs))
	var system map[string]any
	for i, m := range msgs {
		if m.Role == chatform.RoleSystem {
			sys, err := encodeContent(m, "", mode)
			if err != nil {
				return nil, fmt.Errorf("system message %d: %w", i, err)
			}
			if system == nil {
				system = sys
			} else {
				// Multiple system messages merge into one instruction.
				system["parts"] = append(system["parts"].([]any), sys["parts"].([]any)...)
			}
			continue
		}
		role := "user"
		if m.Role == chatform.RoleAssistant {
			role = "model"
		}
		rc, err := encodeContent(m, role, mode)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, rc)
	}
	result := &chatform.Output{Messages: out}
	if system != nil {
		result.System = system
	}
	return result, nil
}

func encodeContent(m chatform.Message, role string, mode chatform.MetadataMode) (map[string]any, error) {
	rc := map[string]any{}
	if role != "" {
		rc["role"] = role
	}
	parts := make([]any, 0, len(m.Parts))
	for _, p := range m.Parts {
		rp, err := encodePart(p, mode)
		if err != nil {
			return nil, err
		}
		parts = append(parts, rp)
	}
	rc["parts"] = parts
	return chatform.ApplyOutputMode(rc, m.Meta, mode, chatform.CamelKeys), nil
}

func encodePart(p chatform.Part, mode chatform.MetadataMode) (map[string]any, error) {
	pm := chatform.PartMeta(p)
	emit := func(rp map[string]any) map[string]any {
		return chatform.ApplyOutputMode(rp, pm, mode, chatform.CamelKeys)
	}
	switch x := p.(type) {
	case chatform.TextPart:
		return emit(map[string]any{"text": x.Content}), nil
	case chatform.ReasoningPart:
		return emit(map[string]any{"text": x.Content, "thought": true}), nil
	case chatform.BlobPart:
		data := map[string]any{"mimeType": x.MIMEType, "data": x.Content}
		restoreInner(pm, "inlineData", data)
		return emit(map[string]any{"inlineData": data}), nil
	case chatform.URIPart:
		data := map[string]any{"mimeType": x.MIMEType, "fileUri": x.URI}
		restoreInner(pm, "fileData", data)
		return emit(map[string]any{"fileData": data}), nil
	case chatform.FilePart:
		// The dialect has no file-by-id payload; ids travel as file URIs.
		data := map[string]any{"fileUri": x.ID}
		if x.MIMEType != "" {
			data["mimeType"] = x.MIMEType
		}
		restoreInner(pm, "fileData", data)
		return emit(map[string]any{"fileData": data}), nil
	case chatform.ToolCallPart:
		call := map[string]any{"name": x.Name}
		if x.ID != "" {
			call["id"] = x.ID
		}
		if x.Arguments != nil {
			call["args"] = x.Arguments
		}
		restoreInner(pm, "functionCall", call)
		return emit(map[string]any{"functionCall": call}), nil
	case chatform.ToolResultPart:
		resp := map[string]any{"name": toolResultName(x), "response": x.Content}
		if x.ID != "" {
			resp["id"] = x.ID
		}
		restoreInner(pm, "functionResponse", resp)
		return emit(map[string]any{"functionResponse": resp}), nil
	case chatform.RawPart:
		rp := make(map[string]any, len(x.Fields))
		for k, v := range x.Fields {
			rp[k] = v
		}
		return emit(rp), nil
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

// restoreInner puts preserved nested payload fields back where the dialect
// keeps them.
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

// Compile-time check that the adapter is bidirectional.
var _ chatform.Emitter = (*Adapter)(nil)
