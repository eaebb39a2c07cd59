package chatform

import (
	"encoding/json"
	"fmt"
)

// Canonical wire type tags.
const (
	TypeText         = "text"
	TypeReasoning    = "reasoning"
	TypeBlob         = "blob"
	TypeURI          = "uri"
	TypeFile         = "file"
	TypeToolCall     = "tool_call"
	TypeToolResult   = "tool_call_response"
	typeKey          = "type"
	roleKey          = "role"
	partsKey         = "parts"
	nameKey          = "name"
	finishReasonKey  = "finish_reason"
	finishReasonAlt  = "finishReason"
	contentKey       = "content"
	modalityKey      = "modality"
	mimeTypeKey      = "mime_type"
	uriKey           = "uri"
	idKey            = "id"
	toolArgumentsKey = "arguments"
	isErrorKey       = "is_error"
)

// MarshalJSON renders the canonical wire shape with metadata preserved in the
// modern convention.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(EncodeMessage(m, ModePreserve, SnakeKeys))
}

// UnmarshalJSON parses the canonical wire shape, accepting both metadata
// naming conventions.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	msg, err := DecodeMessage(raw)
	if err != nil {
		return err
	}
	*m = msg
	return nil
}

// EncodeMessage renders a canonical message as a wire map, applying the
// metadata mode and key style to the message and every part.
func EncodeMessage(m Message, mode MetadataMode, style KeyStyle) map[string]any {
	out := map[string]any{roleKey: string(m.Role)}
	parts := make([]any, 0, len(m.Parts))
	for _, p := range m.Parts {
		parts = append(parts, EncodePart(p, mode, style))
	}
	out[partsKey] = parts
	if m.Name != "" {
		out[nameKey] = m.Name
	}
	if m.FinishReason != "" {
		out[finishReasonKey] = m.FinishReason
	}
	return ApplyOutputMode(out, m.Meta, mode, style)
}

// DecodeMessage parses a wire map into a canonical message. Unmodeled fields
// are preserved in the opaque bag; the metadata container is accepted under
// either naming convention.
func DecodeMessage(raw map[string]any) (Message, error) {
	role, ok := raw[roleKey].(string)
	if !ok || role == "" {
		return Message{}, fmt.Errorf("%w: missing role", ErrInvalidMessage)
	}
	msg := Message{Role: Role(role)}
	if name, ok := raw[nameKey].(string); ok {
		msg.Name = name
	}
	if fr, ok := raw[finishReasonKey].(string); ok {
		msg.FinishReason = fr
	} else if fr, ok := raw[finishReasonAlt].(string); ok {
		msg.FinishReason = fr
	}
	rawParts, ok := raw[partsKey].([]any)
	if !ok {
		return Message{}, fmt.Errorf("%w: missing parts", ErrInvalidMessage)
	}
	for i, rp := range rawParts {
		pm, ok := rp.(map[string]any)
		if !ok {
			return Message{}, fmt.Errorf("%w: part %d is not an object", ErrInvalidPart, i)
		}
		part, err := DecodePart(pm)
		if err != nil {
			return Message{}, fmt.Errorf("part %d: %w", i, err)
		}
		msg.Parts = append(msg.Parts, part)
	}
	env := ReadEnvelope(raw)
	opaque := make(map[string]any)
	for k, v := range raw {
		switch k {
		case roleKey, partsKey, nameKey, finishReasonKey, finishReasonAlt:
		default:
			if !IsContainerKey(k) {
				opaque[k] = v
			}
		}
	}
	msg.Meta = MergeEnvelope(env, opaque, KnownFields{})
	return msg, nil
}

// EncodePart renders a canonical part as a wire map.
func EncodePart(p Part, mode MetadataMode, style KeyStyle) map[string]any {
	var out map[string]any
	switch x := p.(type) {
	case TextPart:
		out = map[string]any{typeKey: TypeText, contentKey: x.Content}
	case ReasoningPart:
		out = map[string]any{typeKey: TypeReasoning, contentKey: x.Content}
	case BlobPart:
		out = map[string]any{typeKey: TypeBlob, modalityKey: x.Modality, contentKey: x.Content}
		if x.MIMEType != "" {
			out[mimeTypeKey] = x.MIMEType
		}
	case URIPart:
		out = map[string]any{typeKey: TypeURI, modalityKey: x.Modality, uriKey: x.URI}
		if x.MIMEType != "" {
			out[mimeTypeKey] = x.MIMEType
		}
	case FilePart:
		out = map[string]any{typeKey: TypeFile, idKey: x.ID}
		if x.MIMEType != "" {
			out[mimeTypeKey] = x.MIMEType
		}
	case ToolCallPart:
		out = map[string]any{typeKey: TypeToolCall, idKey: nullableID(x.ID), nameKey: x.Name, toolArgumentsKey: x.Arguments}
	case ToolResultPart:
		out = map[string]any{typeKey: TypeToolResult, idKey: x.ID, contentKey: x.Content}
		if x.Name != "" {
			out[nameKey] = x.Name
		}
		if x.IsError {
			out[isErrorKey] = true
		}
	case RawPart:
		out = make(map[string]any, len(x.Fields)+1)
		for k, v := range x.Fields {
			out[k] = v
		}
		out[typeKey] = x.Type
	default:
		out = map[string]any{typeKey: TypeText, contentKey: ""}
	}
	return ApplyOutputMode(out, PartMeta(p), mode, style)
}

// nullableID renders an empty tool call id as explicit null, matching
// dialects that carry id: null for providers without call ids.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// DecodePart parses a wire map into a canonical part. Unknown type tags
// decode to RawPart; unmodeled fields go to the opaque bag.
func DecodePart(raw map[string]any) (Part, error) {
	typ, ok := raw[typeKey].(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidPart)
	}
	env := ReadEnvelope(raw)
	modeled := func(keys ...string) map[string]any {
		skip := map[string]bool{typeKey: true}
		for _, k := range keys {
			skip[k] = true
		}
		opaque := make(map[string]any)
		for k, v := range raw {
			if !skip[k] && !IsContainerKey(k) {
				opaque[k] = v
			}
		}
		return opaque
	}
	str := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}
	switch typ {
	case TypeText:
		meta := MergeEnvelope(env, modeled(contentKey), KnownFields{})
		return TextPart{Content: str(contentKey), Meta: meta}, nil
	case TypeReasoning:
		meta := MergeEnvelope(env, modeled(contentKey), KnownFields{})
		return ReasoningPart{Content: str(contentKey), Meta: meta}, nil
	case TypeBlob:
		if str(modalityKey) == "" {
			return nil, fmt.Errorf("%w: blob missing modality", ErrInvalidPart)
		}
		meta := MergeEnvelope(env, modeled(modalityKey, mimeTypeKey, contentKey), KnownFields{})
		return BlobPart{Modality: str(modalityKey), MIMEType: str(mimeTypeKey), Content: str(contentKey), Meta: meta}, nil
	case TypeURI:
		if str(uriKey) == "" {
			return nil, fmt.Errorf("%w: uri part missing uri", ErrInvalidPart)
		}
		meta := MergeEnvelope(env, modeled(modalityKey, mimeTypeKey, uriKey), KnownFields{})
		return URIPart{Modality: str(modalityKey), MIMEType: str(mimeTypeKey), URI: str(uriKey), Meta: meta}, nil
	case TypeFile:
		if str(idKey) == "" {
			return nil, fmt.Errorf("%w: file part missing id", ErrInvalidPart)
		}
		meta := MergeEnvelope(env, modeled(idKey, mimeTypeKey), KnownFields{})
		return FilePart{ID: str(idKey), MIMEType: str(mimeTypeKey), Meta: meta}, nil
	case TypeToolCall:
		if str(nameKey) == "" {
			return nil, fmt.Errorf("%w: tool_call missing name", ErrInvalidPart)
		}
		meta := MergeEnvelope(env, modeled(idKey, nameKey, toolArgumentsKey), KnownFields{})
		return ToolCallPart{ID: str(idKey), Name: str(nameKey), Arguments: raw[toolArgumentsKey], Meta: meta}, nil
	case TypeToolResult:
		isErr, _ := raw[isErrorKey].(bool)
		meta := MergeEnvelope(env, modeled(idKey, nameKey, contentKey, isErrorKey), KnownFields{})
		return ToolResultPart{ID: str(idKey), Name: str(nameKey), Content: raw[contentKey], IsError: isErr, Meta: meta}, nil
	default:
		fields := make(map[string]any)
		for k, v := range raw {
			if k != typeKey && !IsContainerKey(k) {
				fields[k] = v
			}
		}
		return RawPart{Type: typ, Fields: fields, Meta: env}, nil
	}
}
