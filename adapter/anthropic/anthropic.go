package anthropic

import (
	"fmt"

	"github.com/skosovsky/chatform"
	"github.com/skosovsky/chatform/adapter"
)

// Adapter implements the chatform adapter contract for the Anthropic
// Messages dialect. System instructions are a separate parameter, never an
// in-band message role.
type Adapter struct{}

// New returns an Anthropic adapter.
func New() *Adapter { return &Adapter{} }

func init() { chatform.Register(New()) }

// ID implements chatform.Adapter.
func (*Adapter) ID() string { return chatform.ProviderAnthropic }

// SupportsSystem implements chatform.Adapter.
func (*Adapter) SupportsSystem() bool { return true }

// Content block types this dialect models.
const (
	blockText             = "text"
	blockImage            = "image"
	blockDocument         = "document"
	blockToolUse          = "tool_use"
	blockToolResult       = "tool_result"
	blockThinking         = "thinking"
	blockRedactedThinking = "redacted_thinking"
)

// ToCanonical implements chatform.Adapter. A separated system value becomes a
// leading canonical system message.
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
	for i, rm := range raw {
		msg, err := decodeMessage(rm)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// decodeSystem accepts the dialect's system parameter: a bare string or a
// list of text blocks.
func decodeSystem(system any) (*chatform.Message, error) {
	switch x := system.(type) {
	case nil:
		return nil, nil
	case string:
		return &chatform.Message{Role: chatform.RoleSystem, Parts: []chatform.Part{chatform.TextPart{Content: x}}}, nil
	default:
		blocks, ok := adapter.Objects(x)
		if !ok {
			return nil, fmt.Errorf("%w: system must be a string or block list", adapter.ErrInvalidInput)
		}
		msg := &chatform.Message{Role: chatform.RoleSystem}
		for i, b := range blocks {
			part, err := decodeBlock(b)
			if err != nil {
				return nil, fmt.Errorf("system block %d: %w", i, err)
			}
			msg.Parts = append(msg.Parts, part)
		}
		return msg, nil
	}
}

func decodeMessage(rm map[string]any) (chatform.Message, error) {
	role := adapter.Str(rm, "role")
	switch role {
	case "user", "assistant":
	default:
		return chatform.Message{}, fmt.Errorf("%w: role must be user or assistant, got %q", adapter.ErrInvalidInput, role)
	}
	msg := chatform.Message{Role: chatform.Role(role)}
	msg.FinishReason = adapter.Str(rm, "stop_reason")

	switch content := rm["content"].(type) {
	case string:
		msg.Parts = append(msg.Parts, chatform.TextPart{Content: content})
	default:
		blocks, ok := adapter.Objects(content)
		if !ok {
			return chatform.Message{}, fmt.Errorf("%w: content must be a string or block list", adapter.ErrInvalidInput)
		}
		for i, b := range blocks {
			part, err := decodeBlock(b)
			if err != nil {
				return chatform.Message{}, fmt.Errorf("block %d: %w", i, err)
			}
			msg.Parts = append(msg.Parts, part)
		}
	}

	env := chatform.ReadEnvelope(rm)
	opaque := adapter.Opaque(rm, "role", "content", "stop_reason")
	msg.Meta = chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
	return msg, nil
}

func decodeBlock(b map[string]any) (chatform.Part, error) {
	env := chatform.ReadEnvelope(b)
	switch typ := adapter.Str(b, "type"); typ {
	case blockText:
		opaque := adapter.Opaque(b, "type", "text")
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		return chatform.TextPart{Content: adapter.Str(b, "text"), Meta: meta}, nil
	case blockThinking:
		opaque := adapter.Opaque(b, "type", "thinking")
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		return chatform.ReasoningPart{Content: adapter.Str(b, "thinking"), Meta: meta}, nil
	case blockRedactedThinking:
		// Redacted thinking is opaque ciphertext; the original type tag lets
		// the reverse hop rebuild the exact block.
		opaque := adapter.Opaque(b, "type", "data")
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{OriginalType: blockRedactedThinking})
		return chatform.ReasoningPart{Content: adapter.Str(b, "data"), Meta: meta}, nil
	case blockImage, blockDocument:
		return decodeSourceBlock(b, typ, env)
	case blockToolUse:
		name := adapter.Str(b, "name")
		if name == "" {
			return nil, fmt.Errorf("%w: tool_use missing name", adapter.ErrInvalidInput)
		}
		opaque := adapter.Opaque(b, "type", "id", "name", "input")
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		return chatform.ToolCallPart{ID: adapter.Str(b, "id"), Name: name, Arguments: b["input"], Meta: meta}, nil
	case blockToolResult:
		id := adapter.Str(b, "tool_use_id")
		if id == "" {
			return nil, fmt.Errorf("%w: tool_result missing tool_use_id", adapter.ErrInvalidInput)
		}
		isErr, _ := b["is_error"].(bool)
		opaque := adapter.Opaque(b, "type", "tool_use_id", "content", "is_error")
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		return chatform.ToolResultPart{ID: id, Content: b["content"], IsError: isErr, Meta: meta}, nil
	default:
		return nil, fmt.Errorf("%w: unknown block type %q", adapter.ErrInvalidInput, typ)
	}
}

// decodeSourceBlock handles image and document blocks, whose payload lives
// under a source object with base64 or url variants. The block type survives
// as the part modality ("image", "document").
func decodeSourceBlock(b map[string]any, typ string, env *chatform.Envelope) (chatform.Part, error) {
	source, ok := b["source"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing source", adapter.ErrInvalidInput, typ)
	}
	opaque := adapter.Opaque(b, "type", "source")
	mime := adapter.Str(source, "media_type")
	switch sourceType := adapter.Str(source, "type"); sourceType {
	case "base64":
		if inner := adapter.Opaque(source, "type", "media_type", "data"); len(inner) > 0 {
			opaque["source"] = inner
		}
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		return chatform.BlobPart{Modality: typ, MIMEType: mime, Content: adapter.Str(source, "data"), Meta: meta}, nil
	case "url":
		if inner := adapter.Opaque(source, "type", "media_type", "url"); len(inner) > 0 {
			opaque["source"] = inner
		}
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{})
		return chatform.URIPart{Modality: typ, MIMEType: mime, URI: adapter.Str(source, "url"), Meta: meta}, nil
	case "file":
		if inner := adapter.Opaque(source, "type", "file_id"); len(inner) > 0 {
			opaque["source"] = inner
		}
		meta := chatform.MergeEnvelope(env, opaque, chatform.KnownFields{OriginalType: typ})
		return chatform.FilePart{ID: adapter.Str(source, "file_id"), Meta: meta}, nil
	default:
		return nil, fmt.Errorf("%w: unknown source type %q", adapter.ErrInvalidInput, sourceType)
	}
}

// FromCanonical implements chatform.Emitter. Canonical system messages leave
// the message list and come back as the separated system parameter.
func (a *Adapter) FromCanonical(msgs []chatform.Message, _ chatform.Direction, mode chatform.MetadataMode) (*chatform.Output, error) {
	out := make([]map[string]any, 0, len(msgs))
	var system []any
	for i, m := range msgs {
		if m.Role == chatform.RoleSystem {
			for _, p := range m.Parts {
				block, err := encodeBlock(p, mode)
				if err != nil {
					return nil, fmt.Errorf("system message %d: %w", i, err)
				}
				system = append(system, block)
			}
			continue
		}
		rm, err := encodeMessage(m, mode)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, rm)
	}
	result := &chatform.Output{Messages: out}
	if system != nil {
		result.System = system
	}
	return result, nil
}

func encodeMessage(m chatform.Message, mode chatform.MetadataMode) (map[string]any, error) {
	role := m.Role
	if role == chatform.RoleTool {
		// Tool results travel as user-role tool_result blocks in this dialect.
		role = chatform.RoleUser
	}
	rm := map[string]any{"role": string(role)}
	if m.FinishReason != "" {
		rm["stop_reason"] = m.FinishReason
	}
	blocks := make([]any, 0, len(m.Parts))
	for _, p := range m.Parts {
		block, err := encodeBlock(p, mode)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	rm["content"] = blocks
	return chatform.ApplyOutputMode(rm, m.Meta, mode, chatform.SnakeKeys), nil
}

func encodeBlock(p chatform.Part, mode chatform.MetadataMode) (map[string]any, error) {
	pm := chatform.PartMeta(p)
	emit := func(block map[string]any) map[string]any {
		return chatform.ApplyOutputMode(block, pm, mode, chatform.SnakeKeys)
	}
	switch x := p.(type) {
	case chatform.TextPart:
		return emit(map[string]any{"type": blockText, "text": x.Content}), nil
	case chatform.ReasoningPart:
		if pm != nil && pm.Known.OriginalType == blockRedactedThinking {
			return emit(map[string]any{"type": blockRedactedThinking, "data": x.Content}), nil
		}
		return emit(map[string]any{"type": blockThinking, "thinking": x.Content}), nil
	case chatform.BlobPart:
		source := map[string]any{"type": "base64", "media_type": x.MIMEType, "data": x.Content}
		restoreInner(pm, source)
		return emit(map[string]any{"type": blockModality(x.Modality), "source": source}), nil
	case chatform.URIPart:
		source := map[string]any{"type": "url", "url": x.URI}
		if x.MIMEType != "" {
			source["media_type"] = x.MIMEType
		}
		restoreInner(pm, source)
		return emit(map[string]any{"type": blockModality(x.Modality), "source": source}), nil
	case chatform.FilePart:
		source := map[string]any{"type": "file", "file_id": x.ID}
		restoreInner(pm, source)
		typ := blockDocument
		if pm != nil && pm.Known.OriginalType != "" {
			typ = pm.Known.OriginalType
		}
		return emit(map[string]any{"type": typ, "source": source}), nil
	case chatform.ToolCallPart:
		args := x.Arguments
		if args == nil {
			args = map[string]any{}
		}
		return emit(map[string]any{"type": blockToolUse, "id": x.ID, "name": x.Name, "input": args}), nil
	case chatform.ToolResultPart:
		block := map[string]any{"type": blockToolResult, "tool_use_id": x.ID, "content": x.Content}
		if x.IsError {
			block["is_error"] = true
		}
		return emit(block), nil
	case chatform.RawPart:
		block := make(map[string]any, len(x.Fields)+1)
		for k, v := range x.Fields {
			block[k] = v
		}
		block["type"] = x.Type
		return emit(block), nil
	default:
		return nil, fmt.Errorf("%w: %T", adapter.ErrUnsupportedPart, p)
	}
}

// blockModality maps a canonical modality to a block type; image is the only
// modality with its own block, everything else is a document.
func blockModality(modality string) string {
	if modality == blockImage {
		return blockImage
	}
	return blockDocument
}

// restoreInner puts preserved source-object fields back under source.
func restoreInner(pm *chatform.Envelope, source map[string]any) {
	if pm == nil {
		return
	}
	inner, ok := pm.Extra["source"].(map[string]any)
	if !ok {
		return
	}
	for k, v := range inner {
		if _, exists := source[k]; !exists {
			source[k] = v
		}
	}
}

// Compile-time check that the adapter is bidirectional.
var _ chatform.Emitter = (*Adapter)(nil)
