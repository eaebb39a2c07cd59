package chatform

import (
	"fmt"
	"sort"
)

// canonicalAdapter is the identity adapter: the canonical form is itself one
// of the pluggable dialects. It carries the one piece of cross-cutting logic
// no vendor adapter owns: splitting system messages into a separate list and
// restoring them to their original positions on the reverse hop.
type canonicalAdapter struct{}

func init() { Register(canonicalAdapter{}) }

// ID implements Adapter.
func (canonicalAdapter) ID() string { return ProviderCanonical }

// SupportsSystem implements Adapter.
func (canonicalAdapter) SupportsSystem() bool { return true }

// ToCanonical decodes canonical wire messages and reinserts separately
// supplied system parts at their recorded origin positions.
func (canonicalAdapter) ToCanonical(input, system any, dir Direction) ([]Message, error) {
	msgs, err := decodeCanonicalInput(input, dir)
	if err != nil {
		return nil, err
	}
	sysParts, err := decodeSystemParts(system)
	if err != nil {
		return nil, err
	}
	return reinsertSystem(msgs, sysParts), nil
}

// FromCanonical renders canonical wire messages, extracting system messages
// into a separate system list. Each extracted part records the message's
// original index in the full list via the message-index known field, so the
// reverse hop can restore the interleaving.
func (canonicalAdapter) FromCanonical(msgs []Message, _ Direction, mode MetadataMode) (*Output, error) {
	outMsgs := make([]map[string]any, 0, len(msgs))
	var system []map[string]any
	for i, m := range msgs {
		if m.Role == RoleSystem {
			for _, p := range m.Parts {
				idx := i
				env := MergeEnvelope(PartMeta(p), nil, KnownFields{MessageIndex: &idx})
				enc := EncodePart(WithPartMeta(p, env), mode, SnakeKeys)
				if mode == ModePassthrough {
					// Passthrough flattens the opaque bag and drops known
					// fields, but the rejoin hop needs the origin index. The
					// canonical wire shape owns a metadata container, so the
					// known-fields slot is emitted there regardless.
					enc[containerSnake] = map[string]any{slotKnown: encodeKnown(env.Known, SnakeKeys)}
				}
				system = append(system, enc)
			}
			continue
		}
		outMsgs = append(outMsgs, EncodeMessage(m, mode, SnakeKeys))
	}
	out := &Output{Messages: outMsgs}
	if system != nil {
		out.System = system
	}
	return out, nil
}

// decodeCanonicalInput accepts bare-string shorthand, typed messages, or
// decoded wire maps.
func decodeCanonicalInput(input any, dir Direction) ([]Message, error) {
	switch x := input.(type) {
	case string:
		return []Message{{Role: dir.ShorthandRole(), Parts: []Part{TextPart{Content: x}}}}, nil
	case []Message:
		return x, nil
	case Message:
		return []Message{x}, nil
	case []map[string]any:
		msgs := make([]Message, 0, len(x))
		for i, raw := range x {
			m, err := DecodeMessage(raw)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			msgs = append(msgs, m)
		}
		return msgs, nil
	case []any:
		msgs := make([]Message, 0, len(x))
		for i, el := range x {
			raw, ok := el.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: message %d is not an object", ErrInvalidMessage, i)
			}
			m, err := DecodeMessage(raw)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			msgs = append(msgs, m)
		}
		return msgs, nil
	default:
		return nil, fmt.Errorf("%w: expected string or message list, got %T", ErrInvalidInput, input)
	}
}

// decodeSystemParts accepts a bare string, a single part, or a part list.
func decodeSystemParts(system any) ([]Part, error) {
	switch x := system.(type) {
	case nil:
		return nil, nil
	case string:
		return []Part{TextPart{Content: x}}, nil
	case Part:
		return []Part{x}, nil
	case []Part:
		return x, nil
	case map[string]any:
		p, err := DecodePart(x)
		if err != nil {
			return nil, err
		}
		return []Part{p}, nil
	case []any:
		parts := make([]Part, 0, len(x))
		for i, el := range x {
			switch e := el.(type) {
			case string:
				parts = append(parts, TextPart{Content: e})
			case map[string]any:
				p, err := DecodePart(e)
				if err != nil {
					return nil, fmt.Errorf("system part %d: %w", i, err)
				}
				parts = append(parts, p)
			default:
				return nil, fmt.Errorf("%w: system part %d is not an object", ErrInvalidPart, i)
			}
		}
		return parts, nil
	case []map[string]any:
		parts := make([]Part, 0, len(x))
		for i, raw := range x {
			p, err := DecodePart(raw)
			if err != nil {
				return nil, fmt.Errorf("system part %d: %w", i, err)
			}
			parts = append(parts, p)
		}
		return parts, nil
	default:
		return nil, fmt.Errorf("%w: unsupported system value %T", ErrInvalidInput, system)
	}
}

// noIndex buckets system parts that carry no recorded origin position.
// It sorts before any real index, so the bucket is inserted first.
const noIndex = -1

// reinsertSystem restores system parts into the message list. Parts are
// grouped by recorded origin index; groups are processed in ascending order,
// each inserted at min(index, current length). Ascending order is required:
// every insertion shifts later positions forward by exactly one, so
// low-to-high reproduces the original interleaving without offset tracking.
func reinsertSystem(msgs []Message, parts []Part) []Message {
	if len(parts) == 0 {
		return msgs
	}
	groups := make(map[int][]Part)
	for _, p := range parts {
		idx := noIndex
		if pm := PartMeta(p); pm != nil && pm.Known.MessageIndex != nil {
			idx = *pm.Known.MessageIndex
		}
		groups[idx] = append(groups[idx], clearMessageIndex(p))
	}
	indices := make([]int, 0, len(groups))
	for idx := range groups {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	out := msgs
	for _, idx := range indices {
		pos := max(idx, 0)
		if pos > len(out) {
			pos = len(out)
		}
		msg := Message{Role: RoleSystem, Parts: groups[idx]}
		out = append(out[:pos:pos], append([]Message{msg}, out[pos:]...)...)
	}
	return out
}

// clearMessageIndex drops the positional bookkeeping field from a part's
// envelope; it is not vendor data and must not survive reinsertion.
func clearMessageIndex(p Part) Part {
	pm := PartMeta(p)
	if pm == nil || pm.Known.MessageIndex == nil {
		return p
	}
	env := pm.Clone()
	env.Known.MessageIndex = nil
	return WithPartMeta(p, env.normalize())
}

// Compile-time check that the identity adapter is bidirectional.
var _ Emitter = canonicalAdapter{}
