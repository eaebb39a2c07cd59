package chatform

import (
	"maps"

	"github.com/skosovsky/chatform/internal/cast"
)

// Metadata container field names. Data that passed through older targets may
// carry the legacy spelling; both are accepted on read, and the modern
// container wins per key when an entity carries both.
const (
	containerSnake = "metadata"  // modern, snake_case known-field keys
	containerCamel = "extraData" // legacy, camelCase known-field keys
)

// Sub-keys inside a metadata container. Identical in both conventions.
const (
	slotKnown = "known"
	slotExtra = "extra"
	slotParts = "parts"
)

// knownAliases maps every accepted spelling of a known-field key to its
// canonical snake_case name.
var knownAliases = map[string]string{
	"tool_name":     "tool_name",
	"toolName":      "tool_name",
	"is_error":      "is_error",
	"isError":       "is_error",
	"is_refusal":    "is_refusal",
	"isRefusal":     "is_refusal",
	"original_type": "original_type",
	"originalType":  "original_type",
	"message_index": "message_index",
	"messageIndex":  "message_index",
}

// knownCamel maps canonical known-field names to their legacy camelCase
// spelling for CamelKeys writers.
var knownCamel = map[string]string{
	"tool_name":     "toolName",
	"is_error":      "isError",
	"is_refusal":    "isRefusal",
	"original_type": "originalType",
	"message_index": "messageIndex",
}

// KnownFields is the fixed cross-vendor metadata schema. Fields carry
// information a target dialect requires verbatim but the canonical part model
// does not express. Absent fields are zero (pointers nil).
type KnownFields struct {
	ToolName     string
	IsError      *bool
	IsRefusal    *bool
	OriginalType string
	MessageIndex *int
}

// IsZero reports whether no known field is set.
func (k KnownFields) IsZero() bool {
	return k.ToolName == "" && k.IsError == nil && k.IsRefusal == nil &&
		k.OriginalType == "" && k.MessageIndex == nil
}

// merge overlays other onto k field by field; set fields in other win.
func (k KnownFields) merge(other KnownFields) KnownFields {
	if other.ToolName != "" {
		k.ToolName = other.ToolName
	}
	if other.IsError != nil {
		k.IsError = other.IsError
	}
	if other.IsRefusal != nil {
		k.IsRefusal = other.IsRefusal
	}
	if other.OriginalType != "" {
		k.OriginalType = other.OriginalType
	}
	if other.MessageIndex != nil {
		k.MessageIndex = other.MessageIndex
	}
	return k
}

// Envelope carries preserved vendor metadata for one message or part. The
// three slots are independent and never conflated: Known is the fixed schema,
// Extra is the opaque vendor bag, Parts holds per-part metadata promoted to
// message level when a target collapses parts into a single string.
type Envelope struct {
	Known KnownFields
	Extra map[string]any
	Parts map[string]any
}

// IsZero reports whether the envelope has no entries. A zero envelope is
// always represented as a nil pointer, never attached to an entity.
func (e *Envelope) IsZero() bool {
	if e == nil {
		return true
	}
	return e.Known.IsZero() && len(e.Extra) == 0 && len(e.Parts) == 0
}

// Clone returns a deep-enough copy: slot maps are copied one level, values
// are shared. Envelope values are treated as immutable after construction.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	out := &Envelope{Known: e.Known}
	if len(e.Extra) > 0 {
		out.Extra = maps.Clone(e.Extra)
	}
	if len(e.Parts) > 0 {
		out.Parts = maps.Clone(e.Parts)
	}
	return out
}

// normalize returns nil for an empty envelope, e otherwise.
func (e *Envelope) normalize() *Envelope {
	if e.IsZero() {
		return nil
	}
	return e
}

// IsContainerKey reports whether k is a metadata container field under either
// naming convention. Adapters skip such keys when collecting opaque fields.
func IsContainerKey(k string) bool {
	return k == containerSnake || k == containerCamel
}

// ReadEnvelope reads the metadata container attached to a raw entity map
// under either naming convention and returns the normalized envelope, or nil
// when the entity carries no metadata. When both containers are present the
// modern one wins per key. The input map is not modified.
func ReadEnvelope(entity map[string]any) *Envelope {
	if entity == nil {
		return nil
	}
	legacy := decodeContainer(entity[containerCamel])
	modern := decodeContainer(entity[containerSnake])
	if legacy == nil {
		return modern.normalize()
	}
	if modern == nil {
		return legacy.normalize()
	}
	return MergeEnvelope(legacy, modern.Extra, modern.Known).mergeParts(modern.Parts).normalize()
}

// decodeContainer decodes one container value into an envelope. Unrecognized
// shapes yield nil rather than an error: a malformed container is vendor data
// like any other and stays wherever the adapter put it.
func decodeContainer(v any) *Envelope {
	c, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	env := &Envelope{}
	if raw, ok := c[slotKnown].(map[string]any); ok {
		env.Known, _ = SplitKnown(raw)
	}
	if raw, ok := c[slotExtra].(map[string]any); ok && len(raw) > 0 {
		env.Extra = maps.Clone(raw)
	}
	if raw, ok := c[slotParts].(map[string]any); ok && len(raw) > 0 {
		env.Parts = maps.Clone(raw)
	}
	return env.normalize()
}

// SplitKnown separates known fields from a raw bag by allow-list. Known keys
// are recognized under both naming conventions and removed; everything else
// is returned as the opaque remainder. The input map is not modified.
func SplitKnown(raw map[string]any) (KnownFields, map[string]any) {
	var known KnownFields
	var opaque map[string]any
	// Ordered pass so the snake_case spelling wins when both are present.
	for _, key := range []string{
		"toolName", "isError", "isRefusal", "originalType", "messageIndex",
		"tool_name", "is_error", "is_refusal", "original_type", "message_index",
	} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch knownAliases[key] {
		case "tool_name":
			if s, ok := v.(string); ok {
				known.ToolName = s
			}
		case "is_error":
			if b, ok := v.(bool); ok {
				known.IsError = &b
			}
		case "is_refusal":
			if b, ok := v.(bool); ok {
				known.IsRefusal = &b
			}
		case "original_type":
			if s, ok := v.(string); ok {
				known.OriginalType = s
			}
		case "message_index":
			if n, ok := cast.ToInt64(v); ok {
				i := int(n)
				known.MessageIndex = &i
			}
		}
	}
	for k, v := range raw {
		if _, isKnown := knownAliases[k]; isKnown {
			continue
		}
		if opaque == nil {
			opaque = make(map[string]any)
		}
		opaque[k] = v
	}
	return known, opaque
}

// MergeEnvelope overlays new opaque fields and known fields onto an existing
// envelope and returns a new normalized envelope (nil when empty). The merge
// is key-by-key with new values winning; existing is never modified.
func MergeEnvelope(existing *Envelope, extra map[string]any, known KnownFields) *Envelope {
	out := existing.Clone()
	if out == nil {
		out = &Envelope{}
	}
	out.Known = out.Known.merge(known)
	if len(extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(extra))
		}
		maps.Copy(out.Extra, extra)
	}
	return out.normalize()
}

// mergeParts overlays a parts slot onto a clone of the envelope.
func (e *Envelope) mergeParts(parts map[string]any) *Envelope {
	if len(parts) == 0 {
		return e
	}
	out := e.Clone()
	if out == nil {
		out = &Envelope{}
	}
	if out.Parts == nil {
		out.Parts = make(map[string]any, len(parts))
	}
	maps.Copy(out.Parts, parts)
	return out
}

// encodeKnown renders set known fields with style-appropriate keys.
func encodeKnown(k KnownFields, style KeyStyle) map[string]any {
	if k.IsZero() {
		return nil
	}
	out := make(map[string]any)
	put := func(snake string, v any) {
		if style == CamelKeys {
			out[knownCamel[snake]] = v
		} else {
			out[snake] = v
		}
	}
	if k.ToolName != "" {
		put("tool_name", k.ToolName)
	}
	if k.IsError != nil {
		put("is_error", *k.IsError)
	}
	if k.IsRefusal != nil {
		put("is_refusal", *k.IsRefusal)
	}
	if k.OriginalType != "" {
		put("original_type", k.OriginalType)
	}
	if k.MessageIndex != nil {
		put("message_index", *k.MessageIndex)
	}
	return out
}

// encodeContainer renders the envelope as a container value in the given
// style. Empty slots are omitted.
func encodeContainer(e *Envelope, style KeyStyle) map[string]any {
	out := make(map[string]any)
	if kf := encodeKnown(e.Known, style); len(kf) > 0 {
		out[slotKnown] = kf
	}
	if len(e.Extra) > 0 {
		out[slotExtra] = maps.Clone(e.Extra)
	}
	if len(e.Parts) > 0 {
		out[slotParts] = maps.Clone(e.Parts)
	}
	return out
}

// containerKey is the container field name an adapter of the given style
// writes.
func containerKey(style KeyStyle) string {
	if style == CamelKeys {
		return containerCamel
	}
	return containerSnake
}

// ApplyOutputMode renders an entity's metadata at the output boundary. It
// returns a copy of the entity; the input map and envelope are never
// modified, and identical arguments always produce identical output.
func ApplyOutputMode(entity map[string]any, env *Envelope, mode MetadataMode, style KeyStyle) map[string]any {
	out := make(map[string]any, len(entity)+1)
	maps.Copy(out, entity)
	env = env.normalize()
	if env == nil {
		return out
	}
	switch mode {
	case ModeStrip:
		// Known fields were already consumed by the adapter; nothing is emitted.
	case ModePassthrough:
		// Opaque fields become top-level fields. Modeled output fields win on
		// collision. Known fields and parts metadata have no flattened form.
		for k, v := range env.Extra {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	default: // ModePreserve and the zero value
		out[containerKey(style)] = encodeContainer(env, style)
	}
	return out
}

// PromoteParts attaches a gathered parts-metadata slot to a message
// envelope, returning a new normalized envelope. The input is not modified.
func PromoteParts(env *Envelope, parts map[string]any) *Envelope {
	if len(parts) == 0 {
		return env.normalize()
	}
	return env.mergeParts(parts).normalize()
}

// GatherPartsMeta merges the envelopes of parts about to be collapsed into a
// single string and returns the merged envelope encoded as a parts slot value
// (modern style), or nil when no part carries metadata. Later parts win per
// key.
func GatherPartsMeta(parts []Part) map[string]any {
	var merged *Envelope
	for _, p := range parts {
		pm := PartMeta(p)
		if pm.IsZero() {
			continue
		}
		merged = MergeEnvelope(merged, pm.Extra, pm.Known).mergeParts(pm.Parts)
	}
	if merged.IsZero() {
		return nil
	}
	return encodeContainer(merged, SnakeKeys)
}

// RestorePartsMeta re-attaches promoted parts metadata to the first
// reconstructed part and returns the message envelope without its parts slot.
// This is the reverse hop of GatherPartsMeta.
func RestorePartsMeta(env *Envelope, parts []Part) ([]Part, *Envelope) {
	if env == nil || len(env.Parts) == 0 || len(parts) == 0 {
		return parts, env.normalize()
	}
	partEnv := decodeContainer(env.Parts)
	if partEnv != nil {
		restored := make([]Part, len(parts))
		copy(restored, parts)
		first := MergeEnvelope(PartMeta(restored[0]), partEnv.Extra, partEnv.Known).mergeParts(partEnv.Parts)
		restored[0] = WithPartMeta(restored[0], first)
		parts = restored
	}
	stripped := env.Clone()
	stripped.Parts = nil
	return parts, stripped.normalize()
}
