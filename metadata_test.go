package chatform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEnvelope_ModernContainer(t *testing.T) {
	t.Parallel()
	entity := map[string]any{
		"role": "user",
		"metadata": map[string]any{
			"known": map[string]any{"tool_name": "lookup", "is_error": true},
			"extra": map[string]any{"cache_control": "ephemeral"},
		},
	}
	env := ReadEnvelope(entity)
	require.NotNil(t, env)
	assert.Equal(t, "lookup", env.Known.ToolName)
	require.NotNil(t, env.Known.IsError)
	assert.True(t, *env.Known.IsError)
	assert.Equal(t, "ephemeral", env.Extra["cache_control"])
}

func TestReadEnvelope_LegacyContainer(t *testing.T) {
	t.Parallel()
	entity := map[string]any{
		"extraData": map[string]any{
			"known": map[string]any{"toolName": "lookup", "isRefusal": true, "messageIndex": float64(2)},
			"extra": map[string]any{"vendor_field": "x"},
		},
	}
	env := ReadEnvelope(entity)
	require.NotNil(t, env)
	assert.Equal(t, "lookup", env.Known.ToolName)
	require.NotNil(t, env.Known.IsRefusal)
	assert.True(t, *env.Known.IsRefusal)
	require.NotNil(t, env.Known.MessageIndex)
	assert.Equal(t, 2, *env.Known.MessageIndex)
	assert.Equal(t, "x", env.Extra["vendor_field"])
}

func TestReadEnvelope_ModernWinsPerKey(t *testing.T) {
	t.Parallel()
	entity := map[string]any{
		"metadata": map[string]any{
			"known": map[string]any{"tool_name": "modern"},
			"extra": map[string]any{"shared": "modern", "modern_only": 1},
		},
		"extraData": map[string]any{
			"known": map[string]any{"toolName": "legacy", "originalType": "thinking"},
			"extra": map[string]any{"shared": "legacy", "legacy_only": 2},
		},
	}
	env := ReadEnvelope(entity)
	require.NotNil(t, env)
	assert.Equal(t, "modern", env.Known.ToolName)
	// Keys only the legacy container carries still survive.
	assert.Equal(t, "thinking", env.Known.OriginalType)
	assert.Equal(t, "modern", env.Extra["shared"])
	assert.Equal(t, 1, env.Extra["modern_only"])
	assert.Equal(t, 2, env.Extra["legacy_only"])
}

func TestReadEnvelope_Absent(t *testing.T) {
	t.Parallel()
	assert.Nil(t, ReadEnvelope(nil))
	assert.Nil(t, ReadEnvelope(map[string]any{"role": "user"}))
	// A malformed container is vendor data, not an envelope.
	assert.Nil(t, ReadEnvelope(map[string]any{"metadata": "a string"}))
	assert.Nil(t, ReadEnvelope(map[string]any{"metadata": map[string]any{}}))
}

func TestReadEnvelope_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	container := map[string]any{
		"known": map[string]any{"tool_name": "lookup"},
		"extra": map[string]any{"a": 1},
	}
	entity := map[string]any{"metadata": container}
	env := ReadEnvelope(entity)
	require.NotNil(t, env)
	env.Extra["b"] = 2
	assert.NotContains(t, container["extra"], "b")
	assert.Equal(t, container, entity["metadata"])
}

func TestSplitKnown(t *testing.T) {
	t.Parallel()
	raw := map[string]any{
		"tool_name":  "calc",
		"is_error":   false,
		"request_id": "r-1",
	}
	known, opaque := SplitKnown(raw)
	assert.Equal(t, "calc", known.ToolName)
	require.NotNil(t, known.IsError)
	assert.False(t, *known.IsError)
	assert.Equal(t, map[string]any{"request_id": "r-1"}, opaque)
	// Input untouched.
	assert.Len(t, raw, 3)
}

func TestSplitKnown_SnakeWinsOverCamel(t *testing.T) {
	t.Parallel()
	known, opaque := SplitKnown(map[string]any{
		"tool_name": "snake",
		"toolName":  "camel",
	})
	assert.Equal(t, "snake", known.ToolName)
	assert.Nil(t, opaque)
}

func TestMergeEnvelope(t *testing.T) {
	t.Parallel()
	base := &Envelope{
		Known: KnownFields{ToolName: "old", OriginalType: "thinking"},
		Extra: map[string]any{"a": 1, "b": 1},
	}
	merged := MergeEnvelope(base, map[string]any{"b": 2, "c": 3}, KnownFields{ToolName: "new"})
	require.NotNil(t, merged)
	assert.Equal(t, "new", merged.Known.ToolName)
	assert.Equal(t, "thinking", merged.Known.OriginalType)
	assert.Equal(t, map[string]any{"a": 1, "b": 2, "c": 3}, merged.Extra)
	// base is unchanged.
	assert.Equal(t, "old", base.Known.ToolName)
	assert.Equal(t, 1, base.Extra["b"])
}

func TestMergeEnvelope_EmptyIsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, MergeEnvelope(nil, nil, KnownFields{}))
	assert.Nil(t, MergeEnvelope(&Envelope{}, nil, KnownFields{}))
}

func TestApplyOutputMode_Preserve(t *testing.T) {
	t.Parallel()
	env := &Envelope{
		Known: KnownFields{ToolName: "calc"},
		Extra: map[string]any{"vendor": "x"},
	}
	entity := map[string]any{"role": "user", "content": "hi"}

	out := ApplyOutputMode(entity, env, ModePreserve, SnakeKeys)
	require.Contains(t, out, "metadata")
	container := out["metadata"].(map[string]any)
	assert.Equal(t, map[string]any{"tool_name": "calc"}, container["known"])
	assert.Equal(t, map[string]any{"vendor": "x"}, container["extra"])
	assert.NotContains(t, entity, "metadata")

	legacy := ApplyOutputMode(entity, env, ModePreserve, CamelKeys)
	require.Contains(t, legacy, "extraData")
	assert.Equal(t, map[string]any{"toolName": "calc"},
		legacy["extraData"].(map[string]any)["known"])
}

func TestApplyOutputMode_Passthrough(t *testing.T) {
	t.Parallel()
	env := &Envelope{
		Known: KnownFields{ToolName: "calc"},
		Extra: map[string]any{"vendor": "x", "content": "never clobbers"},
	}
	entity := map[string]any{"role": "user", "content": "hi"}
	out := ApplyOutputMode(entity, env, ModePassthrough, SnakeKeys)
	assert.Equal(t, "x", out["vendor"])
	assert.Equal(t, "hi", out["content"])
	assert.NotContains(t, out, "metadata")
	assert.NotContains(t, out, "tool_name")
}

func TestApplyOutputMode_Strip(t *testing.T) {
	t.Parallel()
	env := &Envelope{Extra: map[string]any{"vendor": "x"}}
	entity := map[string]any{"role": "user"}
	out := ApplyOutputMode(entity, env, ModeStrip, SnakeKeys)
	assert.Equal(t, map[string]any{"role": "user"}, out)
}

func TestApplyOutputMode_Deterministic(t *testing.T) {
	t.Parallel()
	env := &Envelope{Extra: map[string]any{"a": 1, "b": 2}}
	entity := map[string]any{"role": "user"}
	first := ApplyOutputMode(entity, env, ModePreserve, SnakeKeys)
	second := ApplyOutputMode(entity, env, ModePreserve, SnakeKeys)
	assert.Equal(t, first, second)
}

func TestGatherRestorePartsMeta(t *testing.T) {
	t.Parallel()
	parts := []Part{
		TextPart{Content: "a", Meta: &Envelope{Extra: map[string]any{"annotation": "x"}}},
		TextPart{Content: "b", Meta: &Envelope{Known: KnownFields{OriginalType: "redacted_thinking"}}},
	}
	gathered := GatherPartsMeta(parts)
	require.NotNil(t, gathered)

	env := PromoteParts(nil, gathered)
	require.NotNil(t, env)
	require.NotEmpty(t, env.Parts)

	restored, msgEnv := RestorePartsMeta(env, []Part{TextPart{Content: "ab"}})
	assert.Nil(t, msgEnv)
	require.Len(t, restored, 1)
	pm := PartMeta(restored[0])
	require.NotNil(t, pm)
	assert.Equal(t, "x", pm.Extra["annotation"])
	assert.Equal(t, "redacted_thinking", pm.Known.OriginalType)
}

func TestGatherPartsMeta_NoMetadata(t *testing.T) {
	t.Parallel()
	assert.Nil(t, GatherPartsMeta([]Part{TextPart{Content: "a"}, TextPart{Content: "b"}}))
}

func TestEnvelope_IsZeroAndClone(t *testing.T) {
	t.Parallel()
	var nilEnv *Envelope
	assert.True(t, nilEnv.IsZero())
	assert.Nil(t, nilEnv.Clone())
	assert.True(t, (&Envelope{}).IsZero())

	env := &Envelope{Extra: map[string]any{"a": 1}}
	clone := env.Clone()
	clone.Extra["b"] = 2
	assert.NotContains(t, env.Extra, "b")
}

func TestIsContainerKey(t *testing.T) {
	t.Parallel()
	assert.True(t, IsContainerKey("metadata"))
	assert.True(t, IsContainerKey("extraData"))
	assert.False(t, IsContainerKey("extra_data"))
	assert.False(t, IsContainerKey("content"))
}
