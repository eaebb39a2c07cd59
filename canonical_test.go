package chatform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical_ToCanonical_Shorthand(t *testing.T) {
	t.Parallel()
	a := canonicalAdapter{}

	msgs, err := a.ToCanonical("hello", nil, DirectionInput)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Text())

	msgs, err = a.ToCanonical("hello", nil, DirectionOutput)
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
}

func TestCanonical_ToCanonical_WireMaps(t *testing.T) {
	t.Parallel()
	a := canonicalAdapter{}
	input := []any{
		map[string]any{
			"role":  "user",
			"parts": []any{map[string]any{"type": "text", "content": "hi"}},
		},
	}
	msgs, err := a.ToCanonical(input, nil, DirectionInput)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text())
}

func TestCanonical_ToCanonical_InvalidInput(t *testing.T) {
	t.Parallel()
	a := canonicalAdapter{}
	_, err := a.ToCanonical(42, nil, DirectionInput)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = a.ToCanonical([]any{"not an object"}, nil, DirectionInput)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestCanonical_SystemRoundTrip_PositionRestored(t *testing.T) {
	t.Parallel()
	a := canonicalAdapter{}
	msgs := []Message{
		{Role: RoleUser, Parts: []Part{TextPart{Content: "first"}}},
		{Role: RoleSystem, Parts: []Part{TextPart{Content: "mid-conversation rules"}}},
		{Role: RoleUser, Parts: []Part{TextPart{Content: "second"}}},
	}

	out, err := a.FromCanonical(msgs, DirectionInput, ModePreserve)
	require.NoError(t, err)
	require.NotNil(t, out.System)
	emitted := out.Messages.([]map[string]any)
	require.Len(t, emitted, 2)

	back, err := a.ToCanonical(out.Messages, out.System, DirectionInput)
	require.NoError(t, err)
	require.Len(t, back, 3)
	assert.Equal(t, RoleUser, back[0].Role)
	assert.Equal(t, RoleSystem, back[1].Role)
	assert.Equal(t, "mid-conversation rules", back[1].Text())
	assert.Equal(t, RoleUser, back[2].Role)
	// Positional bookkeeping does not survive reinsertion.
	assert.Nil(t, PartMeta(back[1].Parts[0]))
}

func TestCanonical_SystemRoundTrip_Passthrough(t *testing.T) {
	t.Parallel()
	a := canonicalAdapter{}
	msgs := []Message{
		{Role: RoleUser, Parts: []Part{TextPart{Content: "first"}}},
		{Role: RoleSystem, Parts: []Part{TextPart{
			Content: "mid-conversation rules",
			Meta:    &Envelope{Extra: map[string]any{"channel": "ops"}},
		}}},
		{Role: RoleUser, Parts: []Part{TextPart{Content: "second"}}},
	}

	out, err := a.FromCanonical(msgs, DirectionInput, ModePassthrough)
	require.NoError(t, err)
	require.NotNil(t, out.System)
	sys := out.System.([]map[string]any)
	require.Len(t, sys, 1)
	// Opaque fields are flattened; the origin index rides in the container.
	assert.Equal(t, "ops", sys[0]["channel"])

	back, err := a.ToCanonical(out.Messages, out.System, DirectionInput)
	require.NoError(t, err)
	require.Len(t, back, 3)
	assert.Equal(t, RoleUser, back[0].Role)
	assert.Equal(t, RoleSystem, back[1].Role)
	assert.Equal(t, "mid-conversation rules", back[1].Text())
	assert.Equal(t, RoleUser, back[2].Role)
	pm := PartMeta(back[1].Parts[0])
	require.NotNil(t, pm)
	assert.Equal(t, "ops", pm.Extra["channel"])
	assert.Nil(t, pm.Known.MessageIndex)
}

func TestCanonical_FromCanonical_NoSystem(t *testing.T) {
	t.Parallel()
	a := canonicalAdapter{}
	out, err := a.FromCanonical([]Message{
		{Role: RoleUser, Parts: []Part{TextPart{Content: "hi"}}},
	}, DirectionInput, ModePreserve)
	require.NoError(t, err)
	assert.Nil(t, out.System)
}

func TestReinsertSystem_NoIndexGoesFirst(t *testing.T) {
	t.Parallel()
	msgs := []Message{
		{Role: RoleUser, Parts: []Part{TextPart{Content: "q"}}},
	}
	out := reinsertSystem(msgs, []Part{TextPart{Content: "be brief"}})
	require.Len(t, out, 2)
	assert.Equal(t, RoleSystem, out[0].Role)
	assert.Equal(t, "be brief", out[0].Text())
}

func TestReinsertSystem_IndexBeyondLengthClamps(t *testing.T) {
	t.Parallel()
	idx := 10
	part := TextPart{Content: "late rules", Meta: &Envelope{Known: KnownFields{MessageIndex: &idx}}}
	msgs := []Message{
		{Role: RoleUser, Parts: []Part{TextPart{Content: "q"}}},
	}
	out := reinsertSystem(msgs, []Part{part})
	require.Len(t, out, 2)
	assert.Equal(t, RoleSystem, out[1].Role)
}

func TestReinsertSystem_MultipleIndicesAscending(t *testing.T) {
	t.Parallel()
	at := func(i int) *Envelope { return &Envelope{Known: KnownFields{MessageIndex: &i}} }
	msgs := []Message{
		{Role: RoleUser, Parts: []Part{TextPart{Content: "a"}}},
		{Role: RoleUser, Parts: []Part{TextPart{Content: "b"}}},
	}
	parts := []Part{
		TextPart{Content: "rules-3", Meta: at(3)},
		TextPart{Content: "rules-0", Meta: at(0)},
	}
	out := reinsertSystem(msgs, parts)
	require.Len(t, out, 4)
	assert.Equal(t, "rules-0", out[0].Text())
	assert.Equal(t, "a", out[1].Text())
	assert.Equal(t, "b", out[2].Text())
	assert.Equal(t, "rules-3", out[3].Text())
}

func TestDecodeSystemParts_Shapes(t *testing.T) {
	t.Parallel()
	parts, err := decodeSystemParts("be brief")
	require.NoError(t, err)
	require.Len(t, parts, 1)

	parts, err = decodeSystemParts([]any{"a", map[string]any{"type": "text", "content": "b"}})
	require.NoError(t, err)
	require.Len(t, parts, 2)

	_, err = decodeSystemParts(42)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = decodeSystemParts([]any{7})
	assert.ErrorIs(t, err, ErrInvalidPart)
}
