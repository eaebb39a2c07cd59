package chatform_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/chatform"
	_ "github.com/skosovsky/chatform/adapter/anthropic"
	_ "github.com/skosovsky/chatform/adapter/fallback"
	_ "github.com/skosovsky/chatform/adapter/gemini"
	_ "github.com/skosovsky/chatform/adapter/ollama"
	_ "github.com/skosovsky/chatform/adapter/openai"
	_ "github.com/skosovsky/chatform/adapter/promptl"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTranslator(t *testing.T, opts ...chatform.Option) *chatform.Translator {
	t.Helper()
	tr, err := chatform.New(opts...)
	require.NoError(t, err)
	return tr
}

func messagesOf(t *testing.T, out *chatform.Output) []map[string]any {
	t.Helper()
	msgs, ok := out.Messages.([]map[string]any)
	require.True(t, ok, "messages have shape %T", out.Messages)
	return msgs
}

func TestTranslate_OpenAIToAnthropic_PreservesVendorFields(t *testing.T) {
	t.Parallel()
	input := []byte(`[
		{"role": "user", "content": "What is in this image?", "channel": "mobile"},
		{"role": "assistant", "content": [{"type": "text", "text": "A cat."}], "finish_reason": "stop"}
	]`)
	tr := newTranslator(t)
	out, err := tr.Translate(input, chatform.Options{
		From: chatform.ProviderOpenAI,
		To:   chatform.ProviderAnthropic,
	})
	require.NoError(t, err)
	msgs := messagesOf(t, out)
	require.Len(t, msgs, 2)

	assert.Equal(t, "user", msgs[0]["role"])
	container, ok := msgs[0]["metadata"].(map[string]any)
	require.True(t, ok, "default mode preserves the opaque bag")
	assert.Equal(t, map[string]any{"channel": "mobile"}, container["extra"])

	blocks := msgs[1]["content"].([]any)
	require.Len(t, blocks, 1)
	assert.Equal(t, map[string]any{"type": "text", "text": "A cat."}, blocks[0])
}

func TestTranslate_InfersSourceWhenFromEmpty(t *testing.T) {
	t.Parallel()
	input := []byte(`[{"role": "model", "parts": [{"text": "hello"}]}]`)
	tr := newTranslator(t)
	out, err := tr.Translate(input, chatform.Options{To: chatform.ProviderOpenAI})
	require.NoError(t, err)
	msgs := messagesOf(t, out)
	require.Len(t, msgs, 1)
	assert.Equal(t, "assistant", msgs[0]["role"])
	assert.Equal(t, "hello", msgs[0]["content"])
}

func TestTranslate_SystemToSupportingProvider(t *testing.T) {
	t.Parallel()
	tr := newTranslator(t)
	out, err := tr.Translate("hello", chatform.Options{
		From:   chatform.ProviderAnthropic,
		To:     chatform.ProviderGemini,
		System: "You are terse.",
	})
	require.NoError(t, err)
	require.NotNil(t, out.System, "system instructions emit separately")
	sys := out.System.(map[string]any)
	parts := sys["parts"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, map[string]any{"text": "You are terse."}, parts[0])
}

func TestTranslate_SystemUnsupportedProvider(t *testing.T) {
	t.Parallel()
	tr := newTranslator(t)
	_, err := tr.Translate("hello", chatform.Options{
		From:   chatform.ProviderPromptl,
		To:     chatform.ProviderOpenAI,
		System: "You are terse.",
	})
	require.Error(t, err)
	var sysErr *chatform.SystemUnsupportedError
	require.ErrorAs(t, err, &sysErr)
	assert.Equal(t, `Provider "promptl" does not support separated system instructions`, err.Error())
}

func TestTranslate_SystemInlinedForTarget(t *testing.T) {
	t.Parallel()
	tr := newTranslator(t)
	// The separated-system check guards the source side only. A target that
	// keeps system instructions in-band receives them inlined into the list.
	out, err := tr.Translate("hello", chatform.Options{
		From:   chatform.ProviderCanonical,
		To:     chatform.ProviderPromptl,
		System: "Be brief.",
	})
	require.NoError(t, err)
	msgs := messagesOf(t, out)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0]["role"])
	assert.Equal(t, "user", msgs[1]["role"])
	assert.Nil(t, out.System)
}

func TestTranslate_UnknownSourceProvider(t *testing.T) {
	t.Parallel()
	tr := newTranslator(t)
	_, err := tr.Translate("hello", chatform.Options{From: "acme", To: chatform.ProviderOpenAI})
	require.Error(t, err)
	var unsupported *chatform.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, `Translating from provider "acme" is not supported`, err.Error())
}

func TestTranslate_IngestionOnlyTarget(t *testing.T) {
	t.Parallel()
	tr := newTranslator(t)
	_, err := tr.Translate("hello", chatform.Options{
		From: chatform.ProviderOpenAI,
		To:   chatform.ProviderFallback,
	})
	require.Error(t, err)
	var unsupported *chatform.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.True(t, unsupported.Target)
	assert.Equal(t, `Translating to provider "fallback" is not supported`, err.Error())
}

func TestNew_EmptyInferPriority(t *testing.T) {
	t.Parallel()
	_, err := chatform.New(chatform.WithInferPriority())
	require.Error(t, err)
	assert.ErrorIs(t, err, chatform.ErrEmptyInferPriority)
	assert.Equal(t, "Infer priority list cannot be empty if provided", err.Error())
}

func TestInfer_PriorityDecidesAmbiguity(t *testing.T) {
	t.Parallel()
	// A bare role/content exchange satisfies several schemas; the priority
	// list breaks the tie.
	input := []byte(`[{"role": "user", "content": "hi"}]`)
	tr := newTranslator(t)
	provider, err := tr.Infer(input, nil, chatform.DirectionInput)
	require.NoError(t, err)
	assert.Equal(t, chatform.ProviderAnthropic, provider)

	scoped := newTranslator(t, chatform.WithInferPriority(chatform.ProviderOllama, chatform.ProviderOpenAI))
	provider, err = scoped.Infer(input, nil, chatform.DirectionInput)
	require.NoError(t, err)
	assert.Equal(t, chatform.ProviderOllama, provider)
}

func TestInfer_FallbackNeverFails(t *testing.T) {
	t.Parallel()
	input := []byte(`[{"speaker": "human", "body": "hi"}]`)
	tr := newTranslator(t)
	provider, err := tr.Infer(input, nil, chatform.DirectionInput)
	require.NoError(t, err)
	assert.Equal(t, chatform.ProviderFallback, provider)
}

func TestInfer_SystemSkipsNonSupportingProviders(t *testing.T) {
	t.Parallel()
	// OpenAI-shaped payload plus separated system: openai cannot take it, so
	// inference lands on a system-capable provider instead.
	input := []byte(`[{"role": "tool", "tool_call_id": "c1", "content": "42"}]`)
	tr := newTranslator(t)

	provider, err := tr.Infer(input, nil, chatform.DirectionInput)
	require.NoError(t, err)
	assert.Equal(t, chatform.ProviderOpenAI, provider)

	provider, err = tr.Infer(input, "You are terse.", chatform.DirectionInput)
	require.NoError(t, err)
	assert.NotEqual(t, chatform.ProviderOpenAI, provider)
}

func TestTranslate_ModeStrip(t *testing.T) {
	t.Parallel()
	input := []byte(`[{"role": "user", "content": "hi", "channel": "mobile"}]`)
	tr := newTranslator(t)
	out, err := tr.Translate(input, chatform.Options{
		From: chatform.ProviderOpenAI,
		To:   chatform.ProviderOpenAI,
		Mode: chatform.ModeStrip,
	})
	require.NoError(t, err)
	msgs := messagesOf(t, out)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"role": "user", "content": "hi"}, msgs[0])
}

func TestTranslate_ModePassthrough(t *testing.T) {
	t.Parallel()
	input := []byte(`[{"role": "user", "content": "hi", "channel": "mobile"}]`)
	tr := newTranslator(t)
	out, err := tr.Translate(input, chatform.Options{
		From: chatform.ProviderOpenAI,
		To:   chatform.ProviderAnthropic,
		Mode: chatform.ModePassthrough,
	})
	require.NoError(t, err)
	msgs := messagesOf(t, out)
	require.Len(t, msgs, 1)
	assert.Equal(t, "mobile", msgs[0]["channel"])
	assert.NotContains(t, msgs[0], "metadata")
}

func TestTranslate_Deterministic(t *testing.T) {
	t.Parallel()
	input := []byte(`[{"role": "user", "content": "hi", "a": 1, "b": 2}]`)
	tr := newTranslator(t)
	opts := chatform.Options{From: chatform.ProviderOpenAI, To: chatform.ProviderAnthropic}
	first, err := tr.Translate(input, opts)
	require.NoError(t, err)
	second, err := tr.Translate(input, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTranslate_RawJSONAndDecodedInputAgree(t *testing.T) {
	t.Parallel()
	raw := []byte(`[{"role": "user", "content": "hi"}]`)
	var decoded any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	tr := newTranslator(t)
	opts := chatform.Options{From: chatform.ProviderOpenAI, To: chatform.ProviderGemini}
	fromRaw, err := tr.Translate(raw, opts)
	require.NoError(t, err)
	fromDecoded, err := tr.Translate(decoded, opts)
	require.NoError(t, err)
	assert.Equal(t, fromRaw, fromDecoded)
}

func TestTranslate_InvalidJSON(t *testing.T) {
	t.Parallel()
	tr := newTranslator(t)
	_, err := tr.Translate([]byte("{not json"), chatform.Options{To: chatform.ProviderOpenAI})
	assert.ErrorIs(t, err, chatform.ErrInvalidInput)
}

func TestMustTranslate_PanicsOnError(t *testing.T) {
	t.Parallel()
	tr := newTranslator(t)
	assert.Panics(t, func() {
		tr.MustTranslate("hello", chatform.Options{From: "acme"})
	})
	assert.NotPanics(t, func() {
		tr.MustTranslate("hello", chatform.Options{To: chatform.ProviderOpenAI})
	})
}

func TestPackageLevelTranslate(t *testing.T) {
	t.Parallel()
	out, err := chatform.Translate("hello", chatform.Options{To: chatform.ProviderOpenAI})
	require.NoError(t, err)
	msgs := messagesOf(t, out)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0]["role"])
	assert.Equal(t, "hello", msgs[0]["content"])
}

func TestToCanonical_ReturnsTypedMessages(t *testing.T) {
	t.Parallel()
	input := []byte(`[{"role": "assistant", "content": [{"type": "thinking", "thinking": "hmm"}, {"type": "text", "text": "done"}]}]`)
	tr := newTranslator(t)
	msgs, err := tr.ToCanonical(input, chatform.Options{From: chatform.ProviderAnthropic})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Parts, 2)
	assert.IsType(t, chatform.ReasoningPart{}, msgs[0].Parts[0])
	assert.IsType(t, chatform.TextPart{}, msgs[0].Parts[1])
}

func TestWithAdapters_ScopesRegistry(t *testing.T) {
	t.Parallel()
	tr := newTranslator(t, chatform.WithAdapters())
	_, err := tr.Translate("hello", chatform.Options{From: chatform.ProviderOpenAI, To: chatform.ProviderOpenAI})
	var unsupported *chatform.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}
