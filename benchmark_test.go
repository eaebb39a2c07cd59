package chatform

import (
	"testing"
)

func BenchmarkDetect(b *testing.B) {
	data := []byte(`[{"role": "user", "parts": [{"text": "What is 2+2?"}]}, {"role": "model", "parts": [{"text": "4"}]}]`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Detect(data)
	}
}

func BenchmarkDecodeMessage(b *testing.B) {
	rm := map[string]any{
		"role": "assistant",
		"parts": []any{
			map[string]any{"type": "text", "content": "4"},
			map[string]any{"type": "tool_call", "id": "c1", "name": "calc", "arguments": map[string]any{"expr": "2+2"}},
		},
		"finish_reason": "stop",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = DecodeMessage(rm)
	}
}

func BenchmarkReadEnvelope(b *testing.B) {
	entity := map[string]any{
		"role": "user",
		"metadata": map[string]any{
			"known": map[string]any{"tool_name": "calc"},
			"extra": map[string]any{"channel": "mobile", "ab_test": "v2"},
		},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ReadEnvelope(entity)
	}
}

func BenchmarkApplyOutputMode(b *testing.B) {
	entity := map[string]any{"role": "user", "content": "hi"}
	env := &Envelope{Extra: map[string]any{"channel": "mobile"}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ApplyOutputMode(entity, env, ModePreserve, SnakeKeys)
	}
}

func BenchmarkTranslateCanonical(b *testing.B) {
	tr, err := New()
	if err != nil {
		b.Fatal(err)
	}
	input := []any{
		map[string]any{"role": "user", "parts": []any{map[string]any{"type": "text", "content": "What is 2+2?"}}},
		map[string]any{"role": "assistant", "parts": []any{map[string]any{"type": "text", "content": "4"}}},
	}
	opts := Options{From: ProviderCanonical, To: ProviderCanonical}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tr.Translate(input, opts)
	}
}
