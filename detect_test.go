package chatform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		data string
		want string
	}{
		{
			name: "gemini contents wrapper",
			data: `{"contents":[{"role":"user","parts":[{"text":"hi"}]}]}`,
			want: ProviderGemini,
		},
		{
			name: "gemini keyed parts",
			data: `[{"role":"user","parts":[{"text":"hi"}]}]`,
			want: ProviderGemini,
		},
		{
			name: "gemini model role",
			data: `[{"role":"model","content":"hi"}]`,
			want: ProviderGemini,
		},
		{
			name: "canonical tagged parts",
			data: `[{"role":"user","parts":[{"type":"text","content":"hi"}]}]`,
			want: ProviderCanonical,
		},
		{
			name: "anthropic tool_use block",
			data: `[{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"calc","input":{}}]}]`,
			want: ProviderAnthropic,
		},
		{
			name: "anthropic image source block",
			data: `[{"role":"user","content":[{"type":"image","source":{"type":"base64","media_type":"image/png","data":"AA"}}]}]`,
			want: ProviderAnthropic,
		},
		{
			name: "openai image_url item",
			data: `[{"role":"user","content":[{"type":"image_url","image_url":{"url":"https://x/y.png"}}]}]`,
			want: ProviderOpenAI,
		},
		{
			name: "openai string arguments",
			data: `[{"role":"assistant","tool_calls":[{"id":"c1","type":"function","function":{"name":"f","arguments":"{}"}}]}]`,
			want: ProviderOpenAI,
		},
		{
			name: "openai tool_call_id",
			data: `[{"role":"tool","tool_call_id":"c1","content":"42"}]`,
			want: ProviderOpenAI,
		},
		{
			name: "ollama images",
			data: `[{"role":"user","content":"what is this","images":["AAAA"]}]`,
			want: ProviderOllama,
		},
		{
			name: "ollama object arguments",
			data: `[{"role":"assistant","content":"","tool_calls":[{"function":{"name":"f","arguments":{"x":1}}}]}]`,
			want: ProviderOllama,
		},
		{
			name: "promptl image item",
			data: `[{"role":"user","content":[{"type":"image","image":"https://x/y.png"}]}]`,
			want: ProviderPromptl,
		},
		{
			name: "plain chat is ambiguous",
			data: `[{"role":"user","content":"hi"}]`,
			want: "",
		},
		{
			name: "empty list",
			data: `[]`,
			want: "",
		},
		{
			name: "not json structure",
			data: `"hello"`,
			want: "",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Detect([]byte(tc.data)))
		})
	}
}

func TestDetect_Empty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Detect(nil))
}
