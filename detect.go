package chatform

import "github.com/tidwall/gjson"

// Detect sniffs the provider dialect of a raw JSON message payload from its
// structure alone. It returns a provider id or "" when the shape is
// ambiguous. Detection is a hint for inference, not a verdict: callers must
// still validate against the detected adapter's schema.
func Detect(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	root := gjson.ParseBytes(data)
	msgs := root
	if root.IsObject() {
		// Accept request-style wrappers around the message list.
		switch {
		case root.Get("contents").IsArray():
			return ProviderGemini
		case root.Get("messages").IsArray():
			msgs = root.Get("messages")
		default:
			return ""
		}
	}
	if !msgs.IsArray() {
		return ""
	}
	arr := msgs.Array()
	if len(arr) == 0 {
		return ""
	}
	first := arr[0]
	if !first.IsObject() {
		return ""
	}
	if first.Get("parts").Exists() {
		// Canonical parts are tagged; Gemini parts are keyed by payload kind.
		firstPart := first.Get("parts.0")
		if firstPart.Get("type").Exists() {
			return ProviderCanonical
		}
		return ProviderGemini
	}
	if first.Get("role").String() == "model" {
		return ProviderGemini
	}
	content := first.Get("content")
	if content.IsArray() {
		switch content.Get("0.type").String() {
		case "tool_use", "tool_result", "thinking", "redacted_thinking":
			return ProviderAnthropic
		case "image_url", "input_audio", "refusal":
			return ProviderOpenAI
		case "image", "file":
			if content.Get("0.source").Exists() {
				return ProviderAnthropic
			}
			return ProviderPromptl
		}
		return ""
	}
	if first.Get("images").Exists() || first.Get("thinking").Exists() {
		return ProviderOllama
	}
	if first.Get("tool_calls.0.function.arguments").Exists() {
		// Both dialects nest function arguments; OpenAI carries them as a
		// JSON-encoded string, Ollama as an object.
		if first.Get("tool_calls.0.function.arguments").Type == gjson.String {
			return ProviderOpenAI
		}
		return ProviderOllama
	}
	if first.Get("tool_call_id").Exists() || first.Get("refusal").Exists() {
		return ProviderOpenAI
	}
	return ""
}
