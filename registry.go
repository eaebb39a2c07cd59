package chatform

import "sync"

// Built-in provider identifiers.
const (
	ProviderCanonical = "canonical"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
	ProviderPromptl   = "promptl"
	ProviderFallback  = "fallback"
)

// DefaultInferPriority is the order providers are tried during inference when
// a Translator is built without an explicit priority. The heuristic fallback
// is always last: it accepts anything. Do not modify.
var DefaultInferPriority = []string{
	ProviderAnthropic,
	ProviderGemini,
	ProviderOpenAI,
	ProviderOllama,
	ProviderPromptl,
	ProviderCanonical,
	ProviderFallback,
}

// registry is the process-wide adapter set, populated by adapter package
// init functions and read-only after the default Translator is first built.
var registry = struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}{adapters: make(map[string]Adapter)}

// Register adds an adapter to the process-wide registry under its ID.
// Typically called from an adapter package's init; later registrations for
// the same ID win.
func Register(a Adapter) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.adapters[a.ID()] = a
}

// registered returns a snapshot of the process-wide registry.
func registered() map[string]Adapter {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make(map[string]Adapter, len(registry.adapters))
	for id, a := range registry.adapters {
		out[id] = a
	}
	return out
}
