package chatform

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Options configure one translation call.
type Options struct {
	From      string       // source provider; inferred when empty
	To        string       // target provider; ProviderCanonical when empty
	System    any          // separated system instructions (string, part, or part list)
	Direction Direction    // DirectionInput when empty
	Mode      MetadataMode // ModePreserve when empty
}

// Translator resolves providers and drives dialect-to-dialect translation
// through the canonical form. Safe for concurrent use: its configuration is
// fixed at construction.
type Translator struct {
	adapters map[string]Adapter
	priority []string
}

// New builds a Translator. Without WithAdapters it snapshots the process-wide
// registry; without WithInferPriority it uses DefaultInferPriority filtered
// to the available adapters.
func New(opts ...Option) (*Translator, error) {
	t := &Translator{}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	if t.adapters == nil {
		t.adapters = registered()
	}
	if t.priority == nil {
		for _, id := range DefaultInferPriority {
			if _, ok := t.adapters[id]; ok {
				t.priority = append(t.priority, id)
			}
		}
	}
	// Inference must never dead-end: the permissive fallback goes last.
	if _, ok := t.adapters[ProviderFallback]; ok && !contains(t.priority, ProviderFallback) {
		t.priority = append(t.priority, ProviderFallback)
	}
	return t, nil
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// Translate converts input from one provider dialect to another through the
// canonical form. Errors are returned, never panicked; see MustTranslate for
// the panicking form.
func (t *Translator) Translate(input any, opts Options) (*Output, error) {
	input, err := decodeRaw(input)
	if err != nil {
		return nil, err
	}
	msgs, err := t.toCanonical(input, opts)
	if err != nil {
		return nil, err
	}
	to := opts.To
	if to == "" {
		to = ProviderCanonical
	}
	emitter, ok := t.adapters[to].(Emitter)
	if !ok {
		return nil, &UnsupportedError{Provider: to, Target: true}
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModePreserve
	}
	out, err := emitter.FromCanonical(msgs, opts.Direction, mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", to, err)
	}
	return out, nil
}

// ToCanonical resolves the source provider and returns typed canonical
// messages without rendering a target shape.
func (t *Translator) ToCanonical(input any, opts Options) ([]Message, error) {
	input, err := decodeRaw(input)
	if err != nil {
		return nil, err
	}
	return t.toCanonical(input, opts)
}

// toCanonical runs steps 1-4 of the pipeline: resolve source, check system
// support, convert.
func (t *Translator) toCanonical(input any, opts Options) ([]Message, error) {
	from := opts.From
	if from == "" {
		inferred, err := t.Infer(input, opts.System, opts.Direction)
		if err != nil {
			return nil, err
		}
		from = inferred
	}
	src, ok := t.adapters[from]
	if !ok {
		return nil, &UnsupportedError{Provider: from}
	}
	if opts.System != nil && !src.SupportsSystem() {
		return nil, &SystemUnsupportedError{Provider: from}
	}
	msgs, err := src.ToCanonical(input, opts.System, opts.Direction)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", from, err)
	}
	return msgs, nil
}

// MustTranslate is like Translate but panics on error. Intended for static
// payloads known to be valid.
func (t *Translator) MustTranslate(input any, opts Options) *Output {
	out, err := t.Translate(input, opts)
	if err != nil {
		panic(err)
	}
	return out
}

// decodeRaw turns raw JSON bytes into a decoded value; other inputs pass
// through unchanged. A string is shorthand, not JSON, and stays a string.
func decodeRaw(input any) (any, error) {
	var data []byte
	switch x := input.(type) {
	case []byte:
		data = x
	case json.RawMessage:
		data = x
	default:
		return input, nil
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return decoded, nil
}

// defaultTranslator is the shared process-wide instance, built lazily over
// whatever adapters were registered at init time and never mutated after.
var defaultTranslator = sync.OnceValue(func() *Translator {
	t, err := New()
	if err != nil {
		panic(err)
	}
	return t
})

// Default returns the shared Translator over all registered adapters.
func Default() *Translator { return defaultTranslator() }

// Translate converts input using the shared default Translator.
func Translate(input any, opts Options) (*Output, error) {
	return Default().Translate(input, opts)
}

// MustTranslate is like Translate but panics on error.
func MustTranslate(input any, opts Options) *Output {
	return Default().MustTranslate(input, opts)
}
