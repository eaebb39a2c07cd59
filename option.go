package chatform

// Option configures a Translator (functional options pattern).
type Option func(*Translator) error

// WithAdapters replaces the adapter set with an explicit list instead of the
// process-wide registry. Later adapters with the same ID win.
func WithAdapters(adapters ...Adapter) Option {
	return func(t *Translator) error {
		t.adapters = make(map[string]Adapter, len(adapters))
		for _, a := range adapters {
			t.adapters[a.ID()] = a
		}
		return nil
	}
}

// WithInferPriority sets the provider order used by Infer. The list must be
// non-empty; the heuristic fallback is appended when absent.
func WithInferPriority(ids ...string) Option {
	return func(t *Translator) error {
		if len(ids) == 0 {
			return ErrEmptyInferPriority
		}
		t.priority = append([]string(nil), ids...)
		return nil
	}
}
