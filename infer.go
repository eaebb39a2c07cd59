package chatform

import (
	"encoding/json"
	"fmt"
)

// Infer determines which registered provider's schema the input satisfies by
// trying the priority list in order; the first adapter whose ToCanonical
// succeeds wins. With the fallback adapter registered this never fails for
// syntactically valid input. When system instructions are supplied, providers
// without system support are skipped.
func (t *Translator) Infer(input, system any, dir Direction) (string, error) {
	input, err := decodeRaw(input)
	if err != nil {
		return "", err
	}
	if len(t.priority) == 0 {
		return "", ErrEmptyInferPriority
	}
	// Fast path: structural sniffing of the payload narrows the scan, but the
	// candidate is still verified against its schema.
	if id := Detect(sniffable(input)); id != "" {
		if a, ok := t.adapters[id]; ok && (system == nil || a.SupportsSystem()) {
			if _, err := a.ToCanonical(input, system, dir); err == nil {
				return id, nil
			}
		}
	}
	var lastErr error
	for _, id := range t.priority {
		a, ok := t.adapters[id]
		if !ok {
			continue
		}
		if system != nil && !a.SupportsSystem() {
			continue
		}
		if _, err := a.ToCanonical(input, system, dir); err == nil {
			return id, nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: no provider matched input: %w", ErrUnknownProvider, lastErr)
	}
	return "", fmt.Errorf("%w: no provider matched input", ErrUnknownProvider)
}

// sniffable renders a decoded input back to JSON for structural detection.
// Bare strings and non-JSON inputs return nil, skipping the fast path.
func sniffable(input any) []byte {
	switch input.(type) {
	case string, nil:
		return nil
	}
	data, err := json.Marshal(input)
	if err != nil {
		return nil
	}
	return data
}
