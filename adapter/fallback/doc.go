// Package fallback ingests chat payloads that match no known provider
// dialect. It sniffs field names instead of validating a schema, normalizes
// snake and kebab spellings, and always succeeds. It sits last in the
// inference priority list and cannot emit.
package fallback
