// Package gemini provides a chatform adapter for the Gemini contents/parts
// dialect.
//
// Role "model" maps to the canonical assistant role and back. Parts with
// thought: true become reasoning parts. The dialect correlates function
// responses by name, so the adapter records the tool name in the known
// fields for targets that only carry call ids. Metadata is written in the
// camelCase convention to match the dialect.
package gemini
