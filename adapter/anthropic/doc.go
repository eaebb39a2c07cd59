// Package anthropic provides a chatform adapter for the Anthropic Messages
// dialect.
//
// System instructions are a separated parameter (string or text blocks), so
// canonical system messages never appear in-band. Thinking blocks map to
// reasoning parts; redacted_thinking survives the round trip via the
// original-type known field. Image and document sources keep their extra
// fields (e.g. cache_control) in the opaque bag under "source".
package anthropic
