// Package openai provides a chatform adapter for the OpenAI Chat Completions
// message dialect.
//
// Sibling reasoning fields (reasoning_content, reasoning) become reasoning
// parts ordered before the answer text; the original key survives the round
// trip via the original-type known field. Assistant refusal strings become
// text parts flagged with the refusal known field. Tool call arguments must
// be valid JSON; otherwise adapter.ErrMalformedArgs is returned.
package openai
