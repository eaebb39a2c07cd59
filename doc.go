// Package chatform normalizes chat message payloads from many LLM provider
// dialects into one canonical representation and back. Vendor-specific fields
// travel through the canonical form inside a metadata envelope, so a
// same-provider round trip loses no information.
package chatform
