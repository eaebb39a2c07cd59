// Package ollama provides a chatform adapter for the Ollama chat dialect.
//
// The dialect collapses message content into a single string, so per-part
// metadata is promoted into the message envelope's parts slot on the way out
// and restored onto the first reconstructed part on the way back. Images
// travel as a sibling base64 array and map to image blobs; the thinking
// field maps to a reasoning part.
package ollama
