// Package promptl translates Promptl-style chat payloads. Content is a list
// of typed items (text, image, file, tool-call, tool-result) and system
// content only appears as an in-band message role. Preserved metadata uses
// the legacy camelCase container spelling.
package promptl
