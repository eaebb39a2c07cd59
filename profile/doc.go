// Package profile loads reusable translation configurations from YAML: which
// dialects to convert between, the direction, the metadata mode, and an
// optional inference priority. Registry resolves named, per-environment
// profile files from a directory or an fs.FS (e.g. embed.FS) with lazy
// caching.
package profile
