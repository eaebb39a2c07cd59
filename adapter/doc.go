// Package adapter provides the shared helpers and sentinel errors used by
// provider adapter implementations. The Adapter/Emitter contract itself is
// defined in the root chatform package; implementations live in
// provider-specific subpackages and register themselves at init.
package adapter
