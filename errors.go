package chatform

import (
	"errors"
	"fmt"
)

// Sentinel errors for canonical decoding and translation. All use prefix
// "chatform:" for identification. Callers should use errors.Is/errors.As.
var (
	ErrInvalidMessage     = errors.New("chatform: message does not match canonical schema")
	ErrInvalidPart        = errors.New("chatform: part does not match canonical schema")
	ErrInvalidInput       = errors.New("chatform: input does not match provider schema")
	ErrUnknownProvider    = errors.New("chatform: provider is not registered")
	ErrEmptyInferPriority = errors.New("Infer priority list cannot be empty if provided")
)

// UnsupportedError reports that a provider cannot serve one side of a
// translation: a source without ToCanonical support or a target without
// FromCanonical. The message text is part of the compatibility contract.
type UnsupportedError struct {
	Provider string
	Target   bool // true when the provider cannot be a translation target
}

// Error implements error.
func (e *UnsupportedError) Error() string {
	if e.Target {
		return fmt.Sprintf("Translating to provider %q is not supported", e.Provider)
	}
	return fmt.Sprintf("Translating from provider %q is not supported", e.Provider)
}

// SystemUnsupportedError reports that separated system instructions were
// passed to a provider that only accepts in-band system messages. The message
// text is part of the compatibility contract.
type SystemUnsupportedError struct {
	Provider string
}

// Error implements error.
func (e *SystemUnsupportedError) Error() string {
	return fmt.Sprintf("Provider %q does not support separated system instructions", e.Provider)
}

// Compile-time checks.
var (
	_ error = (*UnsupportedError)(nil)
	_ error = (*SystemUnsupportedError)(nil)
)
