// Package chain holds the value types and error taxonomy shared by every
// deriver and repository: packed on-chain primitives (U256, Location,
// EventId), address normalization, and the typed errors from spec §7.
package chain

import "errors"

// Sentinel errors. Call sites wrap these with fmt.Errorf("...: %w", ErrX) so
// callers can errors.Is against the taxonomy instead of string-matching.
var (
	ErrTransport      = errors.New("transport error")
	ErrParse          = errors.New("parse error")
	ErrNotFound       = errors.New("not found")
	ErrDivisionByZero = errors.New("division by zero")
	ErrInvariant      = errors.New("invariant violation")

	ErrReferenceTokenNotFound = errors.New("reference token not found")
	ErrTokenNotFound          = errors.New("token not found")
)
