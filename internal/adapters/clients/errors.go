// Package clients is the resilient HTTP client behind every provider
// adapter.
package clients

import "errors"

// Transport-level failures. Provider adapters translate them into domain
// errors; nothing above the adapters sees these values.
var (
	// ErrCircuitOpen means the breaker is rejecting calls to the provider.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure once every attempt is used.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
