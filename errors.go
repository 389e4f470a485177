package lattice

import "errors"

// Error taxonomy shared by the registry and the SDK.
var (
	// ErrValidation marks malformed registration input. Never retried.
	ErrValidation = errors.New("invalid registration")

	// ErrSsrfRejected marks a registration location pointing at a loopback,
	// link-local or metadata-service address that is not allowlisted.
	ErrSsrfRejected = errors.New("location rejected by ssrf guard")

	// ErrNotFound marks an unknown service id or capability. Often non-fatal:
	// idempotent callers may ignore it on unregister.
	ErrNotFound = errors.New("not found")

	// ErrCapabilityUnavailable is surfaced by the resolver when no provider
	// exists or the one-retry budget is exhausted.
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrUnreachable marks a transient transport failure (connection refused,
	// timeout, 5xx). The resolver treats it as grounds for re-resolution.
	ErrUnreachable = errors.New("target unreachable")
)
