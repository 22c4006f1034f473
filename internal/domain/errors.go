package domain

import "errors"

// Sentinel errors for the settlement pipeline. Handlers map these onto HTTP
// status codes; services wrap them with %w so callers can errors.Is them.
var (
	// ErrValidation covers user-correctable input problems, e.g. a donation
	// below the configured floor.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers unknown campaigns and orders.
	ErrNotFound = errors.New("not found")

	// ErrSignature means an authenticity check failed. Nothing is mutated and
	// the failure is logged for audit; it is never retried.
	ErrSignature = errors.New("signature verification failed")

	// ErrGateway covers upstream payment provider failures. Safe to retry:
	// no partial state is left behind.
	ErrGateway = errors.New("payment gateway error")

	// ErrPersistence covers transaction failures. The transaction is rolled
	// back in full, so retries are always safe.
	ErrPersistence = errors.New("persistence error")

	// ErrNotification covers receipt delivery failures. Logged only, never
	// propagated, never rolls back a settled payment.
	ErrNotification = errors.New("notification error")
)
