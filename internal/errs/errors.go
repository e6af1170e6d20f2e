package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	// ErrConflict means the write lost a race (retry budget exhausted) or collides with existing state.
	ErrConflict = errors.New("conflict")
	// ErrValidation is a malformed or missing input. Never retried.
	ErrValidation = errors.New("validation_error")
	// ErrInvalid is kept as the short name used by CRUD services.
	ErrInvalid = ErrValidation
	// ErrInsufficientFunds indicates an expense would drive a wallet balance below zero.
	ErrInsufficientFunds = errors.New("insufficient_funds")
	// ErrInUse indicates a category is still referenced by transactions.
	ErrInUse = errors.New("in_use")
	// ErrIdempotencyMismatch is returned when a key is replayed with a different payload.
	ErrIdempotencyMismatch = errors.New("idempotency_mismatch")
	// ErrSerialization is raised by a storage layer when an isolated transaction
	// could not be serialized against a concurrent one. The writer retries it.
	ErrSerialization = errors.New("serialization_failure")
	// ErrTransient is a client-observed network failure or timeout.
	ErrTransient = errors.New("transient_network_failure")
)

// Retryable reports whether a storage error may succeed if the whole isolated
// unit of work is run again.
func Retryable(err error) bool {
	return errors.Is(err, ErrSerialization)
}

// Transient reports whether a client should keep a write queued and try again later.
func Transient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrConflict)
}

// Permanent reports whether the server definitively rejected a write.
func Permanent(err error) bool {
	if err == nil || Transient(err) {
		return false
	}
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrIdempotencyMismatch) ||
		errors.Is(err, ErrForbidden)
}

// Code returns the stable wire code for err, or "" if err is not one of ours.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrIdempotencyMismatch):
		return "idempotency_mismatch"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInUse):
		return "in_use"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	}
	return ""
}

// FromCode maps a wire code back to its sentinel. Unknown codes return nil.
func FromCode(code string) error {
	switch code {
	case "insufficient_funds":
		return ErrInsufficientFunds
	case "idempotency_mismatch":
		return ErrIdempotencyMismatch
	case "conflict":
		return ErrConflict
	case "not_found":
		return ErrNotFound
	case "in_use":
		return ErrInUse
	case "forbidden":
		return ErrForbidden
	case "validation_error":
		return ErrValidation
	}
	return nil
}
