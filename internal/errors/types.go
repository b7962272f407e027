// Package errors provides error classification for the session engine.
// This enables different retry policies based on error recoverability and
// keeps the engine's surfacing rules (what reaches a caller versus what is
// absorbed into a degraded state) in one place.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory determines how errors should be handled by retry logic.
type ErrorCategory int

const (
	// Recoverable errors should be retried with exponential backoff.
	// Examples: 500 Internal Server Error, network timeouts, connection failures.
	Recoverable ErrorCategory = iota

	// Irrecoverable errors should fail immediately without retry.
	// Examples: 401 Unauthorized, 403 Forbidden, 400 Bad Request.
	Irrecoverable
)

// String returns a human-readable representation of the error category.
func (c ErrorCategory) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Kind places an error in the engine's taxonomy, which decides whether it
// may surface to a caller at all.
type Kind int

const (
	// KindValidation rejects malformed input before any I/O. Surfaced to
	// the caller of Login.
	KindValidation Kind = iota

	// KindOracle marks a remote identity-provider failure: network,
	// timeout, or provider-reported. The final oracle error from the
	// login chain is surfaced; everywhere else it degrades to cache.
	KindOracle

	// KindStorage marks a local medium read/write failure. Never surfaced;
	// the cache treats a failed medium as non-fatal.
	KindStorage

	// KindCorruption marks a stored value that failed to parse. Repaired
	// in place, never surfaced.
	KindCorruption
)

// String returns the taxonomy label used in logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindOracle:
		return "Oracle"
	case KindStorage:
		return "Storage"
	case KindCorruption:
		return "Corruption"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// ClassifiedError wraps an error with categorization metadata for retry and
// surfacing policies.
type ClassifiedError struct {
	Kind       Kind
	Category   ErrorCategory
	StatusCode int    // HTTP status code (0 for non-HTTP errors)
	Body       string // Response body for debugging
	Underlying error  // The original error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s/%s] HTTP %d: %v", e.Kind, e.Category, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("[%s/%s] %v", e.Kind, e.Category, e.Underlying)
}

// Unwrap returns the underlying error for error chain compatibility.
func (e *ClassifiedError) Unwrap() error {
	return e.Underlying
}

// IsIrrecoverable returns true if the error should not be retried.
// Wrapped classified errors are recognized anywhere in the chain.
func IsIrrecoverable(err error) bool {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified.Category == Irrecoverable
	}
	return false
}

// KindOf reports the taxonomy kind, defaulting unclassified errors to
// KindOracle so unknown remote failures still count against the breaker.
func KindOf(err error) Kind {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified.Kind
	}
	return KindOracle
}

// NewValidationError creates an irrecoverable validation failure.
func NewValidationError(err error) *ClassifiedError {
	return &ClassifiedError{Kind: KindValidation, Category: Irrecoverable, Underlying: err}
}

// NewStorageError wraps a medium read/write failure; recoverable because a
// later attempt on the same medium may succeed.
func NewStorageError(medium string, err error) *ClassifiedError {
	return &ClassifiedError{
		Kind:       KindStorage,
		Category:   Recoverable,
		Underlying: fmt.Errorf("%s medium: %w", medium, err),
	}
}

// NewCorruptionError wraps an unparseable stored value. Irrecoverable:
// re-reading the same bytes cannot help, only repair can.
func NewCorruptionError(medium, key string, err error) *ClassifiedError {
	return &ClassifiedError{
		Kind:       KindCorruption,
		Category:   Irrecoverable,
		Underlying: fmt.Errorf("%s medium, key %q: %w", medium, key, err),
	}
}
