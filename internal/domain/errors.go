package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no job record or backend artifact exists for the id.
	ErrNotFound = errors.New("job not found")
	// ErrConflict means a result was requested before the job reached a
	// terminal state.
	ErrConflict = errors.New("job is still processing")
	// ErrCircuitOpen is returned without any network attempt while the
	// dispatcher's breaker is open.
	ErrCircuitOpen = errors.New("processor circuit is open")
	// ErrUnauthorized rejects a callback whose bearer token does not match.
	ErrUnauthorized = errors.New("callback token mismatch")
)

// NormalizationError reports a client input that could not be coerced into
// the canonical request shape.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: %s", e.Field, e.Reason)
}

// ValidationError reports the first schema violation found in a canonical
// request. Validation stops at the first error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError wraps a failure response or transport error from the
// processing engine.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: processor returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
