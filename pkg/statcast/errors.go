package statcast

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// FailureKind classifies a failed search request.
type FailureKind string

const (
	// FailureNetwork covers transport errors and 5xx responses.
	FailureNetwork FailureKind = "network"

	// FailureRateLimited covers 429 and 524 responses from the provider.
	FailureRateLimited FailureKind = "rate_limited"

	// FailureMalformed covers unparseable responses and 4xx statuses.
	// Hard failure for the specific request only.
	FailureMalformed FailureKind = "malformed"

	// FailureTruncated means the response was capped at the row limit.
	// Not retryable; the request's date range must be bisected.
	FailureTruncated FailureKind = "truncated"
)

// SearchError is a classified failure of one statcast search request.
type SearchError struct {
	Kind       FailureKind
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("statcast %s error (status %d): %s: %v",
			e.Kind, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("statcast %s error (status %d): %s",
		e.Kind, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error chain. Unclassified
// errors report as network failures, the conservative retryable default.
func KindOf(err error) FailureKind {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Kind
	}
	return FailureNetwork
}

// IsTruncated reports whether the error marks a row-capped response.
func IsTruncated(err error) bool {
	return KindOf(err) == FailureTruncated
}

// shouldRetry determines if a failure kind is worth retrying.
func shouldRetry(kind FailureKind) bool {
	switch kind {
	case FailureNetwork:
		return true
	case FailureRateLimited:
		return true
	case FailureMalformed:
		// Retrying won't fix a response we can't parse.
		return false
	case FailureTruncated:
		// Truncation is resolved by bisection, not by retrying.
		return false
	default:
		return false
	}
}
