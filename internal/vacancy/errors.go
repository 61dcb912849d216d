package vacancy

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies transport-level failures.
type FetchErrorKind string

// Fetch error kinds.
const (
	FetchTimeout FetchErrorKind = "timeout"
	FetchHTTP    FetchErrorKind = "http_error"
	FetchDecode  FetchErrorKind = "decode_error"
)

// FetchError is returned by the HTTP client after the retry budget is spent
// or for non-retryable failures.
type FetchError struct {
	Kind   FetchErrorKind
	Status int
	URL    string
	Detail string
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchHTTP:
		return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.Status, e.Detail)
	case FetchTimeout:
		return fmt.Sprintf("fetch %s: timeout: %s", e.URL, e.Detail)
	default:
		return fmt.Sprintf("fetch %s: %s: %s", e.URL, e.Kind, e.Detail)
	}
}

// UpstreamEmptyError marks a listing call that succeeded but returned zero
// items. The run aborts: there is nothing to process.
type UpstreamEmptyError struct {
	Platform Platform
}

func (e *UpstreamEmptyError) Error() string {
	return fmt.Sprintf("no vacancies found in %s api", e.Platform)
}

// TransformError marks a raw record missing fields required for the
// canonical shape. Caught per record, never aborts the batch.
type TransformError struct {
	Identifier string
	Field      string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("record %s: missing required field %q", e.Identifier, e.Field)
}

// PersistenceError wraps a store-level failure for one record.
type PersistenceError struct {
	Identifier string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist record %s: %v", e.Identifier, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrPushOnly is returned by the fetch methods of push-model adapters.
var ErrPushOnly = errors.New("source is push-only: listing and detail fetch are not supported")
