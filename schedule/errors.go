/*
errors.go - Centralized error types for the schedule domain

ERROR CATEGORIES:
  1. Config errors - missing source URL, bad task kind / stage input
  2. Shape errors  - remote payload fails validation
  3. Fetch errors  - retry budget exhausted or non-retryable status

Callers match with errors.Is / errors.As; structured errors unwrap to
their sentinel so the HTTP layer can map categories to status codes.
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingSourceURL is returned when refresh is attempted without a
	// configured endpoint. It is a configuration error and is never retried.
	ErrMissingSourceURL = errors.New("missing source URL")

	// ErrBadShape is returned when the remote payload is not the expected
	// pair of 2-D tables.
	ErrBadShape = errors.New("payload shape invalid")

	// ErrFetchFailed is returned when the remote endpoint could not be
	// fetched within the retry budget.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrUnknownTaskKind is returned for task-type strings outside
	// {monthly, daily}.
	ErrUnknownTaskKind = errors.New("unknown task kind")

	// ErrUnknownStage is returned for stage strings outside
	// {first_read, notes, revision}.
	ErrUnknownStage = errors.New("unknown stage")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ShapeError describes which payload field failed validation and why.
type ShapeError struct {
	Field  string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("payload shape invalid: %s", e.Reason)
	}
	return fmt.Sprintf("payload shape invalid: field %q: %s", e.Field, e.Reason)
}

func (e *ShapeError) Unwrap() error {
	return ErrBadShape
}

// FetchError describes a failed fetch: the last HTTP status observed
// (0 for connection failures), how many attempts were made, and the
// underlying transport error if any.
type FetchError struct {
	URL      string
	Status   int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s failed after %d attempt(s): status %d", e.URL, e.Attempts, e.Status)
}

func (e *FetchError) Unwrap() error {
	return ErrFetchFailed
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError reports whether err is fatal misconfiguration rather
// than a transient condition.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingSourceURL) ||
		errors.Is(err, ErrUnknownTaskKind) ||
		errors.Is(err, ErrUnknownStage)
}

// IsClientError reports whether err is due to invalid input rather than
// a backend failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrBadShape) || IsConfigError(err)
}
