/*
Package sheets fetches and validates the remote schedule payload.

The remote source is a web-app endpoint that returns a single JSON
object holding two 2-D tables (monthly and daily). This package owns
the transport concerns - timeout, bounded retry with backoff - and the
shape check that turns the untyped payload into schedule.Tables.

RETRY POLICY:
  Statuses {429, 500, 502, 503, 504} and connection failures are
  retried up to the configured budget with exponential backoff. Any
  other non-2xx status fails immediately. A missing URL is a
  configuration error and is never retried.
*/
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/scribe/study-engine/schedule"
)

// Transport defaults, overridable via Config.
const (
	DefaultTimeout = 20 * time.Second
	DefaultRetries = 3
	DefaultBackoff = 500 * time.Millisecond
)

// retryableStatus lists the HTTP statuses worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Config tunes the fetcher. Zero values fall back to the defaults.
type Config struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration

	// Client overrides the HTTP client entirely (tests). When set,
	// Timeout is ignored.
	Client *http.Client
}

// Fetcher performs bounded-retry GETs against the schedule endpoint.
type Fetcher struct {
	client  *http.Client
	retries int
	backoff time.Duration
}

// NewFetcher creates a fetcher from cfg.
func NewFetcher(cfg Config) *Fetcher {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Fetcher{client: client, retries: retries, backoff: backoff}
}

// Fetch GETs the endpoint and returns the decoded JSON value, untyped
// at this layer. It makes at most 1 + retries attempts.
func (f *Fetcher) Fetch(ctx context.Context, url string) (any, error) {
	if url == "" {
		return nil, schedule.ErrMissingSourceURL
	}

	var (
		lastStatus int
		lastErr    error
		attempts   int
	)

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, f.backoff<<(attempt-1)); err != nil {
				break
			}
		}
		attempts++

		raw, status, err := f.get(ctx, url)
		switch {
		case err != nil:
			// Connection-level failure: retryable.
			lastStatus, lastErr = 0, err
		case status == 0:
			return raw, nil
		case retryableStatus[status]:
			lastStatus, lastErr = status, nil
		default:
			return nil, &schedule.FetchError{URL: url, Status: status, Attempts: attempts}
		}
	}

	return nil, &schedule.FetchError{URL: url, Status: lastStatus, Attempts: attempts, Err: lastErr}
}

// get performs one GET. On a 2xx response it returns the decoded body
// and status 0; otherwise the non-2xx status or transport error.
func (f *Fetcher) get(ctx context.Context, url string) (any, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, nil
	}

	// UseNumber keeps numeric cells in their source representation
	// instead of float64 round-tripping.
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("failed to decode payload: %w", err)
	}
	return raw, 0, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
