// Package retry executes outbound HTTP calls with exponential backoff and
// full jitter, classifying failures as retryable, non-retryable or
// exhausted. The executor is stateless and blocks the calling goroutine
// during backoff sleeps; callers that need non-blocking behavior run it on
// a dedicated worker.
package retry

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/afonsojramos/discrakt/internal/domain"
	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
)

// Policy configures the executor. It is read-only after construction.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay is the delay before the first retry; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
	// Jitter draws the realized delay uniformly from [0, computed delay],
	// desynchronizing retries across clients.
	Jitter bool
}

// DefaultPolicy returns the policy used against Trakt and TMDB.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
		MaxDelay:   defaultMaxDelay,
		Jitter:     true,
	}
}

// StatusError is a non-retryable HTTP status outcome (4xx other than 408
// and 429). It is returned after exactly one upstream call.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-retryable HTTP status %d", e.Code)
}

// ExhaustedError reports that every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("max retries exceeded after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// ParseError reports a malformed body on an otherwise successful response.
// It is deliberately distinct from an upstream refusal so callers can tell
// "upstream said no" from "upstream sent garbage".
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Retryable reports whether an HTTP status is worth reattempting:
// 408 (request timeout), 429 (rate limited) and any 5xx.
func Retryable(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		(status >= 500 && status <= 599)
}

// Do runs fn up to 1+MaxRetries times and decodes the successful JSON body
// into T. Transport failures and retryable statuses are retried with
// backoff; anything else returns immediately. A 204 or an empty body yields
// domain.ErrNoContent, which callers map to "nothing watching".
func Do[T any](policy Policy, fn func() (*http.Response, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(policy.delay(attempt - 1))
		}

		resp, err := fn()
		if err != nil {
			log.WithFields(log.Fields{
				"attempt": attempt + 1,
				"error":   err,
			}).Warn("network error, retrying")
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if readErr != nil {
				lastErr = fmt.Errorf("reading body: %w", readErr)
				continue
			}
			return decode[T](resp.StatusCode, body)
		}

		if !Retryable(resp.StatusCode) {
			return nil, &StatusError{Code: resp.StatusCode}
		}

		log.WithFields(log.Fields{
			"attempt": attempt + 1,
			"status":  resp.StatusCode,
		}).Warn("retryable HTTP error, backing off")
		lastErr = &StatusError{Code: resp.StatusCode}
	}

	return nil, &ExhaustedError{Attempts: policy.MaxRetries + 1, LastErr: lastErr}
}

func decode[T any](status int, body []byte) (*T, error) {
	if status == http.StatusNoContent || len(body) == 0 {
		return nil, domain.ErrNoContent
	}

	var value T
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &value, nil
}

// delay computes the sleep before retry n (0-indexed):
// min(MaxDelay, BaseDelay*2^n), optionally drawn down by full jitter.
func (p Policy) delay(n int) time.Duration {
	d := p.BaseDelay << uint(n)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	if p.Jitter && d > 0 {
		d = time.Duration(rand.Int64N(int64(d) + 1))
	}
	return d
}
