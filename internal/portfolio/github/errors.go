package github

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned for a 404. It is never retried.
	ErrNotFound = errors.New("not found")
	// ErrDecode is returned when a payload arrived but could not be decoded.
	ErrDecode = errors.New("decode failed")
	// ErrQuotaExhausted is wrapped by the RateLimitedError of a request the
	// client-side limiter refused.
	ErrQuotaExhausted = errors.New("request quota exhausted")
)

// RateLimitedError reports an exhausted API quota. It is never retried.
type RateLimitedError struct {
	Reset time.Time
	Err   error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited until %s: %v", e.Reset.Format(time.RFC3339), e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// TransientError is any failure worth another attempt: network errors,
// 5xx and unexpected statuses.
type TransientError struct {
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transient error: %v", e.Err)
	}
	return fmt.Sprintf("transient error (status %d): %v", e.StatusCode, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err carries a RateLimitedError.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// IsTransient reports whether err carries a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
