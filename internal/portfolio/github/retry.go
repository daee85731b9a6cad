package github

import (
	"context"
	"time"
)

// attemptState is the state of a single request's retry loop.
//
//	Attempting(n) --ok--------------> Succeeded
//	Attempting(n) --not transient---> FailedTerminal
//	Attempting(n) --transient-------> FailedRetryable
//	FailedRetryable --n < max-------> Attempting(n+1), after backoff(n)
//	FailedRetryable --n == max------> FailedTerminal
type attemptState int

const (
	stateAttempting attemptState = iota
	stateSucceeded
	stateFailedTerminal
	stateFailedRetryable
)

func (s attemptState) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateSucceeded:
		return "succeeded"
	case stateFailedTerminal:
		return "failed_terminal"
	case stateFailedRetryable:
		return "failed_retryable"
	default:
		return "unknown"
	}
}

// transition returns the state following s given the outcome err of attempt.
func transition(s attemptState, err error, attempt, maxAttempts int) attemptState {
	switch s {
	case stateAttempting:
		if err == nil {
			return stateSucceeded
		}
		if IsTransient(err) {
			return stateFailedRetryable
		}
		return stateFailedTerminal
	case stateFailedRetryable:
		if attempt < maxAttempts {
			return stateAttempting
		}
		return stateFailedTerminal
	default:
		return s
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type retrier struct {
	maxAttempts  int
	initialDelay time.Duration
	sleep        SleepFunc
}

// backoff returns the delay after the given failed attempt: initialDelay doubled per attempt.
func (r retrier) backoff(attempt int) time.Duration {
	return r.initialDelay << (attempt - 1)
}

// do runs fn until it succeeds, fails terminally, or runs out of attempts.
// The last error is returned unchanged.
func (r retrier) do(ctx context.Context, fn func(attempt int) error) error {
	var err error
	attempt := 1
	state := stateAttempting
	for {
		switch state {
		case stateAttempting:
			err = fn(attempt)
			state = transition(state, err, attempt, r.maxAttempts)
		case stateFailedRetryable:
			state = transition(state, err, attempt, r.maxAttempts)
			if state != stateAttempting {
				continue
			}
			if serr := r.sleep(ctx, r.backoff(attempt)); serr != nil {
				return serr
			}
			attempt++
		case stateSucceeded:
			return nil
		default:
			return err
		}
	}
}
