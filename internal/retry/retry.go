package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var ErrTooManyAttempts = errors.New("too many retry attempts")

// Callable is invoked once per attempt, attempts are counted from 1
type Callable func(attempt int) error

type retryableError struct {
	error
	attempt int
}

func (e *retryableError) Unwrap() error {
	return e.error
}

// Retryable marks an error as temporary, any other error stops retrying at once
func Retryable(err error, attempt int) error {
	if err == nil {
		return nil
	}
	return &retryableError{error: err, attempt: attempt}
}

// ExhaustedError is returned once every attempt failed, it matches
// ErrTooManyAttempts and unwraps to the error of the last attempt
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s (%d): %v", ErrTooManyAttempts, e.Attempts, e.Last)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrTooManyAttempts
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// Backoff yields the pause before the next attempt and
// reports false once attempts are exhausted
type Backoff interface {
	Next() (time.Duration, bool)
	Attempt() int
}

func Run(ctx context.Context, b Backoff, cb Callable) error {
	var lastErr error

	for {
		err := cb(b.Attempt())
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return errors.Wrapf(err, "attempt %d failed", b.Attempt())
		}

		lastErr = err

		pause, ok := b.Next()
		if !ok {
			return &ExhaustedError{Attempts: b.Attempt(), Last: lastErr}
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), lastErr.Error())
		case <-time.After(pause):
		}
	}
}

// Incremental grows the pause by step after every failed attempt
func Incremental(ctx context.Context, step time.Duration, maxAttempts int, cb Callable) error {
	return Run(ctx, &incrementalBackoff{step: step, max: maxAttempts, attempt: 1}, cb)
}

type incrementalBackoff struct {
	pause   time.Duration
	step    time.Duration
	max     int
	attempt int
}

func (b *incrementalBackoff) Next() (time.Duration, bool) {
	if b.attempt >= b.max {
		return 0, false
	}

	b.attempt++
	b.pause += b.step

	return b.pause, true
}

func (b *incrementalBackoff) Attempt() int {
	return b.attempt
}
