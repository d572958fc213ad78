package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// permanentError marks failures caused by the request itself (validation,
// unknown account) rather than by dependency health. They are returned to the
// caller as-is: no retry, no fallback, no breaker failure.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so Execute stops retrying and surfaces it directly.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries the permanent marker.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Fallback produces a substitute result once the real operation is skipped
// (circuit open) or has exhausted its retry budget. It receives the final
// error and may return a degraded value or surface its own failure.
type Fallback[T any] func(err error) (T, error)

// Execute performs one logical call against the guarded dependency.
//
// If the circuit is open the fallback runs immediately and the operation is
// never invoked. Otherwise the operation runs under the policy timeout, with
// sequential retries and exponential backoff up to the attempt budget.
// Permanent errors abort the loop and bypass the fallback. Every completed
// attempt is recorded in the breaker window and logged with its latency.
func Execute[T any](ctx context.Context, guard *Guard, op func(context.Context) (T, error), fallback Fallback[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= guard.policy.MaxAttempts; attempt++ {
		start := time.Now()

		result, err := guard.breaker.Execute(func() (any, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, guard.policy.Timeout)
			defer cancel()
			return op(attemptCtx)
		})

		if isCircuitRejection(err) {
			guard.logger.Warn("call short-circuited",
				"dependency", guard.name,
				"attempt", attempt,
			)
			return fallback(fmt.Errorf("%s: %w", guard.name, ErrUnavailable))
		}

		latency := time.Since(start)

		if err == nil {
			guard.logger.Debug("call succeeded",
				"dependency", guard.name,
				"attempt", attempt,
				"latency", latency,
			)
			typed, ok := result.(T)
			if !ok {
				return zero, fmt.Errorf("%s: unexpected result type %T", guard.name, result)
			}
			return typed, nil
		}

		guard.logger.Warn("call failed",
			"dependency", guard.name,
			"attempt", attempt,
			"latency", latency,
			"error", err,
		)

		var pe *permanentError
		if errors.As(err, &pe) {
			return zero, pe.err
		}

		lastErr = err

		if attempt < guard.policy.MaxAttempts {
			if sleepErr := sleep(ctx, backoffDelay(guard.policy.RetryBackoff, attempt-1)); sleepErr != nil {
				return fallback(fmt.Errorf("%s: %w", guard.name, sleepErr))
			}
		}
	}

	return fallback(fmt.Errorf("%s: %w: %w", guard.name, ErrUnavailable, lastErr))
}

const maxBackoffShift = 16

// backoffDelay grows the base delay exponentially with the attempt index.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	} else if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	return base * time.Duration(1<<attempt)
}

// sleep waits for the duration but honors context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
