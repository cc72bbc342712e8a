// Package stagerun executes a single pipeline stage attempt under a retry,
// timeout, and fallback policy.
//
// Retries apply only to errors services.Retryable reports as transient;
// validation and configuration failures surface immediately. When every
// attempt fails and a fallback is configured, the fallback runs once and its
// success marks the result degraded.
package stagerun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// Func is a single stage attempt.
type Func func(context.Context) error

// Policy controls retry, timeout, and fallback behavior for one stage run.
type Policy struct {
	// Attempts is the total number of tries for the primary function.
	// Values below 1 are treated as 1.
	Attempts int
	// Backoff is the delay before the second attempt; it doubles per retry.
	Backoff time.Duration
	// Timeout bounds each individual attempt. Zero means no per-attempt bound.
	Timeout time.Duration
	// Fallback runs once after all primary attempts fail. Its success
	// completes the stage in degraded form.
	Fallback Func
	Logger   *slog.Logger
}

// Result reports how the stage completed.
type Result struct {
	// FallbackUsed is true when the fallback path produced the stage output.
	FallbackUsed bool
	// Attempts counts primary tries actually made.
	Attempts int
}

// Run executes fn under the policy. It returns a non-nil error only when the
// primary path failed and no fallback succeeded.
func Run(ctx context.Context, policy Policy, fn Func) (Result, error) {
	if fn == nil {
		return Result{}, errors.New("stage function is nil")
	}

	logger := policy.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := policy.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	result := Result{}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Attempts = attempt

		lastErr = runAttempt(ctx, policy.Timeout, fn)
		if lastErr == nil {
			return result, nil
		}
		if errors.Is(lastErr, context.Canceled) {
			return result, lastErr
		}
		if !services.Retryable(lastErr) {
			break
		}
		if attempt == attempts {
			break
		}

		delay := backoff * time.Duration(1<<(attempt-1))
		logger.Warn("stage attempt failed, retrying",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(lastErr),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	if policy.Fallback != nil && !errors.Is(lastErr, context.Canceled) {
		logger.Warn("stage exhausted, running fallback", logging.Error(lastErr))
		if fbErr := runAttempt(ctx, policy.Timeout, policy.Fallback); fbErr == nil {
			result.FallbackUsed = true
			return result, nil
		} else {
			lastErr = fmt.Errorf("fallback failed: %w (primary: %w)", fbErr, lastErr)
		}
	}

	return result, lastErr
}

func runAttempt(ctx context.Context, timeout time.Duration, fn Func) error {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := fn(attemptCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return services.Wrap(services.ErrTimeout, "stage", "attempt", "stage attempt timed out", err)
	}
	return err
}
