package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// ErrTimeout marks an attempt that exceeded its per-attempt bound. It is
// distinct from the operation's own errors so callers can classify it.
var ErrTimeout = errors.New("operation timed out")

// Policy holds retry and timeout tuning parameters for [Do].
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	JitterMax   time.Duration

	// Timeout bounds each attempt. AttemptTimeouts, when non-empty,
	// overrides it per attempt; attempts beyond its length reuse the last
	// entry. Zero means the attempt runs unbounded (under the caller ctx).
	Timeout         time.Duration
	AttemptTimeouts []time.Duration

	// ShouldRetry decides whether a failed attempt is worth repeating.
	// Nil retries every failure.
	ShouldRetry func(error) bool
}

// Delays returns the backoff sequence between attempts, without jitter:
// BaseDelay * Multiplier^(attempt-1) before attempt 2, 3, ... MaxAttempts.
// The sequence is pure so it can be tested and consumed independently of
// the sleeping primitive.
func (p Policy) Delays() []time.Duration {
	if p.MaxAttempts <= 1 {
		return nil
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	delays := make([]time.Duration, p.MaxAttempts-1)
	next := float64(p.BaseDelay)
	for i := range delays {
		delays[i] = time.Duration(next)
		next *= mult
	}
	return delays
}

// AttemptTimeout returns the timeout for the given zero-based attempt.
func (p Policy) AttemptTimeout(attempt int) time.Duration {
	if len(p.AttemptTimeouts) > 0 {
		if attempt >= len(p.AttemptTimeouts) {
			attempt = len(p.AttemptTimeouts) - 1
		}
		return p.AttemptTimeouts[attempt]
	}
	return p.Timeout
}

// Do runs op under the policy, retrying failed attempts with exponential
// backoff plus random jitter. desc names the operation in timeout errors.
// The last error is returned verbatim once the attempt budget is exhausted
// or ShouldRetry declines the failure.
func Do[T any](ctx context.Context, p Policy, desc string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delays := p.Delays()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := runAttempt(ctx, p.AttemptTimeout(attempt), desc, op)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if p.ShouldRetry != nil && !p.ShouldRetry(err) {
			break
		}
		if attempt >= attempts-1 {
			break
		}

		wait := p.JitterMax
		if attempt < len(delays) {
			wait = delays[attempt] + randomJitter(p.JitterMax)
		}
		if !sleep(ctx, wait) {
			break
		}
	}

	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, desc string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}

	// Buffered so a resolution after the timeout race is discarded without
	// leaking the goroutine.
	ch := make(chan outcome, 1)
	go func() {
		value, err := op(attemptCtx)
		ch <- outcome{value: value, err: err}
	}()

	select {
	case out := <-ch:
		return out.value, out.err
	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%s: %w", desc, ErrTimeout)
		}
		return zero, attemptCtx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)+1))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
