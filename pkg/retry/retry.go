package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// ErrExhausted is wrapped into the error returned once every attempt failed.
var ErrExhausted = errors.New("retry limit exceeded")

// Func is a unit of work that may be retried.
type Func func(ctx context.Context) error

// Config holds retry configuration.
type Config struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // upper bound for the exponential part of the delay
	Retryable  func(error) bool
}

// DefaultConfig returns the store retry policy.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 5,
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Retryable:  func(error) bool { return false },
	}
}

// Retrier runs functions with bounded exponential backoff and jitter.
type Retrier struct {
	config  Config
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	jitter  func(n int64) int64
	onRetry func(operation string)
}

// New creates a Retrier. A nil logger discards retry logs.
func New(config Config, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if config.Retryable == nil {
		config.Retryable = func(error) bool { return false }
	}
	return &Retrier{
		config: config,
		logger: logger,
		sleep:  sleepContext,
		jitter: rand.Int64N,
	}
}

// OnRetry registers a hook called before every retry, e.g. to count retries.
func (r *Retrier) OnRetry(fn func(operation string)) {
	r.onRetry = fn
}

// Do runs fn until it succeeds, returns a non-retryable error, or the retry
// budget is spent.
func (r *Retrier) Do(ctx context.Context, operation string, fn Func) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("operation succeeded after retries", "operation", operation, "attempts", attempt+1)
			}
			return nil
		}
		lastErr = err

		if !r.config.Retryable(err) {
			return err
		}

		if attempt == r.config.MaxRetries {
			break
		}

		delay := r.Delay(attempt)
		r.logger.Warn("transient failure, retrying",
			"operation", operation,
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err)
		if r.onRetry != nil {
			r.onRetry(operation)
		}

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	r.logger.Error("operation failed after all retries", "operation", operation, "attempts", r.config.MaxRetries+1, "error", lastErr)
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, r.config.MaxRetries+1, lastErr)
}

// Delay returns base * 2^attempt, capped at MaxDelay, plus a random jitter in
// [0, that delay).
func (r *Retrier) Delay(attempt int) time.Duration {
	delay := r.config.BaseDelay << uint(attempt)
	if delay <= 0 || (r.config.MaxDelay > 0 && delay > r.config.MaxDelay) {
		delay = r.config.MaxDelay
	}
	if delay <= 0 {
		return 0
	}
	return delay + time.Duration(r.jitter(int64(delay)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
