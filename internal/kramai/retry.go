package kramai

import (
	"context"
	"errors"
	"time"
)

var (
	errNoImage   = errors.New("empty image response")
	errNoChoices = errors.New("empty completion response")
)

// RetryConfig bounds the retry loop around one external call.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay doubles on each retry up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// OnRetry, if set, is invoked before each sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig matches the production policy: up to 3 retries,
// 1s base delay doubling, capped at 8s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second}
}

// Retry runs op with bounded exponential backoff. Failures whose kind is
// not retryable (content policy, invalid request) surface immediately.
// After the last attempt the last error propagates. The sleep respects
// ctx cancellation.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; ; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !Retryable(KindOf(err)) || attempt >= cfg.MaxRetries {
			return zero, lastErr
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoffDelay(cfg, attempt)):
		}
	}
}

// backoffDelay returns BaseDelay doubled attempt times, capped at MaxDelay.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay << attempt
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}
