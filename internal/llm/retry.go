package llm

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"
)

// retryConfig controls exponential backoff for model calls.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
}

// llmRetryConfig is tuned for generation endpoints: requests are slow and
// rate limits need longer recovery windows.
func llmRetryConfig() retryConfig {
	return retryConfig{
		maxRetries: 3,
		baseDelay:  2 * time.Second,
		maxDelay:   60 * time.Second,
		multiplier: 2.5,
	}
}

// retryWithBackoff runs op until it succeeds, fails with a non-retryable
// error, runs out of attempts, or the context is cancelled.
func retryWithBackoff(ctx context.Context, cfg retryConfig, logger *slog.Logger, op func() error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			return lastErr
		}
		if attempt >= cfg.maxRetries {
			break
		}

		delay := calculateDelay(cfg, attempt)
		logger.Warn("model call failed, retrying",
			"attempt", attempt+1,
			"max_attempts", cfg.maxRetries+1,
			"delay", delay,
			"error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// calculateDelay computes baseDelay * multiplier^attempt capped at maxDelay,
// with up to 10% random jitter.
func calculateDelay(cfg retryConfig, attempt int) time.Duration {
	delay := float64(cfg.baseDelay) * math.Pow(cfg.multiplier, float64(attempt))
	if delay > float64(cfg.maxDelay) {
		delay = float64(cfg.maxDelay)
	}

	jitterRange := delay * 0.1
	delay += (rand.Float64() - 0.5) * 2 * jitterRange
	if delay < 0 {
		delay = float64(cfg.baseDelay)
	}

	return time.Duration(delay)
}

// isRetryableError reports whether the error looks transient. Provider SDKs
// rarely expose typed errors for throttling, so this matches the usual
// substrings instead.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	retryable := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"rate limit",
		"429",
		"502",
		"503",
		"504",
		"no such host",
		"broken pipe",
		"context deadline exceeded",
	}

	for _, s := range retryable {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
