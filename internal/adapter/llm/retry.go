package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"qabot/internal/port"
)

// RetryConfig configures retry behavior for completion calls.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts (0 = no retries)
	RetryDelay time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Caps exponential backoff
	Timeout    time.Duration // Per-attempt timeout
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		RetryDelay: time.Second,
		MaxDelay:   20 * time.Second,
		Timeout:    time.Minute,
	}
}

// RetryCompleter wraps a Completer with per-attempt timeouts and
// exponential backoff on transient failures.
type RetryCompleter struct {
	inner  port.Completer
	config *RetryConfig
}

func NewRetryCompleter(inner port.Completer, config *RetryConfig) *RetryCompleter {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryCompleter{inner: inner, config: config}
}

func (r *RetryCompleter) ModelName() string {
	return r.inner.ModelName()
}

func (r *RetryCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.RetryDelay
	b.MaxInterval = r.config.MaxDelay

	attempt := 0
	op := func() (string, error) {
		attempt++
		attemptCtx := ctx
		if r.config.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
			defer cancel()
		}

		out, err := r.inner.Complete(attemptCtx, prompt)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil || !isRetryable(err) {
			return "", backoff.Permanent(err)
		}
		slog.Debug("completion attempt failed", "model", r.inner.ModelName(), "attempt", attempt, "error", err)
		return "", err
	}

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.config.MaxRetries+1)),
	)
	if err != nil {
		if attempt > 1 {
			return "", fmt.Errorf("after %d attempts: %w", attempt, err)
		}
		return "", err
	}
	return out, nil
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable (caller cancelled)
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	errStr := err.Error()

	// Daily quota errors won't reset with retries
	if strings.Contains(errStr, "quota") || strings.Contains(errStr, "tokens per day") {
		return false
	}
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "Too Many Requests") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") || strings.Contains(errStr, "UNAVAILABLE") {
		return true
	}
	for _, code := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		if strings.Contains(errStr, fmt.Sprint(code)) || strings.Contains(errStr, http.StatusText(code)) {
			return true
		}
	}

	return false
}
