// Package httpclient provides HTTP helpers with bounded retry policies.
package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// jitterFactor adds 10% jitter to retry delays.
const jitterFactor = 0.1

// RetryConfig configures the HTTP retry policy.
type RetryConfig struct {
	// MaxRetries is the maximum number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the first backoff delay.
	BaseDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
}

// normalize fills zero fields with safe defaults.
func (cfg RetryConfig) normalize() RetryConfig {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return cfg
}

// shouldRetry retries on transport errors, 429 and 5xx responses.
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= http.StatusInternalServerError
}

// NewExecutor creates a failsafe executor for HTTP requests with
// exponential backoff, jitter and a bounded retry count.
//
//nolint:bodyclose // [*http.Response] is a generic type parameter, not an actual response
func NewExecutor(cfg RetryConfig) failsafe.Executor[*http.Response] {
	cfg = cfg.normalize()

	retry := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(jitterFactor).
		HandleIf(shouldRetry).
		Build()

	return failsafe.With(retry)
}

// Do runs an HTTP request through the executor with the given context.
func Do(ctx context.Context, executor failsafe.Executor[*http.Response], fn func() (*http.Response, error)) (*http.Response, error) {
	return executor.WithContext(ctx).Get(fn)
}
