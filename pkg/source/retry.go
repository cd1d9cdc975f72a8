package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryConfig controls per-fetch timeouts and the single transient retry.
type RetryConfig struct {
	// FetchTimeout bounds each individual fetch.
	FetchTimeout time.Duration

	// Backoff is the pause before the single retry.
	Backoff time.Duration

	// OnRetry and OnFailure are optional instrumentation hooks, invoked
	// when a fetch is retried and when it fails even after the retry.
	OnRetry   func()
	OnFailure func()
}

// DefaultRetryConfig returns the default fetch budget.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		FetchTimeout: 2 * time.Second,
		Backoff:      250 * time.Millisecond,
	}
}

// retrySource decorates a Source with per-call timeouts and exactly one
// retry on transient failure. A fetch that still fails afterwards surfaces
// ErrUpstreamUnavailable; no synthetic data is ever substituted.
type retrySource struct {
	inner Source
	cfg   RetryConfig
}

// WithRetry wraps a source with the retry/timeout policy.
func WithRetry(inner Source, cfg RetryConfig) Source {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultRetryConfig().FetchTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultRetryConfig().Backoff
	}
	return &retrySource{inner: inner, cfg: cfg}
}

// fetch runs fn with the per-call timeout, retrying once on transient
// failure. ErrNotFound and caller cancellation are never retried.
func fetch[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	attempt := func() (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
		defer cancel()
		return fn(callCtx)
	}

	result, err := attempt()
	if err == nil || !retryable(ctx, err) {
		return result, AsEngineError(err)
	}

	if cfg.OnRetry != nil {
		cfg.OnRetry()
	}
	select {
	case <-ctx.Done():
		return zero, AsEngineError(ctx.Err())
	case <-time.After(cfg.Backoff):
	}

	result, err = attempt()
	if err == nil {
		return result, nil
	}
	if !retryable(ctx, err) {
		return zero, AsEngineError(err)
	}
	if cfg.OnFailure != nil {
		cfg.OnFailure()
	}
	return zero, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

// retryable reports whether err is a transient upstream failure. A deadline
// hit on the per-call context counts as transient unless the caller's own
// context is what expired.
func retryable(callerCtx context.Context, err error) bool {
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if callerCtx.Err() != nil {
		return false
	}
	return true
}

func (r *retrySource) AlertByID(ctx context.Context, id string) (*AlertRecord, error) {
	return fetch(ctx, r.cfg, func(ctx context.Context) (*AlertRecord, error) {
		return r.inner.AlertByID(ctx, id)
	})
}

func (r *retrySource) AlertsInWindow(ctx context.Context, from, to time.Time) ([]*AlertRecord, error) {
	return fetch(ctx, r.cfg, func(ctx context.Context) ([]*AlertRecord, error) {
		return r.inner.AlertsInWindow(ctx, from, to)
	})
}

func (r *retrySource) AlertsByOrg(ctx context.Context, orgKey string, from, to time.Time) ([]*AlertRecord, error) {
	return fetch(ctx, r.cfg, func(ctx context.Context) ([]*AlertRecord, error) {
		return r.inner.AlertsByOrg(ctx, orgKey, from, to)
	})
}

func (r *retrySource) DeviceByID(ctx context.Context, id string) (*DeviceRecord, error) {
	return fetch(ctx, r.cfg, func(ctx context.Context) (*DeviceRecord, error) {
		return r.inner.DeviceByID(ctx, id)
	})
}

func (r *retrySource) ProcessesForAlert(ctx context.Context, alertID string) ([]*ProcessRecord, error) {
	return fetch(ctx, r.cfg, func(ctx context.Context) ([]*ProcessRecord, error) {
		return r.inner.ProcessesForAlert(ctx, alertID)
	})
}

func (r *retrySource) IOCsForAlert(ctx context.Context, alertID string) ([]*IOCRecord, error) {
	return fetch(ctx, r.cfg, func(ctx context.Context) ([]*IOCRecord, error) {
		return r.inner.IOCsForAlert(ctx, alertID)
	})
}

func (r *retrySource) Ping(ctx context.Context) error {
	_, err := fetch(ctx, r.cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.inner.Ping(ctx)
	})
	return err
}

func (r *retrySource) Close() {
	r.inner.Close()
}
