package source

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySource fails AlertByID a configurable number of times, then succeeds.
type flakySource struct {
	failures int
	failWith error
	calls    int
}

func (f *flakySource) AlertByID(ctx context.Context, id string) (*AlertRecord, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.failWith
	}
	return &AlertRecord{ID: id, OrgKey: "org-1", Severity: 3}, nil
}

func (f *flakySource) AlertsInWindow(ctx context.Context, from, to time.Time) ([]*AlertRecord, error) {
	return nil, nil
}

func (f *flakySource) AlertsByOrg(ctx context.Context, orgKey string, from, to time.Time) ([]*AlertRecord, error) {
	return nil, nil
}

func (f *flakySource) DeviceByID(ctx context.Context, id string) (*DeviceRecord, error) {
	return nil, nil
}

func (f *flakySource) ProcessesForAlert(ctx context.Context, alertID string) ([]*ProcessRecord, error) {
	return nil, nil
}

func (f *flakySource) IOCsForAlert(ctx context.Context, alertID string) ([]*IOCRecord, error) {
	return nil, nil
}

func (f *flakySource) Ping(ctx context.Context) error { return nil }
func (f *flakySource) Close()                         {}

func testRetryConfig() RetryConfig {
	return RetryConfig{FetchTimeout: 100 * time.Millisecond, Backoff: time.Millisecond}
}

func TestWithRetry_TransientFailureRetriedOnce(t *testing.T) {
	inner := &flakySource{failures: 1, failWith: errors.New("connection reset")}
	src := WithRetry(inner, testRetryConfig())

	rec, err := src.AlertByID(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, "A1", rec.ID)
	assert.Equal(t, 2, inner.calls)
}

func TestWithRetry_PersistentFailureSurfacesUpstreamUnavailable(t *testing.T) {
	inner := &flakySource{failures: 10, failWith: errors.New("connection reset")}
	src := WithRetry(inner, testRetryConfig())

	rec, err := src.AlertByID(context.Background(), "A1")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Nil(t, rec, "no synthetic fallback record")
	assert.Equal(t, 2, inner.calls, "exactly one retry")
}

func TestWithRetry_NotFoundNotRetried(t *testing.T) {
	inner := &flakySource{failures: 10, failWith: fmt.Errorf("alert A1: %w", ErrNotFound)}
	src := WithRetry(inner, testRetryConfig())

	_, err := src.AlertByID(context.Background(), "A1")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetry_CallerCancellationNotRetried(t *testing.T) {
	inner := &flakySource{failures: 10, failWith: errors.New("connection reset")}
	src := WithRetry(inner, testRetryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.AlertByID(ctx, "A1")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetry_HooksFire(t *testing.T) {
	inner := &flakySource{failures: 10, failWith: errors.New("connection reset")}
	var retries, failures int
	cfg := testRetryConfig()
	cfg.OnRetry = func() { retries++ }
	cfg.OnFailure = func() { failures++ }
	src := WithRetry(inner, cfg)

	_, err := src.AlertByID(context.Background(), "A1")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 1, retries)
	assert.Equal(t, 1, failures)
}

func TestWithRetry_ZeroConfigGetsDefaults(t *testing.T) {
	src := WithRetry(&flakySource{}, RetryConfig{})
	rs, ok := src.(*retrySource)
	require.True(t, ok)
	assert.Equal(t, DefaultRetryConfig(), rs.cfg)
}

func TestAsEngineError(t *testing.T) {
	assert.NoError(t, AsEngineError(nil))
	assert.ErrorIs(t, AsEngineError(context.DeadlineExceeded), ErrTimeout)

	plain := errors.New("boom")
	assert.ErrorIs(t, AsEngineError(plain), plain)
}
