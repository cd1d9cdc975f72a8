package source

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the requested id or org key resolves to nothing.
	ErrNotFound = errors.New("record not found")

	// ErrUpstreamUnavailable means the backing registry stayed unreachable
	// after the single retry. The engine never substitutes synthetic data
	// for a failed fetch; this error is surfaced instead.
	ErrUpstreamUnavailable = errors.New("upstream data source unavailable")

	// ErrTimeout means a fetch or whole-query budget was exceeded.
	ErrTimeout = errors.New("query budget exceeded")
)

// AsEngineError normalizes context errors into the engine taxonomy.
func AsEngineError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
