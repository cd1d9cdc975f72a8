package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for store invariant violations. Both indicate a local
// logic bug in the caller, never bad user input, and are surfaced loudly.
var (
	ErrDanglingEdge = errors.New("edge references a missing node")
	ErrTypeMismatch = errors.New("node type cannot change")
	ErrInvalidType  = errors.New("unknown entity type")
)

// StoreError provides structured error information for store operations.
type StoreError struct {
	Op     string // Operation that failed (e.g., "UpsertNode", "UpsertEdge")
	Entity string // Entity kind ("node" or "edge")
	ID     string // Entity ID
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

func nodeError(op, id string, cause error) error {
	return &StoreError{Op: op, Entity: "node", ID: id, Cause: cause}
}

func edgeError(op, id string, cause error) error {
	return &StoreError{Op: op, Entity: "edge", ID: id, Cause: cause}
}
