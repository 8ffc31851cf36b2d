package memory

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. Callers match them with
// errors.Is; layers add context with fmt.Errorf("...: %w", err).
var (
	// ErrValidation marks a missing or empty required field.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an operation on an unknown node id.
	ErrNotFound = errors.New("node not found")

	// ErrCrossEntity marks an operation that would span two entities.
	ErrCrossEntity = errors.New("nodes belong to different entities")

	// ErrSelfLink marks an attempt to link a node to itself.
	ErrSelfLink = errors.New("node cannot link to itself")

	// ErrDuplicateLink marks an add of an edge that already exists.
	ErrDuplicateLink = errors.New("link already exists")

	// ErrMissingLink marks a removal of an edge that does not exist.
	ErrMissingLink = errors.New("link does not exist")

	// ErrConfiguration marks a required collaborator that was not wired,
	// e.g. a text search with no embedding service configured.
	ErrConfiguration = errors.New("configuration error")

	// ErrAborted marks an operation cancelled mid-retry.
	ErrAborted = errors.New("operation aborted")
)

// ProviderError wraps a backend or embedding-provider failure. The embedding
// service retries these per policy before letting them escape; the store
// layer never retries.
type ProviderError struct {
	Op  string // operation that failed, e.g. "badger.set", "embeddings.new"
	Err error  // underlying cause, may be nil for a generic failure
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider error: %s", e.Op)
	}
	return fmt.Sprintf("provider error: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
