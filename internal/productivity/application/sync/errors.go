package sync

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCreateFailed is wrapped by operations issued against a provisional
	// task whose create never reached the gateway.
	ErrCreateFailed = errors.New("provisional task was never created")

	ErrInvalidFailurePolicy = errors.New("invalid failure policy")
)

// SyncError reports a gateway failure after the optimistic mutation was
// already applied locally.
type SyncError struct {
	Op     Kind
	TaskID string
	Seq    uint64
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s %s (seq %d): %v", e.Op, e.TaskID, e.Seq, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsSyncError reports whether err carries a SyncError.
func IsSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}

// FailurePolicy decides what happens to an optimistic mutation when the
// gateway rejects it.
type FailurePolicy string

const (
	// PolicyKeep leaves the optimistic state in place. A later Load is the
	// only thing that reconciles it.
	PolicyKeep FailurePolicy = "keep"
	// PolicyRollback restores the state from before the failed operation,
	// unless a newer operation on the same task was issued since.
	PolicyRollback FailurePolicy = "rollback"
)

// ParseFailurePolicy parses a policy name. Empty means keep.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyKeep:
		return PolicyKeep, nil
	case PolicyRollback:
		return PolicyRollback, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFailurePolicy, s)
	}
}
