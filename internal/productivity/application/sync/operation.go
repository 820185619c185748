package sync

import (
	"context"
	gosync "sync"
)

// Kind names a mutating operation.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindToggle Kind = "toggle"
	KindDelete Kind = "delete"
)

// OperationState is the lifecycle of one operation.
type OperationState int

const (
	StateIdle OperationState = iota
	StatePending
	StateCommitted
	StateFailed
)

func (s OperationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Operation is the handle for one in-flight gateway call. The optimistic
// mutation has already been applied by the time the caller receives it.
type Operation struct {
	kind     Kind
	seq      uint64
	issuedID string

	mu    gosync.Mutex
	id    string
	state OperationState
	err   error
	stale bool
	done  chan struct{}
}

func newOperation(kind Kind, seq uint64, id string) *Operation {
	return &Operation{
		kind:     kind,
		seq:      seq,
		issuedID: id,
		id:       id,
		state:    StateIdle,
		done:     make(chan struct{}),
	}
}

// Kind returns the operation kind.
func (o *Operation) Kind() Kind { return o.kind }

// Seq returns the global sequence number assigned at issuance.
func (o *Operation) Seq() uint64 { return o.seq }

// ID returns the task id. For a create it is the provisional id until the
// gateway assigns the durable one.
func (o *Operation) ID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.id
}

// State returns the current state.
func (o *Operation) State() OperationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Stale reports whether a newer operation on the same task, or a newer
// Load, superseded this one before it completed.
func (o *Operation) Stale() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stale
}

// Err returns the *SyncError of a failed operation.
func (o *Operation) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Done is closed when the operation completes.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation completes and returns its *SyncError, or
// nil on commit.
func (o *Operation) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Operation) finished() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

func (o *Operation) start() {
	o.mu.Lock()
	o.state = StatePending
	o.mu.Unlock()
}

func (o *Operation) rename(id string) {
	o.mu.Lock()
	o.id = id
	o.mu.Unlock()
}

func (o *Operation) finish(err error, stale bool) {
	o.mu.Lock()
	if err != nil {
		o.state = StateFailed
		o.err = err
	} else {
		o.state = StateCommitted
	}
	o.stale = stale
	o.mu.Unlock()
	close(o.done)
}
