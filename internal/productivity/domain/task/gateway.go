package task

import "context"

// Gateway is the durable document store behind the in-memory Store.
//
// Implementations return ErrNotFound for missing documents and wrap every
// other failure in a *TransportError.
type Gateway interface {
	FetchAll(ctx context.Context) ([]Record, error)
	Create(ctx context.Context, r Record) (string, error)
	Patch(ctx context.Context, id string, p RecordPatch) error
	Delete(ctx context.Context, id string) error
}

// Pinger is implemented by gateways that can report whether their backend
// is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
