package persistence

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/google/uuid"
)

// MemoryGateway keeps documents in process memory. It backs tests and the
// "memory" store, and serves as the document store behind `taskcal serve`
// when no other backend is configured.
type MemoryGateway struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]task.Record
}

// NewMemoryGateway creates a gateway holding seed. Seed records without an
// id are assigned one.
func NewMemoryGateway(seed ...task.Record) *MemoryGateway {
	g := &MemoryGateway{docs: make(map[string]task.Record, len(seed))}
	for _, r := range seed {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if _, exists := g.docs[r.ID]; !exists {
			g.order = append(g.order, r.ID)
		}
		g.docs[r.ID] = r
	}
	return g
}

// FetchAll returns every document in creation order.
func (g *MemoryGateway) FetchAll(ctx context.Context) ([]task.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, task.NewTransportError("fetch", err)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	records := make([]task.Record, 0, len(g.order))
	for _, id := range g.order {
		records = append(records, g.docs[id])
	}
	return records, nil
}

// Create stores r under a new id.
func (g *MemoryGateway) Create(ctx context.Context, r task.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", task.NewTransportError("create", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	r.ID = uuid.New().String()
	g.docs[r.ID] = r
	g.order = append(g.order, r.ID)
	return r.ID, nil
}

// Patch merges p into the document.
func (g *MemoryGateway) Patch(ctx context.Context, id string, p task.RecordPatch) error {
	if err := ctx.Err(); err != nil {
		return task.NewTransportError("patch", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.docs[id]
	if !ok {
		return task.ErrNotFound
	}
	g.docs[id] = p.Apply(r)
	return nil
}

// Delete removes the document.
func (g *MemoryGateway) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return task.NewTransportError("delete", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.docs[id]; !ok {
		return task.ErrNotFound
	}
	delete(g.docs, id)
	for i, existing := range g.order {
		if existing == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// Ping always succeeds.
func (g *MemoryGateway) Ping(context.Context) error {
	return nil
}
