package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
)

const (
	diskvDir    = "tasks"
	diskvSuffix = ".json"
)

// diskvDocument is the file layout of one task document.
type diskvDocument struct {
	Position int64       `json:"position"`
	Created  time.Time   `json:"created"`
	Record   task.Record `json:"record"`
}

// DiskvGateway keeps one JSON file per task under a base directory.
type DiskvGateway struct {
	d *diskv.Diskv

	mu   sync.Mutex
	next int64
}

// NewDiskvGateway opens or creates a file store rooted at basePath.
func NewDiskvGateway(basePath string) (*DiskvGateway, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create diskv directory: %w", err)
	}

	g := &DiskvGateway{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		AdvancedTransform: keyToPath,
		InverseTransform:  pathToKey,
		CacheSizeMax:      1024 * 1024,
	})}

	docs, err := g.readAll(context.Background())
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.Position > g.next {
			g.next = doc.Position
		}
	}
	return g, nil
}

func keyToPath(key string) *diskv.PathKey {
	return &diskv.PathKey{Path: []string{diskvDir}, FileName: key + diskvSuffix}
}

func pathToKey(pathKey *diskv.PathKey) string {
	return strings.TrimSuffix(pathKey.FileName, diskvSuffix)
}

// validKey rejects ids that would escape the tasks directory.
func validKey(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

func (g *DiskvGateway) read(id string) (diskvDocument, error) {
	var doc diskvDocument
	b, err := g.d.Read(id)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("%s: %w", id, err)
	}
	doc.Record.ID = id
	return doc, nil
}

func (g *DiskvGateway) write(id string, doc diskvDocument) error {
	doc.Record.ID = ""
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return g.d.Write(id, b)
}

func (g *DiskvGateway) readAll(ctx context.Context) ([]diskvDocument, error) {
	var docs []diskvDocument
	for key := range g.d.Keys(ctx.Done()) {
		doc, err := g.read(key)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Position == docs[j].Position {
			return docs[i].Record.ID < docs[j].Record.ID
		}
		return docs[i].Position < docs[j].Position
	})
	return docs, nil
}

// FetchAll returns every document in creation order.
func (g *DiskvGateway) FetchAll(ctx context.Context) ([]task.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	docs, err := g.readAll(ctx)
	if err != nil {
		return nil, task.NewTransportError("fetch", err)
	}
	records := make([]task.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.Record)
	}
	return records, nil
}

// Create writes r to a new file.
func (g *DiskvGateway) Create(ctx context.Context, r task.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", task.NewTransportError("create", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := uuid.New().String()
	g.next++
	if err := g.write(id, diskvDocument{Position: g.next, Created: time.Now().UTC(), Record: r}); err != nil {
		return "", task.NewTransportError("create", err)
	}
	return id, nil
}

// Patch merges p into the stored document.
func (g *DiskvGateway) Patch(ctx context.Context, id string, p task.RecordPatch) error {
	if err := ctx.Err(); err != nil {
		return task.NewTransportError("patch", err)
	}
	if !validKey(id) {
		return task.ErrNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.d.Has(id) {
		return task.ErrNotFound
	}
	doc, err := g.read(id)
	if err != nil {
		return task.NewTransportError("patch", err)
	}
	doc.Record = p.Apply(doc.Record)
	if err := g.write(id, doc); err != nil {
		return task.NewTransportError("patch", err)
	}
	return nil
}

// Delete removes the document file.
func (g *DiskvGateway) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return task.NewTransportError("delete", err)
	}
	if !validKey(id) {
		return task.ErrNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.d.Erase(id); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return task.ErrNotFound
		}
		return task.NewTransportError("delete", err)
	}
	return nil
}

// Ping checks that the base directory is still reachable.
func (g *DiskvGateway) Ping(context.Context) error {
	_, err := os.Stat(g.d.BasePath)
	return err
}
