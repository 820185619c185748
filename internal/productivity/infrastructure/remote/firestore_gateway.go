package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
)

// DefaultCollection is the Firestore collection holding task documents.
const DefaultCollection = "tasks"

// FirestoreConfig configures a FirestoreGateway. CredentialsPath may be empty
// when running against the emulator or with application default credentials.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsPath string
	Collection      string
}

// firestoreDocument is the stored shape of a task.
type firestoreDocument struct {
	Title         string    `firestore:"title"`
	Note          string    `firestore:"note,omitempty"`
	DueDate       string    `firestore:"dueDate"`
	Time          string    `firestore:"time,omitempty"`
	Status        string    `firestore:"status,omitempty"`
	CompletedDate string    `firestore:"completedDate,omitempty"`
	Priority      string    `firestore:"priority,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt,serverTimestamp"`
}

func toDocument(r task.Record) firestoreDocument {
	return firestoreDocument{
		Title:         r.Title,
		Note:          r.Note,
		DueDate:       r.DueDate,
		Time:          r.Time,
		Status:        r.Status,
		CompletedDate: r.CompletedDate,
		Priority:      r.Priority,
	}
}

func (d firestoreDocument) record(id string) task.Record {
	return task.Record{
		ID:            id,
		Title:         d.Title,
		Note:          d.Note,
		DueDate:       d.DueDate,
		Time:          d.Time,
		Status:        d.Status,
		CompletedDate: d.CompletedDate,
		Priority:      d.Priority,
	}
}

// FirestoreGateway keeps one Firestore document per task. Documents are
// ordered by their server-assigned creation timestamp.
type FirestoreGateway struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreGateway initializes a Firebase app and opens its Firestore client.
func NewFirestoreGateway(ctx context.Context, cfg FirestoreConfig) (*FirestoreGateway, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open firestore client: %w", err)
	}

	return NewFirestoreGatewayFromClient(client, cfg.Collection), nil
}

// NewFirestoreGatewayFromClient wraps an existing client.
func NewFirestoreGatewayFromClient(client *firestore.Client, collection string) *FirestoreGateway {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreGateway{client: client, collection: collection}
}

// Close releases the Firestore client.
func (g *FirestoreGateway) Close() error {
	return g.client.Close()
}

func (g *FirestoreGateway) tasks() *firestore.CollectionRef {
	return g.client.Collection(g.collection)
}

// FetchAll returns every document in creation order.
func (g *FirestoreGateway) FetchAll(ctx context.Context) ([]task.Record, error) {
	iter := g.tasks().OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var records []task.Record
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, task.NewTransportError("fetch", err)
		}
		var doc firestoreDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, task.NewTransportError("fetch", fmt.Errorf("decode %s: %w", snap.Ref.ID, err))
		}
		records = append(records, doc.record(snap.Ref.ID))
	}
	return records, nil
}

// Create adds a document with a Firestore-generated id.
func (g *FirestoreGateway) Create(ctx context.Context, r task.Record) (string, error) {
	ref, _, err := g.tasks().Add(ctx, toDocument(r))
	if err != nil {
		return "", task.NewTransportError("create", err)
	}
	return ref.ID, nil
}

// Patch updates only the fields present in p.
func (g *FirestoreGateway) Patch(ctx context.Context, id string, p task.RecordPatch) error {
	updates := firestoreUpdates(p)
	if len(updates) == 0 {
		return task.NewTransportError("patch", task.ErrEmptyPatch)
	}
	_, err := g.tasks().Doc(id).Update(ctx, updates)
	return task.NewTransportError("patch", notFound(err))
}

// Delete removes the document, failing when it does not exist.
func (g *FirestoreGateway) Delete(ctx context.Context, id string) error {
	_, err := g.tasks().Doc(id).Delete(ctx, firestore.Exists)
	return task.NewTransportError("delete", notFound(err))
}

// Ping reads at most one document.
func (g *FirestoreGateway) Ping(ctx context.Context) error {
	iter := g.tasks().Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

// firestoreUpdates converts a patch into field updates sorted by path. A
// cleared completion date becomes a field delete.
func firestoreUpdates(p task.RecordPatch) []firestore.Update {
	fields := p.Fields()
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		if value == nil {
			updates = append(updates, firestore.Update{Path: path, Value: firestore.Delete})
			continue
		}
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Path < updates[j].Path })
	return updates
}

func notFound(err error) error {
	if status.Code(err) == codes.NotFound {
		return task.ErrNotFound
	}
	return err
}
