package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// columns maps document field names to table columns.
var columns = map[string]string{
	"title":         "title",
	"note":          "note",
	"dueDate":       "due_date",
	"time":          "time",
	"status":        "status",
	"completedDate": "completed_date",
	"priority":      "priority",
}

// SQLGateway stores documents in the tasks table of a SQLite or PostgreSQL
// database. Queries are written with ? placeholders and rebound per driver.
type SQLGateway struct {
	conn database.Connection
}

// NewSQLGateway creates a gateway over a migrated connection.
func NewSQLGateway(conn database.Connection) *SQLGateway {
	return &SQLGateway{conn: conn}
}

func (g *SQLGateway) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, g.conn)
}

func (g *SQLGateway) q(query string) string {
	return database.Rebind(g.conn.Driver(), query)
}

// FetchAll returns every document in creation order.
func (g *SQLGateway) FetchAll(ctx context.Context) ([]task.Record, error) {
	rows, err := g.exec(ctx).Query(ctx, `
		SELECT id, title, note, due_date, time, status, completed_date, priority
		FROM tasks
		ORDER BY position`)
	if err != nil {
		return nil, task.NewTransportError("fetch", err)
	}
	defer rows.Close()

	var records []task.Record
	for rows.Next() {
		var (
			r                                       task.Record
			clock, status, completedDate, priority sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Note, &r.DueDate, &clock, &status, &completedDate, &priority); err != nil {
			return nil, task.NewTransportError("fetch", err)
		}
		r.Time = clock.String
		r.Status = status.String
		r.CompletedDate = completedDate.String
		r.Priority = priority.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, task.NewTransportError("fetch", err)
	}
	return records, nil
}

// Create inserts r at the end of the creation order under a new id.
func (g *SQLGateway) Create(ctx context.Context, r task.Record) (string, error) {
	id := uuid.New().String()

	err := database.WithinTx(ctx, g.conn, func(ctx context.Context) error {
		var position int64
		if err := g.exec(ctx).QueryRow(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM tasks`).Scan(&position); err != nil {
			return err
		}

		_, err := g.exec(ctx).Exec(ctx, g.q(`
			INSERT INTO tasks (id, position, title, note, due_date, time, status, completed_date, priority)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			id, position, r.Title, r.Note, r.DueDate,
			nullable(r.Time), nullable(r.Status), nullable(r.CompletedDate), nullable(r.Priority),
		)
		return err
	})
	if err != nil {
		return "", task.NewTransportError("create", err)
	}
	return id, nil
}

// Patch updates only the fields present in p.
func (g *SQLGateway) Patch(ctx context.Context, id string, p task.RecordPatch) error {
	fields := p.Fields()
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		column, ok := columns[name]
		if !ok {
			return task.NewTransportError("patch", fmt.Errorf("unknown field %q", name))
		}
		sets = append(sets, column+" = ?")
		args = append(args, fieldValue(name, fields[name]))
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	n, err := g.exec(ctx).Exec(ctx, g.q("UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
	if err != nil {
		return task.NewTransportError("patch", err)
	}
	return requireAffected(n)
}

// Delete removes the document.
func (g *SQLGateway) Delete(ctx context.Context, id string) error {
	n, err := g.exec(ctx).Exec(ctx, g.q(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return task.NewTransportError("delete", err)
	}
	return requireAffected(n)
}

// Ping checks the database connection.
func (g *SQLGateway) Ping(ctx context.Context) error {
	return g.conn.Ping(ctx)
}

func requireAffected(n int64) error {
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}

// nullable stores absent optional fields as NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func fieldValue(name string, v any) any {
	s, ok := v.(string)
	if !ok {
		return sql.NullString{}
	}
	if name == "note" || name == "title" || name == "dueDate" {
		return s
	}
	return nullable(s)
}
