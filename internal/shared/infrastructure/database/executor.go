package database

import (
	"context"
	"database/sql"
)

// Row is one result row. *sql.Row and pgx.Row satisfy it.
type Row interface {
	Scan(dest ...any) error
}

// Rows iterates a result set. *sql.Rows satisfies it.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Executor runs statements on a connection or inside a transaction.
// Exec reports the number of affected rows.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Tx is an open transaction.
type Tx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Connection is a pooled handle to one database.
type Connection interface {
	Executor
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close() error
	Driver() Driver
}

// sqlHandle is the query surface shared by *sql.DB and *sql.Tx.
type sqlHandle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLExecutor runs statements through a database/sql handle.
type SQLExecutor struct {
	h sqlHandle
}

func NewSQLExecutor(h sqlHandle) SQLExecutor {
	return SQLExecutor{h: h}
}

func (e SQLExecutor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := e.h.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (e SQLExecutor) QueryRow(ctx context.Context, query string, args ...any) Row {
	return e.h.QueryRowContext(ctx, query, args...)
}

func (e SQLExecutor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return e.h.QueryContext(ctx, query, args...)
}
