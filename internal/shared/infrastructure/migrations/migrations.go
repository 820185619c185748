// Package migrations applies the embedded schema for each SQL driver.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

const upSuffix = ".up.sql"

const createVersions = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Pending lists the versions in driver order that conn has not applied yet.
func Pending(ctx context.Context, conn database.Connection) ([]string, error) {
	all, err := versions(conn.Driver())
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, createVersions); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var pending []string
	for _, v := range all {
		if !applied[v] {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

// Run applies every pending migration, each in its own transaction with
// its version record.
func Run(ctx context.Context, conn database.Connection) error {
	pending, err := Pending(ctx, conn)
	if err != nil {
		return err
	}

	dir := conn.Driver().String()
	for _, v := range pending {
		body, err := files.ReadFile(dir + "/" + v + upSuffix)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", v, err)
		}
		err = database.WithinTx(ctx, conn, func(ctx context.Context) error {
			x := database.ExecutorFromContext(ctx, conn)
			if _, err := x.Exec(ctx, string(body)); err != nil {
				return err
			}
			_, err := x.Exec(ctx, database.Rebind(conn.Driver(), `INSERT INTO schema_migrations (version) VALUES (?)`), v)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", v, err)
		}
	}
	return nil
}

func versions(d database.Driver) ([]string, error) {
	entries, err := fs.ReadDir(files, d.String())
	if err != nil {
		return nil, fmt.Errorf("no migrations for driver %s: %w", d, err)
	}
	var out []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), upSuffix); ok {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out, nil
}
