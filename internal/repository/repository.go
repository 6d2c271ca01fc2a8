// Package repository holds the SQL behind every stored record.
//
// Queries are written with ? placeholders and rebound for the active
// dialect, so the same repository serves PostgreSQL and SQLite.
package repository

import (
	"context"
	"database/sql"

	"github.com/deppfellow/formula-lab/internal/database"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type baseRepository struct {
	db *database.Database
	q  querier
}

func newBase(db *database.Database) baseRepository {
	return baseRepository{db: db, q: db.DB}
}

func (r baseRepository) withQuerier(q querier) baseRepository {
	r.q = q
	return r
}

func (r baseRepository) rebind(query string) string {
	return r.db.Rebind(query)
}
