package db

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Open opens (or creates) the sqlite database at `path` and applies the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	sqlite, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		sqlite.SetMaxOpenConns(1)
	}
	_, err = sqlite.ExecContext(ctx, Schema)
	if err != nil {
		sqlite.Close()
		return nil, err
	}
	return sqlite, nil
}
