package db

import (
	"context"
	"database/sql"
	"errors"
)

// InTx runs `fn` with queries bound to a single transaction, the transaction
// is rolled back when `fn` fails.
func InTx(ctx context.Context, database *sql.DB, fn func(qry *Queries) error) error {
	sqltx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	err = fn(New(sqltx))
	if err != nil {
		return errors.Join(err, sqltx.Rollback())
	}
	return sqltx.Commit()
}
