package sqlutil

import (
	"context"
	"database/sql"
)

// InTx executes fn inside a *sql.Tx with queries bound to it.
// If fn returns an error the tx rolls back, else it commits and the value
// is returned.
func InTx[Q, R any](
	ctx context.Context,
	db *sql.DB,
	bind func(*sql.Tx) *Q,
	fn func(q *Q) (R, error),
) (R, error) {
	var zero R
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	out, err := fn(bind(tx))
	if err != nil {
		_ = tx.Rollback()
		return zero, err
	}
	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return out, nil
}
