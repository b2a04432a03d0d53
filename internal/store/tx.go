package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"ratingxchange/pkg/database"
)

// withTx runs fn inside a transaction on db, committing on a nil return and
// rolling back otherwise. Every repository method wraps its SQL in one
// transaction (spec.md §4.4 "Consistency"), grounded on the teacher's
// pkg/database.WithTransaction.
func withTx(ctx context.Context, db database.DB, fn func(tx pgx.Tx) error) error {
	return database.WithTransaction(ctx, db, fn)
}
