package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nais/kafka-topic-backup/internal/apperr"
)

// Bootstrap creates both tables idempotently inside a single transaction.
// Re-running it against an already-initialized database is a no-op.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return apperr.New(apperr.DomainSchema, "", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, stmt := range []string{createDataTable, createHWMTable} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return apperr.New(apperr.DomainSchema, "", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.New(apperr.DomainSchema, "", err)
	}
	return nil
}
