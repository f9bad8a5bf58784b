package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nais/kafka-topic-backup/internal/apperr"
	"github.com/nais/kafka-topic-backup/internal/config"
)

// DefaultMaxConns caps pooled connections. Since the persistence
// transaction holds one connection for its full duration, this also
// bounds how many records can be in flight at once.
const DefaultMaxConns = 5

// NewPool builds a pgx connection pool and confirms connectivity with a
// bounded exponential backoff. Once built, the pool itself never retries a
// failed transaction; retries past this point are the process restart.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, apperr.New(apperr.DomainDatabaseInit, "", err)
	}
	poolCfg.MaxConns = DefaultMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, apperr.New(apperr.DomainDatabaseInit, "", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	pingErr := backoff.Retry(func() error {
		return pool.Ping(ctx)
	}, backoff.WithContext(bo, ctx))
	if pingErr != nil {
		pool.Close()
		return nil, apperr.New(apperr.DomainDatabaseInit, "", pingErr)
	}

	return pool, nil
}
