package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nais/kafka-topic-backup/internal/store"
)

// newTestPool starts an ephemeral Postgres container, bootstraps the
// schema, and returns a pool against it. Callers must call the returned
// cleanup func.
func newTestPool(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("backup"),
		tcpostgres.WithUsername("backup"),
		tcpostgres.WithPassword("backup"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, store.Bootstrap(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestBootstrap_IsIdempotent(t *testing.T) {
	pool, cleanup := newTestPool(t)
	defer cleanup()

	require.NoError(t, store.Bootstrap(context.Background(), pool))
}

func TestHWM_FirstAssignmentInsertsSentinel(t *testing.T) {
	pool, cleanup := newTestPool(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	_, found, err := store.GetHWM(ctx, tx, "y", 1)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.InsertHWM(ctx, tx, "y", 1, store.InitialHWM))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx) //nolint:errcheck
	hwm, found, err := store.GetHWM(ctx, tx2, "y", 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, store.InitialHWM, hwm)
}

func TestHWM_MonotonicGate(t *testing.T) {
	pool, cleanup := newTestPool(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, store.InsertHWM(ctx, tx, "x", 0, store.InitialHWM))
	require.NoError(t, tx.Commit(ctx))

	advance := func(offset int64) bool {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		ok, err := store.UpdateHWMIfAbove(ctx, tx, "x", 0, offset)
		require.NoError(t, err)
		if ok {
			require.NoError(t, tx.Commit(ctx))
		} else {
			require.NoError(t, tx.Rollback(ctx))
		}
		return ok
	}

	require.True(t, advance(0))
	require.True(t, advance(1))
	require.False(t, advance(1), "re-delivery at current HWM must be skipped")
	require.False(t, advance(0), "re-delivery below HWM must be skipped")
	require.True(t, advance(2))
}

func TestRecord_UniqueOffsetConstraint(t *testing.T) {
	pool, cleanup := newTestPool(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, store.InsertRecord(ctx, tx, "x", 0, 5, time.Now().UTC(), nil, []byte{}, []byte{}))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := pool.Begin(ctx)
	require.NoError(t, err)
	err = store.InsertRecord(ctx, tx2, "x", 0, 5, time.Now().UTC(), nil, []byte{}, []byte{})
	require.Error(t, err, "duplicate (topic, partition, offset) must be rejected")
	_ = tx2.Rollback(ctx)
}
