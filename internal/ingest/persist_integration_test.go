package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/nais/kafka-topic-backup/internal/ingest"
	"github.com/nais/kafka-topic-backup/internal/metrics"
	"github.com/nais/kafka-topic-backup/internal/store"
)

func newHarness(t *testing.T) (*pgxpool.Pool, *ingest.Persister, func()) {
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

	recorder := metrics.NewRecorder(prometheus.NewRegistry())
	persister := ingest.NewPersister(pool, recorder, zap.NewNop())

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
	return pool, persister, cleanup
}

func mkRecord(topic string, partition int32, offset int64) ingest.OwnedRecord {
	return ingest.OwnedRecord{
		Topic:     topic,
		Partition: partition,
		Offset:    offset,
		Timestamp: time.Now().UTC(),
		Key:       []byte{},
		Value:     []byte("payload"),
	}
}

// Scenario 1: cold start, three records in order.
func TestPersist_ColdStartThreeRecordsInOrder(t *testing.T) {
	pool, persister, cleanup := newHarness(t)
	defer cleanup()
	ctx := context.Background()

	seedHWM(t, pool, "x", 0, store.InitialHWM)

	for off := int64(0); off <= 2; off++ {
		require.NoError(t, persister.Persist(ctx, mkRecord("x", 0, off)))
	}

	assertHWM(t, pool, "x", 0, 2)
	assertRowCount(t, pool, "x", 0, 3)
}

// Scenario 2: replay after restart produces no new rows.
func TestPersist_ReplayAfterRestartIsNoOp(t *testing.T) {
	pool, persister, cleanup := newHarness(t)
	defer cleanup()
	ctx := context.Background()

	seedHWM(t, pool, "x", 0, store.InitialHWM)
	for off := int64(0); off <= 9; off++ {
		require.NoError(t, persister.Persist(ctx, mkRecord("x", 0, off)))
	}
	assertHWM(t, pool, "x", 0, 9)

	for off := int64(0); off <= 9; off++ {
		require.NoError(t, persister.Persist(ctx, mkRecord("x", 0, off)))
	}

	assertHWM(t, pool, "x", 0, 9)
	assertRowCount(t, pool, "x", 0, 10)
}

// Scenario 3: mixed replay and new records.
func TestPersist_MixedReplayAndNew(t *testing.T) {
	pool, persister, cleanup := newHarness(t)
	defer cleanup()
	ctx := context.Background()

	seedHWM(t, pool, "x", 0, 5)

	for _, off := range []int64{3, 4, 5, 6, 7} {
		require.NoError(t, persister.Persist(ctx, mkRecord("x", 0, off)))
	}

	assertHWM(t, pool, "x", 0, 7)
	assertRowCount(t, pool, "x", 0, 2)
}

// Scenario 5: empty key and value persist as zero-length, headers absent
// persist as NULL.
func TestPersist_EmptyKeyAndValueNullHeaders(t *testing.T) {
	pool, persister, cleanup := newHarness(t)
	defer cleanup()
	ctx := context.Background()

	seedHWM(t, pool, "x", 0, store.InitialHWM)

	rec := ingest.OwnedRecord{Topic: "x", Partition: 0, Offset: 0, Timestamp: time.Now().UTC(), Key: []byte{}, Value: []byte{}}
	require.NoError(t, persister.Persist(ctx, rec))

	var key, value []byte
	var headers *string
	err := pool.QueryRow(ctx, `SELECT record_key, record_value, headers FROM data_v2 WHERE kafka_topic = $1 AND kafka_partition = $2 AND kafka_offset = $3`, "x", 0, 0).
		Scan(&key, &value, &headers)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, key)
	assert.Equal(t, []byte{}, value)
	assert.Nil(t, headers)
}

// Idempotence law: persisting the same record twice yields one row and
// leaves the HWM at that record's offset.
func TestPersist_SameRecordTwiceIsIdempotent(t *testing.T) {
	pool, persister, cleanup := newHarness(t)
	defer cleanup()
	ctx := context.Background()

	seedHWM(t, pool, "x", 0, store.InitialHWM)
	rec := mkRecord("x", 0, 0)

	require.NoError(t, persister.Persist(ctx, rec))
	require.NoError(t, persister.Persist(ctx, rec))

	assertRowCount(t, pool, "x", 0, 1)
	assertHWM(t, pool, "x", 0, 0)
}

func seedHWM(t *testing.T, pool *pgxpool.Pool, topic string, partition int32, hwm int64) {
	t.Helper()
	ctx := context.Background()
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, store.InsertHWM(ctx, tx, topic, partition, hwm))
	require.NoError(t, tx.Commit(ctx))
}

func assertHWM(t *testing.T, pool *pgxpool.Pool, topic string, partition int32, want int64) {
	t.Helper()
	ctx := context.Background()
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck
	got, found, err := store.GetHWM(ctx, tx, topic, partition)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func assertRowCount(t *testing.T, pool *pgxpool.Pool, topic string, partition int32, want int) {
	t.Helper()
	ctx := context.Background()
	var got int
	err := pool.QueryRow(ctx, `SELECT count(*) FROM data_v2 WHERE kafka_topic = $1 AND kafka_partition = $2`, topic, partition).Scan(&got)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
