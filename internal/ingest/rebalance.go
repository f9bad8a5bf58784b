package ingest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nais/kafka-topic-backup/internal/apperr"
	"github.com/nais/kafka-topic-backup/internal/store"
)

// seekTimeout bounds the rebalance handler's HWM read/bootstrap
// transaction, so a stuck database cannot wedge the consumer group's
// rebalance indefinitely. The following cl.SetOffsets call takes no
// context and is not bounded by it.
const seekTimeout = 10 * time.Second

// RebalanceHandler reads prior HWMs on every assignment, bootstraps
// missing ones, and repositions the consumer to resume at the correct
// offset.
type RebalanceHandler struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

// NewRebalanceHandler builds a handler bound to pool.
func NewRebalanceHandler(pool *pgxpool.Pool, logger *zap.Logger) *RebalanceHandler {
	return &RebalanceHandler{pool: pool, logger: logger, tracer: otel.Tracer("kafka-topic-backup/ingest")}
}

// OnAssigned implements the kgo.OnPartitionsAssigned hook: it runs the HWM
// read/bootstrap inside a single database transaction across every newly
// assigned partition, then seeks the consumer to each partition's resume
// offset. Any failure here is fatal: the rebalance callback runs
// synchronously before the consumer group delivers another record, so a
// partition we cannot correctly reposition must not be allowed through.
func (h *RebalanceHandler) OnAssigned(parent context.Context, cl *kgo.Client, assigned map[string][]int32) {
	ctx, cancel := context.WithTimeout(parent, seekTimeout)
	defer cancel()

	ctx, span := h.tracer.Start(ctx, "rebalance.assign")
	defer span.End()

	resume, err := h.readAndBootstrapHWMs(ctx, assigned)
	if err != nil {
		h.logger.Fatal("rebalance: failed to read/bootstrap HWMs", zap.Error(apperr.New(apperr.DomainRebalance, "", err)))
		return
	}

	offsets := make(map[string]map[int32]kgo.EpochOffset, len(resume))
	for topic, partitions := range resume {
		offsets[topic] = make(map[int32]kgo.EpochOffset, len(partitions))
		for partition, at := range partitions {
			offsets[topic][partition] = kgo.EpochOffset{Epoch: -1, Offset: at}
			h.logger.Info("rebalance: resuming partition",
				zap.String("topic", topic), zap.Int32("partition", partition), zap.Int64("resume_offset", at))
		}
	}

	cl.SetOffsets(offsets)
}

// OnRevoked implements the kgo.OnPartitionsRevoked hook. The record loop
// commits per-record synchronously, so there is no state to flush here.
func (h *RebalanceHandler) OnRevoked(_ context.Context, _ *kgo.Client, revoked map[string][]int32) {
	for topic, partitions := range revoked {
		h.logger.Info("rebalance: partitions revoked", zap.String("topic", topic), zap.Int32s("partitions", partitions))
	}
}

// OnLost implements the kgo.OnPartitionsLost hook with the same handling
// as revocation: nothing to flush, just observability.
func (h *RebalanceHandler) OnLost(ctx context.Context, cl *kgo.Client, lost map[string][]int32) {
	h.OnRevoked(ctx, cl, lost)
}

// readAndBootstrapHWMs reads the HWM for every (topic, partition) pair in
// assigned inside one transaction, inserting the -1 sentinel for any pair
// seen for the first time, and returns the resume offset for each.
func (h *RebalanceHandler) readAndBootstrapHWMs(ctx context.Context, assigned map[string][]int32) (map[string]map[int32]int64, error) {
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	resume := make(map[string]map[int32]int64, len(assigned))
	for topic, partitions := range assigned {
		resume[topic] = make(map[int32]int64, len(partitions))
		for _, partition := range partitions {
			hwm, found, err := store.GetHWM(ctx, tx, topic, partition)
			if err != nil {
				return nil, err
			}
			if !found {
				h.logger.Info("rebalance: no HWM found, bootstrapping sentinel",
					zap.String("topic", topic), zap.Int32("partition", partition))
				if err := store.InsertHWM(ctx, tx, topic, partition, store.InitialHWM); err != nil {
					return nil, err
				}
				hwm = store.InitialHWM
			}
			resume[topic][partition] = resumeOffset(hwm)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return resume, nil
}

// earliestOffset is the Kafka protocol sentinel for "beginning of the
// partition" (the same value kgo.NewOffset().AtStart() sets internally).
const earliestOffset int64 = -2

// resumeOffset computes the offset to seek to: earliest when hwm is the
// sentinel (nothing persisted yet for this partition), otherwise hwm+1,
// the next offset after the last one durably persisted.
func resumeOffset(hwm int64) int64 {
	if hwm == store.InitialHWM {
		return earliestOffset
	}
	return hwm + 1
}
