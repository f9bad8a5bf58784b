package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// HWM is the persisted high-water-mark row for one (topic, partition).
type HWM struct {
	Topic     string
	Partition int32
	Offset    int64
}

// InitialHWM is the sentinel value meaning "no records persisted yet for
// this partition".
const InitialHWM int64 = -1

// GetHWM reads the current HWM for (topic, partition). It returns
// (0, false, nil) when no row exists yet.
func GetHWM(ctx context.Context, tx pgx.Tx, topic string, partition int32) (int64, bool, error) {
	var hwm int64
	err := tx.QueryRow(ctx, queryHWM, topic, partition).Scan(&hwm)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return hwm, true, nil
}

// InsertHWM inserts a new HWM row, used on first assignment of a partition.
func InsertHWM(ctx context.Context, tx pgx.Tx, topic string, partition int32, hwm int64) error {
	_, err := tx.Exec(ctx, insertHWM, topic, partition, hwm)
	return err
}

// UpdateHWMIfAbove conditionally advances the HWM and reports whether the
// row was actually updated, i.e. whether offset is strictly above the
// previous HWM. This conditional update is the serialization point that
// makes the persistence transaction safe against replay and reorder.
func UpdateHWMIfAbove(ctx context.Context, tx pgx.Tx, topic string, partition int32, offset int64) (bool, error) {
	tag, err := tx.Exec(ctx, updateHWMIfAbove, topic, partition, offset)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
